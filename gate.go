package frameloop

import (
	"fmt"
	"time"

	"github.com/gogpu/frameloop/driver"
)

// Gate pairs a monotonically increasing counter with a GPU-signaled fence.
// It is the only synchronization between CPU submission and GPU
// completion: every Submit blocks until the GPU has finished the batch.
//
// Submit and Wait report failure as false and keep the cause for Err.
// Graphics turns a false result into an *Error wrapping ErrDeviceLost.
type Gate struct {
	queue   driver.Queue
	fence   driver.Fence
	ev      *driver.Event
	timeout time.Duration

	counter uint64
	err     error
	waits   uint64
	blocks  uint64
}

// NewGate returns a gate over q and f. A timeout of zero waits forever.
func NewGate(q driver.Queue, f driver.Fence, timeout time.Duration) *Gate {
	return &Gate{
		queue:   q,
		fence:   f,
		ev:      driver.NewEvent(),
		timeout: timeout,
		counter: f.CompletedValue(),
	}
}

// Submit executes lists and waits for them to complete.
func (g *Gate) Submit(lists ...driver.CmdList) bool {
	g.queue.Execute(lists...)
	return g.Wait()
}

// Wait advances the counter, asks the queue to signal it and blocks until
// the fence reaches it. It does not block when the fence already has.
func (g *Gate) Wait() bool {
	g.counter++
	g.waits++
	target := g.counter

	if err := g.queue.Signal(g.fence, target); err != nil {
		g.err = fmt.Errorf("signal fence %d: %w", target, err)
		return false
	}
	if g.fence.CompletedValue() >= target {
		g.err = nil
		return true
	}

	g.blocks++
	if err := g.fence.SetEventOnCompletion(target, g.ev); err != nil {
		g.err = fmt.Errorf("arm fence event %d: %w", target, err)
		return false
	}
	if !g.ev.Wait(g.timeout) {
		// A late signal must not satisfy a later wait.
		g.ev = driver.NewEvent()
		g.err = fmt.Errorf("fence %d after %s (completed %d): %w",
			target, g.timeout, g.fence.CompletedValue(), ErrTimeout)
		return false
	}
	// A driver that lost the device wakes its waiters without completing.
	if c := g.fence.CompletedValue(); c < target {
		g.err = fmt.Errorf("fence %d woken at %d: %w", target, c, ErrDeviceLost)
		return false
	}
	g.err = nil
	return true
}

// Err returns the cause of the last failed Submit or Wait, or nil.
func (g *Gate) Err() error { return g.err }

// Counter returns the last value signaled.
func (g *Gate) Counter() uint64 { return g.counter }

// Completed returns the fence's completed value.
func (g *Gate) Completed() uint64 { return g.fence.CompletedValue() }

// Waits returns the number of Wait calls, including those made by Submit.
func (g *Gate) Waits() uint64 { return g.waits }

// Blocks returns how many waits actually had to block.
func (g *Gate) Blocks() uint64 { return g.blocks }
