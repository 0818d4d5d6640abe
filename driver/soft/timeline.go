// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/frameloop/driver"
)

// queue feeds the GPU timeline goroutine. Work runs strictly in submission
// order.
type queue struct {
	child
	mu     sync.Mutex
	closed bool
	ops    chan func()
	done   chan struct{}
}

func (q *queue) run() {
	defer close(q.done)
	for fn := range q.ops {
		fn()
	}
}

// push enqueues fn. It reports false once the queue is released.
func (q *queue) push(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.ops <- fn
	return true
}

func (q *queue) Execute(lists ...driver.CmdList) {
	f := q.dev.f
	for _, l := range lists {
		sl, ok := l.(*cmdList)
		if !ok {
			f.violate(fmt.Errorf("soft: execute of a foreign command list: %w", driver.ErrInvalidArg))
			continue
		}
		if !sl.closed {
			f.violate(fmt.Errorf("soft: execute of an open command list: %w", driver.ErrInvalidArg))
			continue
		}
		ops := append([]op(nil), sl.ops...)
		alloc, initial := sl.alloc, sl.initial
		alloc.pending.Add(1)
		latency := f.latency
		pushed := q.push(func() {
			defer alloc.pending.Add(-1)
			if latency > 0 {
				time.Sleep(latency)
			}
			es := &execState{pipeline: initial}
			for _, o := range ops {
				if err := o.run(es); err != nil {
					f.violate(fmt.Errorf("soft: %s: %w", o.name, err))
				}
			}
		})
		if !pushed {
			alloc.pending.Add(-1)
			f.violate(fmt.Errorf("soft: execute on a released queue: %w", driver.ErrInvalidArg))
		}
	}
}

func (q *queue) Signal(f driver.Fence, value uint64) error {
	if q.dev.removed.Load() {
		return driver.ErrDeviceRemoved
	}
	sf, ok := f.(*fence)
	if !ok {
		return fmt.Errorf("soft: foreign fence: %w", driver.ErrInvalidArg)
	}
	if !q.push(func() { sf.complete(value) }) {
		return fmt.Errorf("soft: signal on a released queue: %w", driver.ErrInvalidArg)
	}
	return nil
}

// Release drains the timeline and stops it.
func (q *queue) Release() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.release()
		return
	}
	q.closed = true
	close(q.ops)
	q.mu.Unlock()
	<-q.done
	q.release()
}

type fenceWaiter struct {
	value uint64
	ev    *driver.Event
}

// fence holds the GPU-written counter.
type fence struct {
	child
	value   atomic.Uint64
	mu      sync.Mutex
	waiters []fenceWaiter
}

func (f *fence) CompletedValue() uint64 { return f.value.Load() }

func (f *fence) SetEventOnCompletion(value uint64, ev *driver.Event) error {
	if ev == nil {
		return fmt.Errorf("soft: nil event: %w", driver.ErrInvalidArg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.value.Load() >= value {
		ev.Signal()
		return nil
	}
	f.waiters = append(f.waiters, fenceWaiter{value: value, ev: ev})
	return nil
}

// complete runs on the timeline. Values lower than the current one are
// ignored so the fence never goes back.
func (f *fence) complete(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value > f.value.Load() {
		f.value.Store(value)
	}
	cur := f.value.Load()
	kept := f.waiters[:0]
	for _, w := range f.waiters {
		if w.value <= cur {
			w.ev.Signal()
			continue
		}
		kept = append(kept, w)
	}
	f.waiters = kept
}

func (f *fence) Release() { f.release() }
