// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/driver"
)

// fence mirrors a hal fence. A goroutine waits on the device for every
// signaled value in order and publishes it as the completed value.
type fence struct {
	d         *device
	hal       hal.Fence
	completed atomic.Uint64

	mu      sync.Mutex
	waiters []waiter

	work chan uint64
	done chan struct{}
}

type waiter struct {
	value uint64
	ev    *driver.Event
}

func newFence(d *device, hf hal.Fence, initial uint64) *fence {
	f := &fence{
		d:    d,
		hal:  hf,
		work: make(chan uint64, 16),
		done: make(chan struct{}),
	}
	f.completed.Store(initial)
	go f.run()
	return f
}

func (f *fence) run() {
	defer close(f.done)
	for v := range f.work {
		if f.d.lost.Load() {
			f.abandon()
			continue
		}
		for {
			ok, err := f.d.hal.Wait(f.hal, v, f.d.f.waitTimeout)
			if err != nil {
				f.d.markLost("wait", err)
				f.abandon()
				break
			}
			if ok {
				f.complete(v)
				break
			}
			driver.Logger().Debug("wgpu: fence wait timed out, retrying", "value", v)
		}
	}
}

func (f *fence) complete(v uint64) {
	if v <= f.completed.Load() {
		return
	}
	f.completed.Store(v)
	f.mu.Lock()
	kept := f.waiters[:0]
	for _, w := range f.waiters {
		if w.value <= v {
			w.ev.Signal()
			continue
		}
		kept = append(kept, w)
	}
	f.waiters = kept
	f.mu.Unlock()
}

// abandon wakes every waiter of a lost device. The completed value stays
// where it is, so waiters can tell the wake from a completion.
func (f *fence) abandon() {
	f.mu.Lock()
	for _, w := range f.waiters {
		w.ev.Signal()
	}
	f.waiters = nil
	f.mu.Unlock()
}

func (f *fence) CompletedValue() uint64 { return f.completed.Load() }

func (f *fence) SetEventOnCompletion(value uint64, ev *driver.Event) error {
	if ev == nil {
		return fmt.Errorf("wgpu: nil event: %w", driver.ErrInvalidArg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed.Load() >= value {
		ev.Signal()
		return nil
	}
	if f.d.lost.Load() {
		return fmt.Errorf("wgpu: wait for fence value %d: %w", value, driver.ErrDeviceRemoved)
	}
	f.waiters = append(f.waiters, waiter{value: value, ev: ev})
	return nil
}

// signal queues v for the waiting goroutine.
func (f *fence) signal(v uint64) {
	f.work <- v
}

func (f *fence) Release() {
	close(f.work)
	<-f.done
	f.d.hal.DestroyFence(f.hal)
}
