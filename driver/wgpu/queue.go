// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/driver"
)

// queue submits to the device's hal queue. Command buffers executed since
// the last Signal are retired when the fence reaches the signaled value.
type queue struct {
	d *device

	cmds   []hal.CommandBuffer
	allocs []*cmdAllocator
}

var _ driver.Queue = (*queue)(nil)

func (q *queue) Execute(lists ...driver.CmdList) {
	if q.d.lost.Load() {
		return
	}
	q.d.retire()
	cmds := make([]hal.CommandBuffer, 0, len(lists))
	for _, cl := range lists {
		l, ok := cl.(*cmdList)
		if !ok {
			q.d.f.violate(fmt.Errorf("wgpu: execute of a foreign command list: %w", driver.ErrInvalidArg))
			continue
		}
		if !l.closed {
			q.d.f.violate(fmt.Errorf("wgpu: execute of an open command list: %w", driver.ErrInvalidArg))
			continue
		}
		cmd, err := l.encode()
		if err != nil {
			q.d.markLost("encode", err)
			return
		}
		cmds = append(cmds, cmd)
		l.alloc.pending.Add(1)
		q.allocs = append(q.allocs, l.alloc)
	}
	if len(cmds) == 0 {
		return
	}
	q.cmds = append(q.cmds, cmds...)
	if err := q.d.queue.Submit(cmds, nil, 0); err != nil {
		q.d.markLost("submit", err)
	}
}

func (q *queue) Signal(f driver.Fence, value uint64) error {
	if err := q.d.alive(); err != nil {
		return err
	}
	wf, ok := f.(*fence)
	if !ok {
		return fmt.Errorf("wgpu: signal of a foreign fence: %w", driver.ErrInvalidArg)
	}
	if err := q.d.queue.Submit(nil, wf.hal, value); err != nil {
		q.d.markLost("signal", err)
		return fmt.Errorf("wgpu: signal %d: %v: %w", value, err, driver.ErrDeviceRemoved)
	}
	q.d.mu.Lock()
	q.d.batches = append(q.d.batches, &batch{fence: wf, value: value, cmds: q.cmds, allocs: q.allocs})
	q.d.mu.Unlock()
	q.cmds, q.allocs = nil, nil
	wf.signal(value)
	return nil
}

func (q *queue) Release() {
	q.d.retire()
}
