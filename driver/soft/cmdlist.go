// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/frameloop/driver"
)

type cmdAllocator struct {
	child
	// pending counts executed batches the timeline has not finished.
	pending atomic.Int64
	// recording is the list currently open against this allocator.
	recording atomic.Pointer[cmdList]
}

func (a *cmdAllocator) Reset() error {
	if n := a.pending.Load(); n > 0 {
		err := fmt.Errorf("soft: allocator reset with %d batches in flight: %w", n, driver.ErrAllocatorInUse)
		a.dev.f.violate(err)
		return err
	}
	if a.recording.Load() != nil {
		return fmt.Errorf("soft: allocator reset while a list is recording: %w", driver.ErrInvalidArg)
	}
	return nil
}

func (a *cmdAllocator) Release() { a.release() }

// op is one recorded command.
type op struct {
	name string
	run  func(*execState) error
}

type cmdList struct {
	child
	alloc   *cmdAllocator
	initial *pipeline
	ops     []op
	closed  bool
}

func (l *cmdList) open(a *cmdAllocator, p *pipeline) {
	l.alloc = a
	l.initial = p
	l.ops = nil
	l.closed = false
	a.recording.Store(l)
}

func (l *cmdList) Release() { l.release() }

func (l *cmdList) Reset(alloc driver.CmdAllocator, pso driver.Pipeline) error {
	if !l.closed {
		return fmt.Errorf("soft: reset of an open command list: %w", driver.ErrInvalidArg)
	}
	a, ok := alloc.(*cmdAllocator)
	if !ok {
		return fmt.Errorf("soft: foreign command allocator: %w", driver.ErrInvalidArg)
	}
	p, err := asPipeline(pso)
	if err != nil {
		return err
	}
	l.open(a, p)
	return nil
}

func (l *cmdList) Close() error {
	if l.closed {
		return fmt.Errorf("soft: close of a closed command list: %w", driver.ErrInvalidArg)
	}
	l.closed = true
	l.alloc.recording.CompareAndSwap(l, nil)
	return nil
}

// Ops returns the names of the commands recorded in a soft command list.
func Ops(l driver.CmdList) []string {
	sl, ok := l.(*cmdList)
	if !ok {
		return nil
	}
	names := make([]string, len(sl.ops))
	for i, o := range sl.ops {
		names[i] = o.name
	}
	return names
}

func (l *cmdList) record(name string, run func(*execState) error) {
	if l.closed {
		l.dev.f.violate(fmt.Errorf("soft: %s recorded into a closed list: %w", name, driver.ErrInvalidArg))
		return
	}
	l.ops = append(l.ops, op{name: name, run: run})
}

func (l *cmdList) Barrier(barriers ...driver.Barrier) {
	bs := append([]driver.Barrier(nil), barriers...)
	for _, b := range bs {
		name := fmt.Sprintf("Barrier(%s %s->%s)", labelOf(b.Resource), b.Before, b.After)
		l.record(name, func(*execState) error {
			s, ok := b.Resource.(stateful)
			if !ok {
				return fmt.Errorf("barrier on foreign resource: %w", driver.ErrInvalidArg)
			}
			r := s.res()
			if b.Before == b.After {
				return fmt.Errorf("barrier on %s from %s to itself: %w", r.kind, b.Before, driver.ErrInvalidArg)
			}
			if r.state != b.Before {
				err := fmt.Errorf("barrier on %s: before is %s but resource is in %s: %w",
					r.kind, b.Before, r.state, driver.ErrInvalidArg)
				r.state = b.After
				return err
			}
			r.state = b.After
			return nil
		})
	}
}

func labelOf(r driver.Resource) string {
	if r == nil {
		return "nil"
	}
	return r.Label()
}

func (l *cmdList) SetViewport(v driver.Viewport) {
	l.record("SetViewport", func(es *execState) error {
		es.viewport = v
		return nil
	})
}

func (l *cmdList) SetScissor(r driver.Rect) {
	l.record("SetScissor", func(es *execState) error {
		es.scissor = r
		es.hasScissor = true
		return nil
	})
}

func (l *cmdList) ClearRenderTarget(rt driver.Descriptor, color [4]float32) {
	l.record("ClearRenderTarget", func(*execState) error {
		img, err := lookup(rt)
		if err != nil {
			return err
		}
		if img.state != driver.StateRenderTarget {
			return fmt.Errorf("clear of %s in state %s: %w", img.kind, img.state, driver.ErrInvalidArg)
		}
		c := toRGBA(color)
		pix := img.rgba.Pix
		for i := 0; i < len(pix); i += 4 {
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c[0], c[1], c[2], c[3]
		}
		return nil
	})
}

func (l *cmdList) ClearDepthStencil(ds driver.Descriptor, depth float32, stencil uint8) {
	l.record("ClearDepthStencil", func(*execState) error {
		img, err := lookup(ds)
		if err != nil {
			return err
		}
		if img.state != driver.StateDepthWrite {
			return fmt.Errorf("depth clear of %s in state %s: %w", img.kind, img.state, driver.ErrInvalidArg)
		}
		for i := range img.depth {
			img.depth[i] = depth
			img.stencil[i] = stencil
		}
		return nil
	})
}

func (l *cmdList) SetRenderTargets(rt, ds driver.Descriptor) {
	l.record("SetRenderTargets", func(es *execState) error {
		var err error
		if es.rt, err = lookup(rt); err != nil {
			return err
		}
		if ds.Heap == nil {
			es.ds = nil
			return nil
		}
		es.ds, err = lookup(ds)
		return err
	})
}

func (l *cmdList) SetPipeline(pso driver.Pipeline) {
	p, err := asPipeline(pso)
	l.record("SetPipeline", func(es *execState) error {
		if err != nil {
			return err
		}
		es.pipeline = p
		return nil
	})
}

func (l *cmdList) SetRootSignature(rs driver.RootSignature) {
	l.record("SetRootSignature", func(es *execState) error {
		r, ok := rs.(*rootSignature)
		if !ok {
			return fmt.Errorf("foreign root signature: %w", driver.ErrInvalidArg)
		}
		es.rootSig = r
		return nil
	})
}

func (l *cmdList) SetVertexBuffers(slot int, views ...driver.VertexBufferView) {
	vs := append([]driver.VertexBufferView(nil), views...)
	l.record("SetVertexBuffers", func(es *execState) error {
		for len(es.vertex) < slot+len(vs) {
			es.vertex = append(es.vertex, driver.VertexBufferView{})
		}
		copy(es.vertex[slot:], vs)
		return nil
	})
}

func (l *cmdList) SetTopology(t driver.Topology) {
	l.record("SetTopology", func(es *execState) error {
		es.topology = t
		return nil
	})
}

func (l *cmdList) Draw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	l.record("Draw", func(es *execState) error {
		return es.draw(vertexCount, instanceCount, firstVertex)
	})
}

func (l *cmdList) CopyBufferRegion(dst driver.Buffer, dstOffset uint64, src driver.Buffer, srcOffset, size uint64) {
	l.record("CopyBufferRegion", func(*execState) error {
		d, ok1 := dst.(*buffer)
		s, ok2 := src.(*buffer)
		if !ok1 || !ok2 {
			return fmt.Errorf("copy between foreign buffers: %w", driver.ErrInvalidArg)
		}
		if d.state != driver.StateCopyDest {
			return fmt.Errorf("copy into buffer in state %s: %w", d.state, driver.ErrInvalidArg)
		}
		if s.heap != driver.HeapUpload && s.state != driver.StateGenericRead {
			return fmt.Errorf("copy from buffer in state %s: %w", s.state, driver.ErrInvalidArg)
		}
		if srcOffset+size > s.Size() || dstOffset+size > d.Size() {
			return fmt.Errorf("copy of %d bytes out of range: %w", size, driver.ErrInvalidArg)
		}
		copy(d.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
		return nil
	})
}

// execState is the pipeline state of a command list while it runs on the
// timeline. It starts empty for every list.
type execState struct {
	pipeline   *pipeline
	rootSig    *rootSignature
	viewport   driver.Viewport
	scissor    driver.Rect
	hasScissor bool
	rt, ds     *imageRes
	vertex     []driver.VertexBufferView
	topology   driver.Topology
}

func toRGBA(c [4]float32) [4]uint8 {
	var out [4]uint8
	for i, v := range c {
		out[i] = unorm8(v)
	}
	return out
}

func unorm8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
