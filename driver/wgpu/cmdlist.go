// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/driver"
)

type cmdAllocator struct {
	d *device
	// pending counts executed batches whose fence value is not reached.
	pending atomic.Int64
	// recording is the list currently open against this allocator.
	recording atomic.Pointer[cmdList]
}

func (a *cmdAllocator) Reset() error {
	a.d.retire()
	if n := a.pending.Load(); n > 0 {
		err := fmt.Errorf("wgpu: allocator reset with %d batches in flight: %w", n, driver.ErrAllocatorInUse)
		a.d.f.violate(err)
		return err
	}
	if a.recording.Load() != nil {
		return fmt.Errorf("wgpu: allocator reset while a list is recording: %w", driver.ErrInvalidArg)
	}
	return nil
}

func (a *cmdAllocator) Release() {}

// op is one recorded command, replayed into a hal encoder on Execute.
type op struct {
	name string
	run  func(*encodeState) error
}

type cmdList struct {
	d       *device
	alloc   *cmdAllocator
	initial *pipeline
	ops     []op
	closed  bool
	// err is the first recording error, reported by Close.
	err error
}

var _ driver.CmdList = (*cmdList)(nil)

func (l *cmdList) Release() {}

func (l *cmdList) Reset(alloc driver.CmdAllocator, pso driver.Pipeline) error {
	if l.alloc != nil && !l.closed {
		return fmt.Errorf("wgpu: reset of an open command list: %w", driver.ErrInvalidArg)
	}
	a, ok := alloc.(*cmdAllocator)
	if !ok {
		return fmt.Errorf("wgpu: foreign command allocator: %w", driver.ErrInvalidArg)
	}
	p, err := asPipeline(pso)
	if err != nil {
		return err
	}
	l.alloc = a
	l.initial = p
	l.ops = nil
	l.closed = false
	l.err = nil
	a.recording.Store(l)
	return nil
}

func (l *cmdList) Close() error {
	if l.closed {
		return fmt.Errorf("wgpu: close of a closed command list: %w", driver.ErrInvalidArg)
	}
	l.closed = true
	l.alloc.recording.CompareAndSwap(l, nil)
	return l.err
}

// Ops returns the names of the commands recorded in a wgpu command list.
func Ops(l driver.CmdList) []string {
	wl, ok := l.(*cmdList)
	if !ok {
		return nil
	}
	names := make([]string, len(wl.ops))
	for i, o := range wl.ops {
		names[i] = o.name
	}
	return names
}

func (l *cmdList) record(name string, run func(*encodeState) error) {
	if l.closed {
		l.d.f.violate(fmt.Errorf("wgpu: %s recorded into a closed list: %w", name, driver.ErrInvalidArg))
		return
	}
	l.ops = append(l.ops, op{name: name, run: run})
}

func (l *cmdList) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

func (l *cmdList) Barrier(barriers ...driver.Barrier) {
	for _, b := range barriers {
		s, ok := b.Resource.(stateful)
		if !ok {
			l.fail(fmt.Errorf("wgpu: barrier on foreign resource: %w", driver.ErrInvalidArg))
			continue
		}
		name := fmt.Sprintf("Barrier(%s %s->%s)", b.Resource.Label(), b.Before, b.After)
		l.record(name, func(es *encodeState) error {
			es.endPass()
			r := s.res()
			var err error
			switch {
			case b.Before == b.After:
				err = fmt.Errorf("barrier on %s from %s to itself: %w", r.label, b.Before, driver.ErrInvalidArg)
			case r.state != b.Before:
				err = fmt.Errorf("barrier on %s: before is %s but resource is in %s: %w",
					r.label, b.Before, r.state, driver.ErrInvalidArg)
			}
			r.state = b.After
			if t, ok := s.(*texture); ok {
				from, to := textureUsage(b.Before), textureUsage(b.After)
				if from != to {
					es.enc.TransitionTextures([]hal.TextureBarrier{{
						Texture: t.hal,
						Usage:   hal.TextureUsageTransition{OldUsage: from, NewUsage: to},
					}})
				}
			}
			return err
		})
	}
}

// SetViewport and SetScissor are recorded for ordering only; hal passes
// cover the whole target.
func (l *cmdList) SetViewport(v driver.Viewport) {
	l.record("SetViewport", func(es *encodeState) error {
		es.viewport = v
		return nil
	})
}

func (l *cmdList) SetScissor(r driver.Rect) {
	l.record("SetScissor", func(*encodeState) error { return nil })
}

func (l *cmdList) ClearRenderTarget(rt driver.Descriptor, color [4]float32) {
	v, err := lookup(rt)
	if err != nil {
		l.fail(err)
		return
	}
	l.record("ClearRenderTarget", func(es *encodeState) error {
		if v.tex.state != driver.StateRenderTarget {
			return fmt.Errorf("clear of %s in state %s: %w", v.tex.label, v.tex.state, driver.ErrInvalidArg)
		}
		es.endPass()
		c := color
		es.colorClear[v.hal] = &c
		return nil
	})
}

func (l *cmdList) ClearDepthStencil(ds driver.Descriptor, depth float32, stencil uint8) {
	v, err := lookup(ds)
	if err != nil {
		l.fail(err)
		return
	}
	l.record("ClearDepthStencil", func(es *encodeState) error {
		if v.tex.state != driver.StateDepthWrite {
			return fmt.Errorf("clear of %s in state %s: %w", v.tex.label, v.tex.state, driver.ErrInvalidArg)
		}
		es.endPass()
		es.depthClear[v.hal] = &depthClear{depth: depth, stencil: stencil}
		return nil
	})
}

func (l *cmdList) SetRenderTargets(rt, ds driver.Descriptor) {
	color, err := lookup(rt)
	if err != nil {
		l.fail(err)
		return
	}
	var depth *view
	if ds.Heap != nil {
		v, err := lookup(ds)
		if err != nil {
			l.fail(err)
			return
		}
		depth = &v
	}
	l.record("SetRenderTargets", func(es *encodeState) error {
		es.endPass()
		es.color = &color
		es.depth = depth
		return nil
	})
}

func (l *cmdList) SetPipeline(pso driver.Pipeline) {
	p, err := asPipeline(pso)
	if err != nil {
		l.fail(err)
		return
	}
	l.record("SetPipeline", func(es *encodeState) error {
		es.pipeline = p
		return nil
	})
}

func (l *cmdList) SetRootSignature(rs driver.RootSignature) {
	if _, ok := rs.(*rootSignature); !ok {
		l.fail(fmt.Errorf("wgpu: foreign root signature: %w", driver.ErrInvalidArg))
		return
	}
	l.record("SetRootSignature", func(*encodeState) error { return nil })
}

func (l *cmdList) SetVertexBuffers(slot int, views ...driver.VertexBufferView) {
	bufs := make([]*buffer, len(views))
	for i, v := range views {
		b, ok := v.Buffer.(*buffer)
		if !ok {
			l.fail(fmt.Errorf("wgpu: foreign vertex buffer: %w", driver.ErrInvalidArg))
			return
		}
		bufs[i] = b
	}
	l.record("SetVertexBuffers", func(es *encodeState) error {
		for i, b := range bufs {
			es.vertex[slot+i] = b
		}
		return nil
	})
}

// SetTopology is fixed by the pipeline in hal.
func (l *cmdList) SetTopology(t driver.Topology) {
	l.record("SetTopology", func(*encodeState) error { return nil })
}

func (l *cmdList) Draw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	l.record("Draw", func(es *encodeState) error {
		if es.pipeline == nil {
			return fmt.Errorf("draw without a pipeline: %w", driver.ErrInvalidArg)
		}
		if es.color == nil {
			return fmt.Errorf("draw without a render target: %w", driver.ErrInvalidArg)
		}
		rp := es.beginPass()
		rp.SetPipeline(es.pipeline.hal)
		for slot, b := range es.vertex {
			if b.heap == driver.HeapDefault && b.state != driver.StateGenericRead {
				return fmt.Errorf("vertex buffer in state %s: %w", b.state, driver.ErrInvalidArg)
			}
			rp.SetVertexBuffer(uint32(slot), b.hal, 0)
		}
		rp.Draw(uint32(vertexCount), uint32(instanceCount), uint32(firstVertex), uint32(firstInstance))
		return nil
	})
}

func (l *cmdList) CopyBufferRegion(dst driver.Buffer, dstOffset uint64, src driver.Buffer, srcOffset, size uint64) {
	d, ok1 := dst.(*buffer)
	s, ok2 := src.(*buffer)
	if !ok1 || !ok2 {
		l.fail(fmt.Errorf("wgpu: copy between foreign buffers: %w", driver.ErrInvalidArg))
		return
	}
	if dstOffset+size > d.size || srcOffset+size > s.size {
		l.fail(fmt.Errorf("wgpu: copy of %d bytes out of range: %w", size, driver.ErrInvalidArg))
		return
	}
	l.record("CopyBufferRegion", func(es *encodeState) error {
		if d.state != driver.StateCopyDest {
			return fmt.Errorf("copy into %s in state %s: %w", d.label, d.state, driver.ErrInvalidArg)
		}
		es.endPass()
		es.enc.CopyBufferToBuffer(s.hal, d.hal, []hal.BufferCopy{{
			SrcOffset: srcOffset,
			DstOffset: dstOffset,
			Size:      size,
		}})
		return nil
	})
}

type depthClear struct {
	depth   float32
	stencil uint8
}

// encodeState is the replay state of one command list.
type encodeState struct {
	enc hal.CommandEncoder
	rp  hal.RenderPassEncoder

	viewport driver.Viewport
	color    *view
	depth    *view
	pipeline *pipeline
	vertex   map[int]*buffer

	// Clears not yet applied, keyed by view. They become the load
	// operation of the next pass on that view.
	colorClear map[hal.TextureView]*[4]float32
	depthClear map[hal.TextureView]*depthClear
}

func newEncodeState(enc hal.CommandEncoder, initial *pipeline) *encodeState {
	return &encodeState{
		enc:        enc,
		pipeline:   initial,
		vertex:     make(map[int]*buffer),
		colorClear: make(map[hal.TextureView]*[4]float32),
		depthClear: make(map[hal.TextureView]*depthClear),
	}
}

// beginPass returns the open render pass, starting one on the current
// targets if needed.
func (es *encodeState) beginPass() hal.RenderPassEncoder {
	if es.rp != nil {
		return es.rp
	}
	es.rp = es.enc.BeginRenderPass(es.passDesc(*es.color, es.depth))
	return es.rp
}

func (es *encodeState) passDesc(color view, depth *view) *hal.RenderPassDescriptor {
	ca := hal.RenderPassColorAttachment{
		View:    color.hal,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if c := es.colorClear[color.hal]; c != nil {
		ca.LoadOp = gputypes.LoadOpClear
		ca.ClearValue = gputypes.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
		delete(es.colorClear, color.hal)
	}
	desc := &hal.RenderPassDescriptor{
		Label:            "frame-pass",
		ColorAttachments: []hal.RenderPassColorAttachment{ca},
	}
	if depth != nil {
		da := &hal.RenderPassDepthStencilAttachment{
			View:           depth.hal,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		}
		if c := es.depthClear[depth.hal]; c != nil {
			da.DepthLoadOp = gputypes.LoadOpClear
			da.DepthClearValue = c.depth
			da.StencilLoadOp = gputypes.LoadOpClear
			da.StencilClearValue = uint32(c.stencil)
			delete(es.depthClear, depth.hal)
		}
		desc.DepthStencilAttachment = da
	}
	return desc
}

func (es *encodeState) endPass() {
	if es.rp != nil {
		es.rp.End()
		es.rp = nil
	}
}

// flushClears applies clears that no draw consumed with empty passes.
func (es *encodeState) flushClears() {
	es.endPass()
	for v := range es.colorClear {
		es.enc.BeginRenderPass(es.passDesc(view{hal: v}, nil)).End()
	}
	for v, c := range es.depthClear {
		es.enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "depth-clear",
			DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
				View:              v,
				DepthLoadOp:       gputypes.LoadOpClear,
				DepthStoreOp:      gputypes.StoreOpStore,
				DepthClearValue:   c.depth,
				StencilLoadOp:     gputypes.LoadOpClear,
				StencilStoreOp:    gputypes.StoreOpStore,
				StencilClearValue: uint32(c.stencil),
			},
		}).End()
		delete(es.depthClear, v)
	}
}

// encode replays l into a new hal command buffer. Replay errors are
// validation failures: they are reported and the rest of the list is
// still encoded.
func (l *cmdList) encode() (hal.CommandBuffer, error) {
	enc, err := l.d.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "frame-encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("frame"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	es := newEncodeState(enc, l.initial)
	for _, o := range l.ops {
		if err := o.run(es); err != nil {
			l.d.f.violate(fmt.Errorf("wgpu: %s: %w", o.name, err))
		}
	}
	es.flushClears()
	cmd, err := enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	return cmd, nil
}
