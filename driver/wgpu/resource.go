// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/driver"
)

// resource is the state shared by buffers and textures. state is tracked
// on the CPU in execution order and only touched by Execute.
type resource struct {
	d        *device
	label    string
	state    driver.State
	released bool
}

func (r *resource) Label() string  { return r.label }
func (r *resource) res() *resource { return r }
func (r *resource) markReleased() bool {
	if r.released {
		r.d.f.violate(fmt.Errorf("wgpu: %s released twice: %w", r.label, driver.ErrInvalidArg))
		return false
	}
	r.released = true
	return true
}

type stateful interface {
	res() *resource
}

type buffer struct {
	resource
	hal  hal.Buffer
	heap driver.HeapType
	size uint64
	addr uint64

	// shadow is the CPU copy of an upload buffer. Unmap writes it to the
	// GPU buffer.
	shadow []byte
	mapped bool
}

func (b *buffer) Size() uint64          { return b.size }
func (b *buffer) Heap() driver.HeapType { return b.heap }
func (b *buffer) GPUAddress() uint64    { return b.addr }

func (b *buffer) Map() ([]byte, error) {
	if b.heap != driver.HeapUpload {
		return nil, driver.ErrNotMappable
	}
	b.mapped = true
	return b.shadow, nil
}

func (b *buffer) Unmap() {
	if !b.mapped {
		return
	}
	b.mapped = false
	b.d.queue.WriteBuffer(b.hal, 0, b.shadow)
}

func (b *buffer) Release() {
	if b.markReleased() {
		b.d.hal.DestroyBuffer(b.hal)
	}
}

type texture struct {
	resource
	hal    hal.Texture
	w, h   int
	format driver.Format
}

func (t *texture) Width() int            { return t.w }
func (t *texture) Height() int           { return t.h }
func (t *texture) Format() driver.Format { return t.format }

func (t *texture) Release() {
	if t.markReleased() {
		t.d.hal.DestroyTexture(t.hal)
	}
}

// textureUsage maps a resource state to the hal usage a texture is in.
func textureUsage(s driver.State) gputypes.TextureUsage {
	switch s {
	case driver.StateCopyDest:
		return gputypes.TextureUsageCopyDst
	case driver.StateGenericRead:
		return gputypes.TextureUsageCopySrc
	default:
		return gputypes.TextureUsageRenderAttachment
	}
}

type view struct {
	tex *texture
	hal hal.TextureView
}

type descriptorHeap struct {
	d     *device
	kind  driver.DescriptorKind
	slots []view
}

func (h *descriptorHeap) Kind() driver.DescriptorKind { return h.kind }
func (h *descriptorHeap) Len() int                    { return len(h.slots) }

func (h *descriptorHeap) CreateView(img driver.Image, i int) error {
	t, ok := img.(*texture)
	if !ok {
		return fmt.Errorf("wgpu: foreign image: %w", driver.ErrInvalidArg)
	}
	if i < 0 || i >= len(h.slots) {
		return fmt.Errorf("wgpu: descriptor %d out of %d: %w", i, len(h.slots), driver.ErrInvalidArg)
	}
	depth := t.format == driver.FormatD24UnormS8Uint
	if depth != (h.kind == driver.DescriptorDepthStencil) {
		return fmt.Errorf("wgpu: %s view in heap of kind %d: %w", t.label, int(h.kind), driver.ErrInvalidArg)
	}
	v, err := h.d.hal.CreateTextureView(t.hal, &hal.TextureViewDescriptor{
		Label: t.label + "-view",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create view of %s: %w", t.label, err)
	}
	if old := h.slots[i].hal; old != nil {
		h.d.hal.DestroyTextureView(old)
	}
	h.slots[i] = view{tex: t, hal: v}
	return nil
}

func (h *descriptorHeap) Handle(i int) driver.Descriptor {
	return driver.Descriptor{Heap: h, Index: i}
}

func (h *descriptorHeap) Release() {
	for i := range h.slots {
		if h.slots[i].hal != nil {
			h.d.hal.DestroyTextureView(h.slots[i].hal)
			h.slots[i] = view{}
		}
	}
}

func lookup(d driver.Descriptor) (view, error) {
	h, ok := d.Heap.(*descriptorHeap)
	if !ok {
		return view{}, fmt.Errorf("wgpu: foreign descriptor heap: %w", driver.ErrInvalidArg)
	}
	if d.Index < 0 || d.Index >= len(h.slots) || h.slots[d.Index].hal == nil {
		return view{}, fmt.Errorf("wgpu: empty descriptor %d: %w", d.Index, driver.ErrInvalidArg)
	}
	return h.slots[d.Index], nil
}

type rootSignature struct {
	d      *device
	desc   driver.RootSignatureDesc
	layout hal.PipelineLayout
}

func (r *rootSignature) Release() { r.d.hal.DestroyPipelineLayout(r.layout) }

type pipeline struct {
	d   *device
	vs  hal.ShaderModule
	ps  hal.ShaderModule
	hal hal.RenderPipeline
}

func (p *pipeline) Release() {
	if p.hal != nil {
		p.d.hal.DestroyRenderPipeline(p.hal)
	}
	if p.ps != nil {
		p.d.hal.DestroyShaderModule(p.ps)
	}
	if p.vs != nil {
		p.d.hal.DestroyShaderModule(p.vs)
	}
}

func asPipeline(pso driver.Pipeline) (*pipeline, error) {
	if pso == nil {
		return nil, nil
	}
	p, ok := pso.(*pipeline)
	if !ok {
		return nil, fmt.Errorf("wgpu: foreign pipeline: %w", driver.ErrInvalidArg)
	}
	return p, nil
}
