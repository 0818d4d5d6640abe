// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"
	"image"

	"github.com/gogpu/frameloop/driver"
)

// resource is the state shared by buffers and images. state is owned by the
// GPU timeline.
type resource struct {
	child
	state driver.State
}

func (r *resource) res() *resource { return r }
func (r *resource) Label() string  { return r.kind }

type stateful interface {
	res() *resource
}

type buffer struct {
	resource
	heap   driver.HeapType
	data   []byte
	addr   uint64
	mapped bool
}

func (b *buffer) Size() uint64          { return uint64(len(b.data)) }
func (b *buffer) Heap() driver.HeapType { return b.heap }
func (b *buffer) GPUAddress() uint64    { return b.addr }

func (b *buffer) Map() ([]byte, error) {
	if b.heap != driver.HeapUpload {
		return nil, driver.ErrNotMappable
	}
	b.mapped = true
	return b.data, nil
}

func (b *buffer) Unmap() { b.mapped = false }

func (b *buffer) Release() {
	if b.release() {
		b.dev.free(uint64(len(b.data)))
	}
}

// imageRes is a color or depth/stencil image.
type imageRes struct {
	resource
	w, h    int
	format  driver.Format
	rgba    *image.RGBA
	depth   []float32
	stencil []uint8
	size    uint64
}

func newColorImage(c child, w, h int) *imageRes {
	return &imageRes{
		resource: resource{child: c},
		w:        w,
		h:        h,
		format:   driver.FormatRGBA8Unorm,
		rgba:     image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

func newDepthImage(c child, w, h int) *imageRes {
	img := &imageRes{
		resource: resource{child: c},
		w:        w,
		h:        h,
		format:   driver.FormatD24UnormS8Uint,
		depth:    make([]float32, w*h),
		stencil:  make([]uint8, w*h),
	}
	for i := range img.depth {
		img.depth[i] = 1
	}
	return img
}

func (i *imageRes) Width() int            { return i.w }
func (i *imageRes) Height() int           { return i.h }
func (i *imageRes) Format() driver.Format { return i.format }

func (i *imageRes) Release() {
	if i.release() && i.size > 0 {
		i.dev.free(i.size)
	}
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

type descriptorHeap struct {
	child
	kind  driver.DescriptorKind
	slots []*imageRes
}

func (h *descriptorHeap) Kind() driver.DescriptorKind { return h.kind }
func (h *descriptorHeap) Len() int                    { return len(h.slots) }
func (h *descriptorHeap) Release()                    { h.release() }

func (h *descriptorHeap) CreateView(img driver.Image, i int) error {
	si, ok := img.(*imageRes)
	if !ok {
		return fmt.Errorf("soft: foreign image: %w", driver.ErrInvalidArg)
	}
	if i < 0 || i >= len(h.slots) {
		return fmt.Errorf("soft: descriptor %d out of %d: %w", i, len(h.slots), driver.ErrInvalidArg)
	}
	switch h.kind {
	case driver.DescriptorRenderTarget:
		if si.rgba == nil {
			return fmt.Errorf("soft: render target view of %s: %w", si.kind, driver.ErrInvalidArg)
		}
	case driver.DescriptorDepthStencil:
		if si.depth == nil {
			return fmt.Errorf("soft: depth view of %s: %w", si.kind, driver.ErrInvalidArg)
		}
	}
	h.slots[i] = si
	return nil
}

func (h *descriptorHeap) Handle(i int) driver.Descriptor {
	return driver.Descriptor{Heap: h, Index: i}
}

// lookup resolves a descriptor written by CreateView.
func lookup(d driver.Descriptor) (*imageRes, error) {
	h, ok := d.Heap.(*descriptorHeap)
	if !ok {
		return nil, fmt.Errorf("soft: foreign descriptor heap: %w", driver.ErrInvalidArg)
	}
	if d.Index < 0 || d.Index >= len(h.slots) || h.slots[d.Index] == nil {
		return nil, fmt.Errorf("soft: empty descriptor %d: %w", d.Index, driver.ErrInvalidArg)
	}
	return h.slots[d.Index], nil
}

type rootSignature struct {
	child
	desc driver.RootSignatureDesc
}

func (r *rootSignature) Release() { r.release() }

type pipeline struct {
	child
	desc     driver.PipelineDesc
	position int
	color    int
}

func (p *pipeline) Release() { p.release() }

func asPipeline(pso driver.Pipeline) (*pipeline, error) {
	if pso == nil {
		return nil, nil
	}
	p, ok := pso.(*pipeline)
	if !ok {
		return nil, fmt.Errorf("soft: foreign pipeline: %w", driver.ErrInvalidArg)
	}
	return p, nil
}
