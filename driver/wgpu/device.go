// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/driver"
)

type device struct {
	f     *Factory
	hal   hal.Device
	queue hal.Queue
	owned bool

	lost     atomic.Bool
	nextAddr atomic.Uint64

	// mu guards batches. Batches are retired on the recording goroutine.
	mu      sync.Mutex
	batches []*batch
}

var _ driver.Device = (*device)(nil)

// batch is the command buffers executed before one fence signal.
type batch struct {
	fence  *fence
	value  uint64
	cmds   []hal.CommandBuffer
	allocs []*cmdAllocator
}

func newDevice(f *Factory, d hal.Device, q hal.Queue, owned bool) *device {
	dev := &device{f: f, hal: d, queue: q, owned: owned}
	dev.nextAddr.Store(0x10000)
	return dev
}

func (d *device) MaxFeatureLevel() driver.FeatureLevel { return deviceLevel }

func (d *device) alive() error {
	if d.lost.Load() {
		return driver.ErrDeviceRemoved
	}
	return nil
}

// markLost records a failure that leaves the device unusable.
func (d *device) markLost(op string, err error) {
	if d.lost.CompareAndSwap(false, true) {
		driver.Logger().Error("wgpu: device lost", "op", op, "error", err)
	}
}

// retire frees the command buffers of every batch whose fence has reached
// its value.
func (d *device) retire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.batches[:0]
	for _, b := range d.batches {
		if b.fence.CompletedValue() < b.value {
			kept = append(kept, b)
			continue
		}
		for _, cmd := range b.cmds {
			d.hal.FreeCommandBuffer(cmd)
		}
		for _, a := range b.allocs {
			a.pending.Add(-1)
		}
	}
	for i := len(kept); i < len(d.batches); i++ {
		d.batches[i] = nil
	}
	d.batches = kept
}

func (d *device) Release() {
	d.retire()
	d.mu.Lock()
	if n := len(d.batches); n > 0 {
		d.f.violate(fmt.Errorf("wgpu: device released with %d batches in flight: %w", n, driver.ErrInvalidArg))
	}
	d.mu.Unlock()
	if d.owned {
		d.hal.Destroy()
	}
}

func (d *device) CreateCommandQueue() (driver.Queue, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	return &queue{d: d}, nil
}

func (d *device) CreateCommandAllocator() (driver.CmdAllocator, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	return &cmdAllocator{d: d}, nil
}

func (d *device) CreateCommandList(alloc driver.CmdAllocator, pso driver.Pipeline) (driver.CmdList, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	l := &cmdList{d: d}
	if err := l.Reset(alloc, pso); err != nil {
		return nil, err
	}
	return l, nil
}

func (d *device) CreateFence(initial uint64) (driver.Fence, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	hf, err := d.hal.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	return newFence(d, hf, initial), nil
}

func (d *device) CreateBuffer(heap driver.HeapType, size uint64, initial driver.State) (driver.Buffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("wgpu: zero-sized buffer: %w", driver.ErrInvalidArg)
	}
	label := "default-buffer"
	switch heap {
	case driver.HeapDefault:
	case driver.HeapUpload:
		if initial != driver.StateGenericRead {
			return nil, fmt.Errorf("wgpu: upload buffers must start in %s: %w", driver.StateGenericRead, driver.ErrInvalidArg)
		}
		label = "upload-buffer"
	default:
		return nil, fmt.Errorf("wgpu: heap %s: %w", heap, driver.ErrInvalidArg)
	}
	hb, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc | gputypes.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %v: %w", label, err, driver.ErrNoDeviceMemory)
	}
	b := &buffer{
		resource: resource{d: d, label: label, state: initial},
		hal:      hb,
		heap:     heap,
		size:     size,
		addr:     d.nextAddr.Add(driver.AlignRowPitch(size)) - driver.AlignRowPitch(size),
	}
	if heap == driver.HeapUpload {
		b.shadow = make([]byte, size)
	}
	return b, nil
}

func (d *device) CreateDepthStencil(width, height int, samples driver.SampleDesc) (driver.Image, error) {
	return d.createTexture("depth-stencil", width, height, driver.FormatD24UnormS8Uint, samples, driver.StateCommon)
}

func (d *device) createTexture(label string, w, h int, format driver.Format, samples driver.SampleDesc, initial driver.State) (*texture, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("wgpu: %s size %dx%d: %w", label, w, h, driver.ErrInvalidArg)
	}
	hf, err := textureFormat(format)
	if err != nil {
		return nil, err
	}
	usage := gputypes.TextureUsageRenderAttachment
	if format == driver.FormatRGBA8Unorm {
		usage |= gputypes.TextureUsageCopySrc
	}
	ht, err := d.hal.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(w),
			Height:             uint32(h),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   uint32(max(samples.Count, 1)),
		Dimension:     gputypes.TextureDimension2D,
		Format:        hf,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %v: %w", label, err, driver.ErrNoDeviceMemory)
	}
	return &texture{
		resource: resource{d: d, label: label, state: initial},
		hal:      ht,
		w:        w,
		h:        h,
		format:   format,
	}, nil
}

func textureFormat(f driver.Format) (gputypes.TextureFormat, error) {
	switch f {
	case driver.FormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, nil
	case driver.FormatD24UnormS8Uint:
		return gputypes.TextureFormatDepth24PlusStencil8, nil
	default:
		return gputypes.TextureFormatUndefined, fmt.Errorf("wgpu: texture format %d: %w", int(f), driver.ErrInvalidArg)
	}
}

func (d *device) CreateSwapchain(q driver.Queue, desc driver.SwapchainDesc) (driver.Swapchain, error) {
	if _, ok := q.(*queue); !ok {
		return nil, fmt.Errorf("wgpu: foreign queue: %w", driver.ErrInvalidArg)
	}
	if desc.BufferCount < 2 {
		return nil, fmt.Errorf("wgpu: %d swapchain buffers: %w", desc.BufferCount, driver.ErrInvalidArg)
	}
	if desc.Format != driver.FormatRGBA8Unorm {
		return nil, fmt.Errorf("wgpu: swapchain format %d: %w", int(desc.Format), driver.ErrUnsupported)
	}
	sc := &swapchain{d: d, desc: desc, present: d.f.present}
	for i := 0; i < desc.BufferCount; i++ {
		img, err := d.createTexture("backbuffer", desc.Width, desc.Height, desc.Format, desc.Samples, driver.StatePresent)
		if err != nil {
			for _, img := range sc.images {
				img.Release()
			}
			return nil, err
		}
		sc.images = append(sc.images, img)
	}
	return sc, nil
}

func (d *device) CreateDescriptorHeap(kind driver.DescriptorKind, n int) (driver.DescriptorHeap, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("wgpu: descriptor heap of %d: %w", n, driver.ErrInvalidArg)
	}
	return &descriptorHeap{d: d, kind: kind, slots: make([]view, n)}, nil
}

func (d *device) CreateRootSignature(desc driver.RootSignatureDesc) (driver.RootSignature, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	layout, err := d.hal.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "root-signature",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	return &rootSignature{d: d, desc: desc, layout: layout}, nil
}

// Shader entry points expected in the SPIR-V modules.
const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

func (d *device) CreatePipeline(desc *driver.PipelineDesc) (driver.Pipeline, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	rs, ok := desc.RootSignature.(*rootSignature)
	if !ok {
		return nil, fmt.Errorf("wgpu: foreign root signature: %w", driver.ErrInvalidArg)
	}
	attrs, err := vertexAttributes(desc.InputLayout)
	if err != nil {
		return nil, err
	}
	vsCode, err := spirvWords(desc.VS)
	if err != nil {
		return nil, fmt.Errorf("wgpu: vertex shader: %w", err)
	}
	psCode, err := spirvWords(desc.PS)
	if err != nil {
		return nil, fmt.Errorf("wgpu: pixel shader: %w", err)
	}

	p := &pipeline{d: d}
	if p.vs, err = d.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "vertex-shader",
		Source: hal.ShaderSource{SPIRV: vsCode},
	}); err != nil {
		return nil, fmt.Errorf("wgpu: compile vertex shader: %w", err)
	}
	if p.ps, err = d.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "pixel-shader",
		Source: hal.ShaderSource{SPIRV: psCode},
	}); err != nil {
		p.Release()
		return nil, fmt.Errorf("wgpu: compile pixel shader: %w", err)
	}

	var depth *hal.DepthStencilState
	if desc.DSVFormat != driver.FormatUnknown {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		compare := gputypes.CompareFunctionAlways
		if desc.DepthEnable {
			compare = compareFunction(desc.DepthFunc)
		}
		depth = &hal.DepthStencilState{
			Format:            gputypes.TextureFormatDepth24PlusStencil8,
			DepthWriteEnabled: desc.DepthEnable,
			DepthCompare:      compare,
			StencilFront:      keep,
			StencilBack:       keep,
		}
	}

	p.hal, err = d.hal.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "pipeline",
		Layout: rs.layout,
		Vertex: hal.VertexState{
			Module:     p.vs,
			EntryPoint: vertexEntryPoint,
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: uint64(desc.Stride),
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes:  attrs,
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     p.ps,
			EntryPoint: fragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    gputypes.TextureFormatRGBA8Unorm,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		DepthStencil: depth,
		Primitive: gputypes.PrimitiveState{
			Topology:  primitiveTopology(desc.Topology),
			FrontFace: frontFace(desc.FrontCCW),
			CullMode:  cullMode(desc.Cull),
		},
		Multisample: gputypes.MultisampleState{
			Count: uint32(max(desc.Samples.Count, 1)),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("wgpu: create render pipeline: %w", err)
	}
	return p, nil
}

// spirvWords reinterprets little-endian SPIR-V bytes as words.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V of %d bytes: %w", len(code), driver.ErrInvalidArg)
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}

func vertexAttributes(layout []driver.InputElement) ([]gputypes.VertexAttribute, error) {
	attrs := make([]gputypes.VertexAttribute, 0, len(layout))
	for i, e := range layout {
		var f gputypes.VertexFormat
		switch e.Format {
		case driver.FormatR32G32Float:
			f = gputypes.VertexFormatFloat32x2
		case driver.FormatR32G32B32Float:
			f = gputypes.VertexFormatFloat32x3
		case driver.FormatR32G32B32A32Float:
			f = gputypes.VertexFormatFloat32x4
		default:
			return nil, fmt.Errorf("wgpu: vertex attribute %s format %d: %w", e.Semantic, int(e.Format), driver.ErrInvalidArg)
		}
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         f,
			Offset:         uint64(e.Offset),
			ShaderLocation: uint32(i),
		})
	}
	return attrs, nil
}

func compareFunction(c driver.CompareFunc) gputypes.CompareFunction {
	switch c {
	case driver.CompareLess:
		return gputypes.CompareFunctionLess
	case driver.CompareLessEqual:
		return gputypes.CompareFunctionLessEqual
	default:
		return gputypes.CompareFunctionAlways
	}
}

func primitiveTopology(t driver.Topology) gputypes.PrimitiveTopology {
	if t == driver.TopologyTriangleStrip {
		return gputypes.PrimitiveTopologyTriangleStrip
	}
	return gputypes.PrimitiveTopologyTriangleList
}

func frontFace(ccw bool) gputypes.FrontFace {
	if ccw {
		return gputypes.FrontFaceCCW
	}
	return gputypes.FrontFaceCW
}

func cullMode(c driver.CullMode) gputypes.CullMode {
	switch c {
	case driver.CullFront:
		return gputypes.CullModeFront
	case driver.CullBack:
		return gputypes.CullModeBack
	default:
		return gputypes.CullModeNone
	}
}

func (d *device) CopyableFootprint(b driver.Buffer) driver.Footprint {
	return driver.BufferFootprint(b.Size())
}
