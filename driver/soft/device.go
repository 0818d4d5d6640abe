// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/gogpu/frameloop/driver"
)

// device is a software logical device.
type device struct {
	f     *Factory
	level driver.FeatureLevel

	live     atomic.Int64
	nextAddr atomic.Uint64
	removed  atomic.Bool
	released atomic.Bool
}

var _ driver.Device = (*device)(nil)

// Remove marks the device as removed. Every later Signal and Present fails
// with driver.ErrDeviceRemoved. It is meant for tests that exercise the
// device-lost path.
func Remove(d driver.Device) {
	if sd, ok := d.(*device); ok {
		sd.removed.Store(true)
	}
}

func (d *device) MaxFeatureLevel() driver.FeatureLevel { return d.level }

func (d *device) Release() {
	if !d.released.CompareAndSwap(false, true) {
		d.f.violate(fmt.Errorf("soft: device released twice: %w", driver.ErrInvalidArg))
		return
	}
	if n := d.live.Load(); n > 0 {
		d.f.violate(fmt.Errorf("soft: device released with %d live objects: %w", n, driver.ErrInvalidArg))
	}
	d.f.devices.Add(-1)
	d.f.logRelease("device")
}

// child is embedded by every object created from a device. It keeps the
// live count and the release log.
type child struct {
	dev      *device
	kind     string
	released bool
}

func (d *device) newChild(kind string) child {
	d.live.Add(1)
	return child{dev: d, kind: kind}
}

// release reports whether this call released the object.
func (c *child) release() bool {
	if c.released {
		c.dev.f.violate(fmt.Errorf("soft: %s released twice: %w", c.kind, driver.ErrInvalidArg))
		return false
	}
	c.released = true
	c.dev.live.Add(-1)
	c.dev.f.logRelease(c.kind)
	return true
}

func (d *device) alloc(size uint64) error {
	if b := d.f.budget; b > 0 && d.f.usage.Load()+size > b {
		return fmt.Errorf("soft: %d bytes over budget of %d: %w", size, b, driver.ErrNoDeviceMemory)
	}
	d.f.usage.Add(size)
	return nil
}

func (d *device) free(size uint64) {
	d.f.usage.Add(^(size - 1))
}

func (d *device) CreateCommandQueue() (driver.Queue, error) {
	q := &queue{
		child: d.newChild("queue"),
		ops:   make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go q.run()
	return q, nil
}

func (d *device) CreateCommandAllocator() (driver.CmdAllocator, error) {
	return &cmdAllocator{child: d.newChild("allocator")}, nil
}

func (d *device) CreateCommandList(alloc driver.CmdAllocator, pso driver.Pipeline) (driver.CmdList, error) {
	a, ok := alloc.(*cmdAllocator)
	if !ok {
		return nil, fmt.Errorf("soft: foreign command allocator: %w", driver.ErrInvalidArg)
	}
	p, err := asPipeline(pso)
	if err != nil {
		return nil, err
	}
	l := &cmdList{child: d.newChild("cmdlist")}
	l.open(a, p)
	return l, nil
}

func (d *device) CreateFence(initial uint64) (driver.Fence, error) {
	f := &fence{child: d.newChild("fence")}
	f.value.Store(initial)
	return f, nil
}

func (d *device) CreateBuffer(heap driver.HeapType, size uint64, initial driver.State) (driver.Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("soft: zero-sized buffer: %w", driver.ErrInvalidArg)
	}
	if heap == driver.HeapUpload && initial != driver.StateGenericRead {
		return nil, fmt.Errorf("soft: upload buffers must start in %s: %w", driver.StateGenericRead, driver.ErrInvalidArg)
	}
	if err := d.alloc(size); err != nil {
		return nil, err
	}
	addr := d.nextAddr.Add(alignAddr(size)) - alignAddr(size)
	return &buffer{
		resource: resource{child: d.newChild("buffer"), state: initial},
		heap:     heap,
		data:     make([]byte, size),
		addr:     addr,
	}, nil
}

func alignAddr(n uint64) uint64 {
	const a = 1 << 16
	return (n + a - 1) &^ (a - 1)
}

func (d *device) CreateDepthStencil(width, height int, samples driver.SampleDesc) (driver.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("soft: depth image %dx%d: %w", width, height, driver.ErrInvalidArg)
	}
	size := uint64(width) * uint64(height) * 4
	if err := d.alloc(size); err != nil {
		return nil, err
	}
	img := newDepthImage(d.newChild("depth"), width, height)
	img.size = size
	return img, nil
}

func (d *device) CreateSwapchain(q driver.Queue, desc driver.SwapchainDesc) (driver.Swapchain, error) {
	sq, ok := q.(*queue)
	if !ok {
		return nil, fmt.Errorf("soft: foreign queue: %w", driver.ErrInvalidArg)
	}
	if desc.BufferCount < 2 {
		return nil, fmt.Errorf("soft: swapchain needs at least 2 buffers, got %d: %w", desc.BufferCount, driver.ErrInvalidArg)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("soft: swapchain %dx%d: %w", desc.Width, desc.Height, driver.ErrInvalidArg)
	}
	if desc.Format != driver.FormatRGBA8Unorm {
		return nil, fmt.Errorf("soft: swapchain format %d: %w", desc.Format, driver.ErrUnsupported)
	}
	sc := &swapchain{
		child: d.newChild("swapchain"),
		q:     sq,
		desc:  desc,
	}
	for i := 0; i < desc.BufferCount; i++ {
		img := newColorImage(d.newChild("backbuffer"), desc.Width, desc.Height)
		img.state = driver.StatePresent
		sc.images = append(sc.images, img)
	}
	return sc, nil
}

func (d *device) CreateDescriptorHeap(kind driver.DescriptorKind, n int) (driver.DescriptorHeap, error) {
	if n <= 0 {
		return nil, fmt.Errorf("soft: descriptor heap of %d: %w", n, driver.ErrInvalidArg)
	}
	name := "rtv-heap"
	if kind == driver.DescriptorDepthStencil {
		name = "dsv-heap"
	}
	return &descriptorHeap{
		child: d.newChild(name),
		kind:  kind,
		slots: make([]*imageRes, n),
	}, nil
}

func (d *device) CreateRootSignature(desc driver.RootSignatureDesc) (driver.RootSignature, error) {
	return &rootSignature{child: d.newChild("rootsig"), desc: desc}, nil
}

func (d *device) CreatePipeline(desc *driver.PipelineDesc) (driver.Pipeline, error) {
	if desc == nil {
		return nil, fmt.Errorf("soft: nil pipeline description: %w", driver.ErrInvalidArg)
	}
	if _, ok := desc.RootSignature.(*rootSignature); !ok {
		return nil, fmt.Errorf("soft: pipeline without root signature: %w", driver.ErrInvalidArg)
	}
	if len(desc.VS) == 0 || len(desc.PS) == 0 {
		return nil, fmt.Errorf("soft: pipeline without shader code: %w", driver.ErrInvalidArg)
	}
	p := &pipeline{desc: *desc, position: -1, color: -1}
	p.desc.InputLayout = append([]driver.InputElement(nil), desc.InputLayout...)
	for i, e := range p.desc.InputLayout {
		switch e.Semantic {
		case "POSITION":
			p.position = i
		case "COLOR":
			p.color = i
		}
	}
	if p.position < 0 {
		return nil, fmt.Errorf("soft: input layout has no POSITION: %w", driver.ErrInvalidArg)
	}
	p.child = d.newChild("pipeline")
	return p, nil
}

func (d *device) CopyableFootprint(b driver.Buffer) driver.Footprint {
	return driver.BufferFootprint(b.Size())
}

// Contents returns a copy of the contents of a soft buffer. The caller must
// have waited for every batch writing it.
func Contents(b driver.Buffer) ([]byte, error) {
	sb, ok := b.(*buffer)
	if !ok {
		return nil, fmt.Errorf("soft: foreign buffer: %w", driver.ErrInvalidArg)
	}
	return append([]byte(nil), sb.data...), nil
}

// Pixels returns a copy of a soft color image.
func Pixels(img driver.Image) (*image.RGBA, error) {
	si, ok := img.(*imageRes)
	if !ok || si.rgba == nil {
		return nil, fmt.Errorf("soft: not a color image: %w", driver.ErrInvalidArg)
	}
	return cloneRGBA(si.rgba), nil
}

// StateOf returns the state a soft resource is in on the GPU timeline.
func StateOf(r driver.Resource) (driver.State, bool) {
	s, ok := r.(stateful)
	if !ok {
		return 0, false
	}
	return s.res().state, true
}
