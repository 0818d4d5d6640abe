// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan backend

	"github.com/gogpu/frameloop/driver"
)

// PresentFunc receives every presented image. The image is owned by the
// callee.
type PresentFunc func(index int, img *image.RGBA)

// Option configures a Factory.
type Option func(*Factory)

// WithBackend selects the hal backend. The default is Vulkan.
func WithBackend(b gputypes.Backend) Option {
	return func(f *Factory) { f.backend = b }
}

// WithInstance uses an existing hal instance instead of creating one. The
// factory does not destroy it.
func WithInstance(inst hal.Instance) Option {
	return func(f *Factory) { f.instance = inst }
}

// WithFallback sets the factory whose software adapter is returned by
// WarpAdapter. It is released together with the factory.
func WithFallback(fb driver.Factory) Option {
	return func(f *Factory) { f.fallback = fb }
}

// WithPresentFunc sets the callback invoked on every Swapchain.Present.
func WithPresentFunc(fn PresentFunc) Option {
	return func(f *Factory) { f.present = fn }
}

// WithWaitTimeout bounds a single device wait on a fence. A wait that
// times out is retried; one that fails marks the device removed.
func WithWaitTimeout(d time.Duration) Option {
	return func(f *Factory) { f.waitTimeout = d }
}

const defaultWaitTimeout = 5 * time.Second

// Factory enumerates hal adapters.
type Factory struct {
	backend     gputypes.Backend
	instance    hal.Instance
	ownInstance bool
	fallback    driver.Factory
	present     PresentFunc
	waitTimeout time.Duration

	// host is set by FromProvider.
	host *hostAdapter

	mu         sync.Mutex
	violations []error
}

var _ driver.Factory = (*Factory)(nil)

// NewFactory creates a hal instance for the configured backend.
func NewFactory(opts ...Option) (*Factory, error) {
	f := newFactory(opts)
	if f.instance != nil {
		return f, nil
	}
	backend, ok := hal.GetBackend(f.backend)
	if !ok {
		return nil, fmt.Errorf("wgpu: backend %v not available: %w", f.backend, driver.ErrUnsupported)
	}
	inst, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	f.instance = inst
	f.ownInstance = true
	return f, nil
}

// FromProvider returns a factory with a single adapter wrapping the device
// of a host application. The provider must also implement HalDevice() any
// and HalQueue() any returning hal.Device and hal.Queue. The device is not
// destroyed when released.
func FromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Factory, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types: %w", driver.ErrUnsupported)
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not a hal.Device: %w", driver.ErrInvalidArg)
	}
	q, ok := hp.HalQueue().(hal.Queue)
	if !ok || q == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not a hal.Queue: %w", driver.ErrInvalidArg)
	}
	f := newFactory(opts)
	f.host = &hostAdapter{f: f, device: dev, queue: q}
	driver.Logger().Debug("wgpu: adopted host device", "surface_format", p.SurfaceFormat())
	return f, nil
}

func newFactory(opts []Option) *Factory {
	f := &Factory{
		backend:     gputypes.BackendVulkan,
		waitTimeout: defaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns "wgpu".
func (f *Factory) Name() string { return "wgpu" }

// Adapters returns the hal adapters, discrete GPUs first, then integrated
// GPUs, then the rest in enumeration order.
func (f *Factory) Adapters() ([]driver.Adapter, error) {
	if f.host != nil {
		return []driver.Adapter{f.host}, nil
	}
	if f.instance == nil {
		return nil, nil
	}
	exposed := f.instance.EnumerateAdapters(nil)
	sort.SliceStable(exposed, func(i, j int) bool {
		return adapterRank(exposed[i].Info.DeviceType) < adapterRank(exposed[j].Info.DeviceType)
	})
	adapters := make([]driver.Adapter, 0, len(exposed))
	for i := range exposed {
		adapters = append(adapters, &adapter{f: f, exposed: exposed[i]})
	}
	return adapters, nil
}

func adapterRank(t gputypes.DeviceType) int {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return 0
	case gputypes.DeviceTypeIntegratedGPU:
		return 1
	default:
		return 2
	}
}

// WarpAdapter returns the software adapter of the fallback factory.
func (f *Factory) WarpAdapter() (driver.Adapter, error) {
	if f.fallback == nil {
		return nil, fmt.Errorf("wgpu: no software fallback: %w", driver.ErrUnsupported)
	}
	return f.fallback.WarpAdapter()
}

// Release destroys the hal instance if the factory created it, then
// releases the fallback factory.
func (f *Factory) Release() {
	if f.ownInstance && f.instance != nil {
		f.instance.Destroy()
		f.instance = nil
	}
	if f.fallback != nil {
		f.fallback.Release()
	}
}

// Violations returns the misuse detected while executing command lists.
func (f *Factory) Violations() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.violations...)
}

func (f *Factory) violate(err error) {
	f.mu.Lock()
	f.violations = append(f.violations, err)
	f.mu.Unlock()
	driver.Logger().Warn("wgpu: validation", "error", err)
}

// deviceLevel is the feature level reported by every hal device: the
// WebGPU core feature set matches it.
const deviceLevel = driver.FeatureLevel11_0

type adapter struct {
	f       *Factory
	exposed hal.ExposedAdapter
}

func (a *adapter) Info() driver.AdapterInfo {
	t := a.exposed.Info.DeviceType
	return driver.AdapterInfo{
		Name:     a.exposed.Info.Name,
		Software: t != gputypes.DeviceTypeDiscreteGPU && t != gputypes.DeviceTypeIntegratedGPU,
	}
}

func (a *adapter) CreateDevice(min driver.FeatureLevel) (driver.Device, error) {
	if min > deviceLevel {
		return nil, fmt.Errorf("wgpu: feature level %s above %s: %w", min, deviceLevel, driver.ErrNoDevice)
	}
	open, err := a.exposed.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("wgpu: open %s: %v: %w", a.exposed.Info.Name, err, driver.ErrNoDevice)
	}
	driver.Logger().Debug("wgpu: device created", "adapter", a.exposed.Info.Name)
	return newDevice(a.f, open.Device, open.Queue, true), nil
}

type hostAdapter struct {
	f      *Factory
	device hal.Device
	queue  hal.Queue
}

func (a *hostAdapter) Info() driver.AdapterInfo {
	return driver.AdapterInfo{Name: "host device"}
}

func (a *hostAdapter) CreateDevice(min driver.FeatureLevel) (driver.Device, error) {
	if min > deviceLevel {
		return nil, fmt.Errorf("wgpu: feature level %s above %s: %w", min, deviceLevel, driver.ErrNoDevice)
	}
	return newDevice(a.f, a.device, a.queue, false), nil
}
