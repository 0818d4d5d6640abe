// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/frameloop/driver"
)

// PresentFunc receives every presented image. The image is a copy owned by
// the callee.
type PresentFunc func(index int, img *image.RGBA)

// Option configures a Factory.
type Option func(*Factory)

// WithPresentFunc sets the callback invoked on every Swapchain.Present.
func WithPresentFunc(fn PresentFunc) Option {
	return func(f *Factory) { f.present = fn }
}

// WithLatency delays the execution of every batch on the GPU timeline.
func WithLatency(d time.Duration) Option {
	return func(f *Factory) { f.latency = d }
}

// WithBudget limits the device memory of devices created by the factory.
// Allocations beyond it fail with driver.ErrNoDeviceMemory. Zero means
// unlimited.
func WithBudget(bytes uint64) Option {
	return func(f *Factory) { f.budget = bytes }
}

// WithMaxFeatureLevel caps the feature level of the software adapter.
func WithMaxFeatureLevel(l driver.FeatureLevel) Option {
	return func(f *Factory) { f.maxLevel = l }
}

// WithOutput attaches a display description to the adapter.
func WithOutput(o driver.OutputInfo) Option {
	return func(f *Factory) { f.output = &o }
}

// WithDebug logs every violation at warn level as it happens.
func WithDebug(on bool) Option {
	return func(f *Factory) { f.debug = on }
}

// Factory creates software devices. It also collects the validation and
// release history of everything created through it.
type Factory struct {
	present  PresentFunc
	latency  time.Duration
	budget   uint64
	maxLevel driver.FeatureLevel
	output   *driver.OutputInfo
	debug    bool

	devices atomic.Int64
	usage   atomic.Uint64

	mu         sync.Mutex
	violations []error
	releases   []string
	released   bool
}

var _ driver.Factory = (*Factory)(nil)

// NewFactory returns a software factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{maxLevel: driver.FeatureLevel12_1}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns "soft".
func (f *Factory) Name() string { return "soft" }

// Adapters returns no hardware adapters.
func (f *Factory) Adapters() ([]driver.Adapter, error) {
	return nil, nil
}

// WarpAdapter returns the software adapter.
func (f *Factory) WarpAdapter() (driver.Adapter, error) {
	return &adapter{f: f}, nil
}

// Release releases the factory. Releasing it while devices are alive is a
// violation.
func (f *Factory) Release() {
	if n := f.devices.Load(); n > 0 {
		f.violate(fmt.Errorf("soft: factory released with %d live devices: %w", n, driver.ErrInvalidArg))
	}
	f.mu.Lock()
	f.released = true
	f.mu.Unlock()
	f.logRelease("factory")
}

// Violations returns every misuse detected so far.
func (f *Factory) Violations() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.violations...)
}

// Releases returns the kinds of released objects, in release order.
func (f *Factory) Releases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.releases...)
}

func (f *Factory) violate(err error) {
	f.mu.Lock()
	f.violations = append(f.violations, err)
	f.mu.Unlock()
	if f.debug {
		driver.Logger().Warn("soft: validation", "error", err)
	}
}

func (f *Factory) logRelease(kind string) {
	f.mu.Lock()
	f.releases = append(f.releases, kind)
	f.mu.Unlock()
}

// adapter is the software adapter.
type adapter struct {
	f *Factory
}

func (a *adapter) Info() driver.AdapterInfo {
	return driver.AdapterInfo{
		Name:         "Soft Rasterizer",
		Software:     true,
		Budget:       a.f.budget,
		CurrentUsage: a.f.usage.Load(),
		Output:       a.f.output,
	}
}

func (a *adapter) CreateDevice(min driver.FeatureLevel) (driver.Device, error) {
	if min > a.f.maxLevel {
		return nil, fmt.Errorf("soft: feature level %s above %s: %w", min, a.f.maxLevel, driver.ErrNoDevice)
	}
	a.f.devices.Add(1)
	d := &device{f: a.f, level: a.f.maxLevel}
	d.nextAddr.Store(0x10000)
	driver.Logger().Debug("soft: device created", "level", d.level.String())
	return d, nil
}
