// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package drivertest

import (
	"github.com/gogpu/frameloop/driver"
)

// Adapter is an adapter double. CreateDevice fails with Err when it is set
// and otherwise delegates to Inner.
type Adapter struct {
	Name     string
	Software bool
	Err      error
	Inner    driver.Adapter

	log *Log
}

func (a *Adapter) Info() driver.AdapterInfo {
	var info driver.AdapterInfo
	if a.Inner != nil {
		info = a.Inner.Info()
	}
	info.Name = a.Name
	info.Software = a.Software
	return info
}

func (a *Adapter) CreateDevice(min driver.FeatureLevel) (driver.Device, error) {
	a.log.add("CreateDevice %s", a.Name)
	if a.Err != nil {
		return nil, a.Err
	}
	dev, err := a.Inner.CreateDevice(min)
	if err != nil {
		return nil, err
	}
	return &device{Device: dev, log: a.log}, nil
}

// Factory wraps another factory. Adapters returns Hardware; WarpAdapter
// returns the inner factory's software adapter. Devices created through
// either are wrapped so that object creation is recorded in Log.
type Factory struct {
	Inner    driver.Factory
	Hardware []*Adapter
	Log      Log
}

var _ driver.Factory = (*Factory)(nil)

// NewFactory returns a factory exposing one hardware adapter per error in
// errs; a nil error makes a working adapter backed by inner's software
// adapter.
func NewFactory(inner driver.Factory, errs ...error) *Factory {
	f := &Factory{Inner: inner}
	for i, err := range errs {
		a := &Adapter{Name: "hw" + string(rune('0'+i)), Err: err, log: &f.Log}
		if err == nil {
			if warp, werr := inner.WarpAdapter(); werr == nil {
				a.Inner = warp
			}
		}
		f.Hardware = append(f.Hardware, a)
	}
	return f
}

func (f *Factory) Name() string { return "test(" + f.Inner.Name() + ")" }

func (f *Factory) Adapters() ([]driver.Adapter, error) {
	f.Log.add("Adapters")
	out := make([]driver.Adapter, len(f.Hardware))
	for i, a := range f.Hardware {
		a.log = &f.Log
		out[i] = a
	}
	return out, nil
}

func (f *Factory) WarpAdapter() (driver.Adapter, error) {
	f.Log.add("WarpAdapter")
	warp, err := f.Inner.WarpAdapter()
	if err != nil {
		return nil, err
	}
	return &Adapter{Name: "warp", Software: true, Inner: warp, log: &f.Log}, nil
}

func (f *Factory) Release() {
	f.Log.add("Release factory")
	f.Inner.Release()
}

// device records object creation and forwards everything to the wrapped
// device.
type device struct {
	driver.Device
	log *Log
}

func (d *device) CreateCommandQueue() (driver.Queue, error) {
	d.log.add("CreateCommandQueue")
	return d.Device.CreateCommandQueue()
}

func (d *device) CreateCommandAllocator() (driver.CmdAllocator, error) {
	d.log.add("CreateCommandAllocator")
	return d.Device.CreateCommandAllocator()
}

func (d *device) CreateCommandList(alloc driver.CmdAllocator, pso driver.Pipeline) (driver.CmdList, error) {
	d.log.add("CreateCommandList")
	return d.Device.CreateCommandList(alloc, pso)
}

func (d *device) CreateFence(initial uint64) (driver.Fence, error) {
	d.log.add("CreateFence")
	return d.Device.CreateFence(initial)
}

func (d *device) CreateSwapchain(q driver.Queue, desc driver.SwapchainDesc) (driver.Swapchain, error) {
	d.log.add("CreateSwapchain")
	return d.Device.CreateSwapchain(q, desc)
}

func (d *device) Release() {
	d.log.add("Release device")
	d.Device.Release()
}
