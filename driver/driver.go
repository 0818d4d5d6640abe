// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package driver defines the backend-neutral GPU interfaces used by
// frameloop.
//
// The interfaces follow an explicit, D3D12-like model: the caller records
// command lists against an allocator, executes them on a queue, signals a
// fence with a monotonically increasing value and waits for the GPU to reach
// it. Resources carry a state that must be transitioned with explicit
// barriers before being used in a different role.
//
// Two implementations are provided:
//
//   - driver/soft: a CPU implementation with an asynchronous GPU timeline.
//     It is also the software fallback adapter.
//   - driver/wgpu: a hardware implementation on top of gogpu/wgpu's HAL.
package driver

import "fmt"

// Releaser is implemented by every object created through a Device.
// Release must be called at most once.
type Releaser interface {
	Release()
}

// Factory enumerates adapters. It is the first object created and the last
// one released.
type Factory interface {
	Releaser

	// Name identifies the implementation (e.g. "soft", "wgpu").
	Name() string

	// Adapters returns the hardware adapters, best first. An empty slice
	// is not an error.
	Adapters() ([]Adapter, error)

	// WarpAdapter returns the software fallback adapter.
	WarpAdapter() (Adapter, error)
}

// Adapter is a physical or software GPU.
type Adapter interface {
	// Info describes the adapter. It never fails; unknown fields are zero.
	Info() AdapterInfo

	// CreateDevice creates a logical device supporting at least min.
	CreateDevice(min FeatureLevel) (Device, error)
}

// AdapterInfo describes an adapter for diagnostics.
type AdapterInfo struct {
	Name     string
	Software bool

	// Video memory in bytes. Zero when the backend does not report it.
	Budget       uint64
	CurrentUsage uint64

	// Output is the first attached display, if known.
	Output *OutputInfo
}

// OutputInfo describes a display attached to an adapter.
type OutputInfo struct {
	Name      string
	Width     int
	Height    int
	RefreshHz int
}

// FeatureLevel is the capability tier of a device.
type FeatureLevel int

// Feature levels, lowest first.
const (
	FeatureLevelUnknown FeatureLevel = iota
	FeatureLevel9_1
	FeatureLevel9_2
	FeatureLevel9_3
	FeatureLevel10_0
	FeatureLevel10_1
	FeatureLevel11_0
	FeatureLevel11_1
	FeatureLevel12_0
	FeatureLevel12_1
)

var featureLevelNames = [...]string{
	"unknown", "9_1", "9_2", "9_3", "10_0", "10_1", "11_0", "11_1", "12_0", "12_1",
}

// String returns the level in "major_minor" form.
func (l FeatureLevel) String() string {
	if l < 0 || int(l) >= len(featureLevelNames) {
		return fmt.Sprintf("FeatureLevel(%d)", int(l))
	}
	return featureLevelNames[l]
}
