// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the driver interfaces on top of the gogpu/wgpu
// hardware abstraction layer.
//
// Command lists are recorded on the CPU and encoded into a hal command
// encoder when executed. Consecutive clears and draws against the same
// targets are merged into one render pass; clears become load operations.
// Fences are backed by hal fences and tracked by a goroutine per fence
// that waits on the device and wakes CPU events.
//
// Swapchains are headless: every present reads the current image back and
// hands it to a PresentFunc.
//
// The software adapter is provided by a fallback factory, usually
// driver/soft:
//
//	f, err := wgpu.NewFactory(wgpu.WithFallback(soft.NewFactory()))
package wgpu
