// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "fmt"

// State is the access mode a resource is in. A resource must be
// transitioned with a Barrier before it is used in a different role.
type State int

// Resource states.
const (
	StateCommon State = iota
	StateRenderTarget
	StatePresent
	StateCopyDest
	StateGenericRead
	StateDepthWrite
)

func (s State) String() string {
	switch s {
	case StateCommon:
		return "Common"
	case StateRenderTarget:
		return "RenderTarget"
	case StatePresent:
		return "Present"
	case StateCopyDest:
		return "CopyDest"
	case StateGenericRead:
		return "GenericRead"
	case StateDepthWrite:
		return "DepthWrite"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Barrier is a state transition of a single resource.
// Before must match the state the resource is actually in.
type Barrier struct {
	Resource Resource
	Before   State
	After    State
}

// HeapType is the memory placement of a buffer.
type HeapType int

const (
	// HeapDefault is GPU-local memory, not visible to the CPU.
	HeapDefault HeapType = iota
	// HeapUpload is CPU-writable, GPU-readable memory.
	HeapUpload
)

func (h HeapType) String() string {
	switch h {
	case HeapDefault:
		return "Default"
	case HeapUpload:
		return "Upload"
	default:
		return fmt.Sprintf("HeapType(%d)", int(h))
	}
}
