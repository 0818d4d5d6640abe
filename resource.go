package frameloop

import (
	"fmt"

	"github.com/gogpu/frameloop/driver"
)

// ResourceState is the access mode a GPU resource is in.
type ResourceState = driver.State

// Resource states.
const (
	StateCommon       = driver.StateCommon
	StateRenderTarget = driver.StateRenderTarget
	StatePresent      = driver.StatePresent
	StateCopyDest     = driver.StateCopyDest
	StateGenericRead  = driver.StateGenericRead
	StateDepthWrite   = driver.StateDepthWrite
)

// Placement is the memory class of a buffer.
type Placement int

const (
	// Default is GPU-local memory. It is filled through an Upload buffer.
	Default Placement = iota
	// Upload is CPU-writable memory read by the GPU. Upload buffers stay
	// in StateGenericRead for their whole life.
	Upload
)

func (p Placement) String() string {
	switch p {
	case Default:
		return "Default"
	case Upload:
		return "Upload"
	default:
		return fmt.Sprintf("Placement(%d)", int(p))
	}
}

func (p Placement) heap() driver.HeapType {
	if p == Upload {
		return driver.HeapUpload
	}
	return driver.HeapDefault
}

// Resource is a buffer or image whose state is tracked by frameloop.
type Resource interface {
	Name() string
	State() ResourceState
	tracked() (driver.Resource, *ResourceState)
}

// Buffer is a GPU buffer with an explicit state tag.
type Buffer struct {
	name      string
	buf       driver.Buffer
	placement Placement
	state     ResourceState

	// recorded is set while the current recording references the buffer.
	recorded bool
	// lastUse is the gate value of the last submitted batch using it.
	lastUse uint64
}

// Name returns the debug name of the buffer.
func (b *Buffer) Name() string { return b.name }

// State returns the state the buffer was last transitioned to.
func (b *Buffer) State() ResourceState { return b.state }

// Placement returns the memory class of the buffer.
func (b *Buffer) Placement() Placement { return b.placement }

// Size returns the size of the buffer in bytes.
func (b *Buffer) Size() uint64 { return b.buf.Size() }

// Driver returns the driver buffer, or nil once the buffer is released.
func (b *Buffer) Driver() driver.Buffer { return b.buf }

// GPUAddress returns the GPU virtual address of the buffer.
func (b *Buffer) GPUAddress() uint64 { return b.buf.GPUAddress() }

func (b *Buffer) tracked() (driver.Resource, *ResourceState) { return b.buf, &b.state }

// Image is a surface or depth/stencil image with an explicit state tag.
type Image struct {
	name  string
	img   driver.Image
	state ResourceState
}

// Name returns the debug name of the image.
func (i *Image) Name() string { return i.name }

// State returns the state the image was last transitioned to.
func (i *Image) State() ResourceState { return i.state }

// Driver returns the driver image.
func (i *Image) Driver() driver.Image { return i.img }

func (i *Image) tracked() (driver.Resource, *ResourceState) { return i.img, &i.state }
