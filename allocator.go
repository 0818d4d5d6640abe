package frameloop

import (
	"fmt"
	"slices"
)

// Allocate creates a buffer of size bytes. Default buffers start in
// StateCommon, Upload buffers in StateGenericRead.
func (g *Graphics) Allocate(class Placement, size uint64) (*Buffer, error) {
	return g.allocate("", class, size)
}

func (g *Graphics) allocate(name string, class Placement, size uint64) (*Buffer, error) {
	if err := g.usable(); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, check(fmt.Errorf("allocate %s buffer: %w", class, ErrInvalidSize))
	}
	if class != Default && class != Upload {
		return nil, check(fmt.Errorf("allocate %s buffer: %w", class, ErrWrongPlacement))
	}
	state := StateCommon
	if class == Upload {
		state = StateGenericRead
	}
	buf, err := g.device.CreateBuffer(class.heap(), size, state)
	if err != nil {
		return nil, check(fmt.Errorf("allocate %d byte %s buffer: %w", size, class, err))
	}
	if name == "" {
		name = fmt.Sprintf("%s buffer", class)
	}
	slogger().Debug("frameloop: buffer allocated", "name", name, "placement", class.String(), "size", size)
	b := &Buffer{name: name, buf: buf, placement: class, state: state}
	g.buffers = append(g.buffers, b)
	return b, nil
}

// AllocateBlob returns CPU memory of size bytes, used as the CPU copy of
// mesh data.
func (g *Graphics) AllocateBlob(size uint64) ([]byte, error) {
	if size == 0 {
		return nil, check(fmt.Errorf("allocate blob: %w", ErrInvalidSize))
	}
	return make([]byte, size), nil
}

// Free releases a buffer. The caller must make sure the GPU no longer
// uses it; ReleaseMesh does this for mesh buffers. Close releases every
// buffer still live, so Free fails with ErrClosed afterwards.
func (g *Graphics) Free(b *Buffer) error {
	if g.closed {
		return ErrClosed
	}
	if b == nil || b.buf == nil {
		return nil
	}
	if b.recorded {
		return fmt.Errorf("free %s: %w", b.name, ErrResourcePending)
	}
	b.buf.Release()
	b.buf = nil
	g.buffers = slices.DeleteFunc(g.buffers, func(x *Buffer) bool { return x == b })
	return nil
}
