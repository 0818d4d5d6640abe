package frameloop

import (
	"fmt"
)

// Mesh is vertex data kept in three places: a CPU copy, an Upload buffer
// and the Default buffer the GPU draws from.
//
// A mesh belongs to the scene that created it. It must be released with
// ReleaseMesh, which waits until no submitted work reads it.
type Mesh struct {
	Name   string
	CPU    []byte
	Upload *Buffer
	GPU    *Buffer
	Stride uint32
	Size   uint32
}

// NewMesh returns an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// VertexBufferView returns the view binding the GPU buffer.
func (m *Mesh) VertexBufferView() VertexBufferView {
	return VertexBufferView{Buffer: m.GPU, Size: m.Size, Stride: m.Stride}
}

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() int {
	if m.Stride == 0 {
		return 0
	}
	return int(m.Size / m.Stride)
}

// UploadMesh allocates the three copies of vertices and records the
// staging copy into the GPU buffer. The recorder must be open; the data
// reaches the GPU buffer with the next submission.
func (g *Graphics) UploadMesh(name string, vertices []byte, stride uint32) (*Mesh, error) {
	if stride == 0 || len(vertices) == 0 || len(vertices)%int(stride) != 0 {
		return nil, check(fmt.Errorf("upload mesh %q: %d bytes with stride %d: %w", name, len(vertices), stride, ErrInvalidSize))
	}
	size := uint64(len(vertices))
	m := NewMesh(name)
	m.Stride = stride
	m.Size = uint32(size)

	var err error
	if m.CPU, err = g.AllocateBlob(size); err != nil {
		return nil, err
	}
	copy(m.CPU, vertices)
	if m.Upload, err = g.allocate(name+" upload", Upload, size); err != nil {
		return nil, err
	}
	if m.GPU, err = g.allocate(name+" vertices", Default, size); err != nil {
		_ = g.Free(m.Upload)
		return nil, err
	}
	if err := g.Copy(m.CPU, size, m.Upload, m.GPU); err != nil {
		_ = g.Free(m.Upload)
		_ = g.Free(m.GPU)
		return nil, err
	}
	return m, nil
}

// ReleaseMesh releases the GPU copies of m once no submitted batch reads
// them. It refuses while the open recording references m, and after Close,
// which has already released them.
func (g *Graphics) ReleaseMesh(m *Mesh) error {
	if g.closed {
		return ErrClosed
	}
	if m == nil {
		return nil
	}
	bufs := []*Buffer{m.Upload, m.GPU}
	var last uint64
	for _, b := range bufs {
		if b == nil || b.buf == nil {
			continue
		}
		if b.recorded {
			return fmt.Errorf("release mesh %q: %w", m.Name, ErrResourcePending)
		}
		last = max(last, b.lastUse)
	}
	if last > 0 && g.gate != nil && g.gate.Completed() < last {
		if !g.gate.Wait() {
			g.lost = true
			return check(fmt.Errorf("release mesh %q: %w: %w", m.Name, ErrDeviceLost, g.gate.Err()))
		}
	}
	for _, b := range bufs {
		if err := g.Free(b); err != nil {
			return err
		}
	}
	m.Upload, m.GPU, m.CPU = nil, nil, nil
	return nil
}
