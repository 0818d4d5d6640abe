package frameloop

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/frameloop/driver"
)

type scene struct {
	rs   *RootSignature
	pso  *Pipeline
	mesh *Mesh
}

func newScene(t *testing.T, g *Graphics) *scene {
	t.Helper()
	rs, err := g.CreateRootSignature()
	if err != nil {
		t.Fatal(err)
	}
	pso, err := g.CreatePipeline(PipelineDesc{RootSignature: rs, Shaders: testShaders, Layout: TriangleLayout})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.ResetCommands(); err != nil {
		t.Fatal(err)
	}
	m, err := g.UploadMesh("triangle", redTriangle, uint32(LayoutStride(TriangleLayout)))
	if err != nil {
		t.Fatal(err)
	}
	if err := g.SubmitCommands(); err != nil {
		t.Fatal(err)
	}
	return &scene{rs: rs, pso: pso, mesh: m}
}

func (s *scene) draw(t *testing.T, g *Graphics) {
	t.Helper()
	if err := g.Clear(s.pso); err != nil {
		t.Fatal(err)
	}
	rec := g.Recorder()
	rec.SetRootSignature(s.rs)
	rec.SetVertexBuffers(0, s.mesh.VertexBufferView())
	rec.SetTopology(driver.TopologyTriangleList)
	rec.Draw(s.mesh.VertexCount(), 1, 0, 0)
	if err := g.Present(); err != nil {
		t.Fatal(err)
	}
}

func (s *scene) release(t *testing.T, g *Graphics) {
	t.Helper()
	if err := g.ReleaseMesh(s.mesh); err != nil {
		t.Fatal(err)
	}
	s.pso.Release()
	s.rs.Release()
}

func TestDrawTriangleFrame(t *testing.T) {
	fx := newFixture(t)
	defer fx.close(t)
	g := fx.g

	s := newScene(t, g)
	if s.mesh.VertexCount() != 3 {
		t.Fatalf("VertexCount() = %d, want 3", s.mesh.VertexCount())
	}
	s.draw(t, g)
	if err := g.WaitIdle(); err != nil {
		t.Fatal(err)
	}
	img := fx.frames.last()
	if img == nil {
		t.Fatal("no frame presented")
	}
	if c := img.RGBAAt(32, 24); c.R < 250 || c.G != 0 || c.B != 0 {
		t.Errorf("center = %v, want red", c)
	}
	if c := img.RGBAAt(1, 1); c.R != 0 || c.B != 255 || c.A != 255 {
		t.Errorf("corner = %v, want the blue background", c)
	}
	s.release(t, g)
}

func TestUploadMeshErrors(t *testing.T) {
	fx := newFixture(t)
	defer fx.close(t)
	g := fx.g

	if err := g.ResetCommands(); err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		data   []byte
		stride uint32
	}{
		{nil, 28},
		{redTriangle, 0},
		{redTriangle[:30], 28},
	} {
		if _, err := g.UploadMesh("bad", tc.data, tc.stride); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("UploadMesh(%d bytes, %d) = %v, want ErrInvalidSize", len(tc.data), tc.stride, err)
		}
	}
	if err := g.SubmitCommands(); err != nil {
		t.Fatal(err)
	}
}

func TestReleaseMeshPending(t *testing.T) {
	fx := newFixture(t)
	defer fx.close(t)
	g := fx.g

	if err := g.ResetCommands(); err != nil {
		t.Fatal(err)
	}
	m, err := g.UploadMesh("pending", redTriangle, 28)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.ReleaseMesh(m); !errors.Is(err, ErrResourcePending) {
		t.Fatalf("ReleaseMesh before submit = %v, want ErrResourcePending", err)
	}
	if err := g.SubmitCommands(); err != nil {
		t.Fatal(err)
	}
	if m.GPU.lastUse != g.Gate().Counter() {
		t.Errorf("lastUse = %d, want %d", m.GPU.lastUse, g.Gate().Counter())
	}
	if err := g.ReleaseMesh(m); err != nil {
		t.Fatal(err)
	}
	if m.GPU != nil || m.Upload != nil || m.CPU != nil {
		t.Error("mesh still holds its copies")
	}
	if err := g.ReleaseMesh(nil); err != nil {
		t.Errorf("ReleaseMesh(nil) = %v", err)
	}
}

func TestCreatePipelineErrors(t *testing.T) {
	fx := newFixture(t)
	defer fx.close(t)
	g := fx.g

	if _, err := g.CreatePipeline(PipelineDesc{Shaders: testShaders, Layout: TriangleLayout}); !errors.Is(err, driver.ErrInvalidArg) {
		t.Errorf("no root signature = %v, want ErrInvalidArg", err)
	}
	rs, err := g.CreateRootSignature()
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Release()
	if _, err := g.CreatePipeline(PipelineDesc{RootSignature: rs, Layout: TriangleLayout}); err == nil {
		t.Error("pipeline without shaders created")
	}
}

func TestReadShaders(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadShaders(dir); err == nil {
		t.Fatal("ReadShaders on an empty dir succeeded")
	}
	if err := os.WriteFile(filepath.Join(dir, VertexShaderFile), []byte("vs"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, PixelShaderFile), []byte("ps"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := ReadShaders(dir)
	if err != nil {
		t.Fatal(err)
	}
	if string(s.Vertex) != "vs" || string(s.Pixel) != "ps" {
		t.Errorf("shaders = %q/%q", s.Vertex, s.Pixel)
	}
}
