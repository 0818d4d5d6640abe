package commands

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/gogpu/frameloop"
	"github.com/gogpu/frameloop/driver"
	"github.com/gogpu/frameloop/engine"
	"github.com/gogpu/frameloop/window"
)

// vertex is a TriangleLayout vertex: position then color.
type vertex [7]float32

var triangleVertices = []vertex{
	{0, 0.5, 0, 1, 0, 0, 1},
	{0.5, -0.5, 0, 1, 0.5, 0, 1},
	{-0.5, -0.5, 0, 1, 1, 0, 1},
}

func vertexData(vs []vertex) []byte {
	b := make([]byte, 0, len(vs)*len(vertex{})*4)
	for _, v := range vs {
		for _, f := range v {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
		}
	}
	return b
}

// triangle draws one mesh per frame. Escape closes the window and V
// toggles vsync.
type triangle struct {
	engine.Base

	shaders frameloop.Shaders
	rs      *frameloop.RootSignature
	pso     *frameloop.Pipeline
	mesh    *frameloop.Mesh
}

func (t *triangle) Init(ctx *engine.Context) error {
	g := ctx.Graphics
	rs, err := g.CreateRootSignature()
	if err != nil {
		return err
	}
	t.rs = rs
	pso, err := g.CreatePipeline(frameloop.PipelineDesc{
		RootSignature: rs,
		Shaders:       t.shaders,
		Layout:        frameloop.TriangleLayout,
	})
	if err != nil {
		return err
	}
	t.pso = pso

	if err := g.ResetCommands(); err != nil {
		return err
	}
	stride := uint32(frameloop.LayoutStride(frameloop.TriangleLayout))
	mesh, err := g.UploadMesh("triangle", vertexData(triangleVertices), stride)
	if err != nil {
		return err
	}
	t.mesh = mesh
	return g.SubmitCommands()
}

func (t *triangle) Update(ctx *engine.Context) error {
	if ctx.Input.KeyPress(window.KeyEscape) {
		ctx.Window.Close()
	}
	if ctx.Input.KeyPress(window.KeyV) {
		ctx.Graphics.SetVSync(!ctx.Graphics.VSync())
	}
	return nil
}

func (t *triangle) Draw(ctx *engine.Context) error {
	g := ctx.Graphics
	if err := g.Clear(t.pso); err != nil {
		return err
	}
	rec := g.Recorder()
	rec.SetRootSignature(t.rs)
	rec.SetVertexBuffers(0, t.mesh.VertexBufferView())
	rec.SetTopology(driver.TopologyTriangleList)
	rec.Draw(t.mesh.VertexCount(), 1, 0, 0)
	return g.Present()
}

// Finalize releases what Init created, tolerating a partial Init.
func (t *triangle) Finalize(ctx *engine.Context) error {
	var errs []error
	if t.mesh != nil || t.pso != nil {
		errs = append(errs, ctx.Graphics.WaitIdle())
	}
	if t.mesh != nil {
		errs = append(errs, ctx.Graphics.ReleaseMesh(t.mesh))
	}
	if t.pso != nil {
		t.pso.Release()
	}
	if t.rs != nil {
		t.rs.Release()
	}
	return errors.Join(errs...)
}
