package frameloop

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/frameloop/driver"
)

// Shader file names read by ReadShaders.
const (
	VertexShaderFile = "vertex.spv"
	PixelShaderFile  = "pixel.spv"
)

// Shaders holds compiled shader byte code.
type Shaders struct {
	Vertex []byte
	Pixel  []byte
}

// ReadShaders reads the vertex and pixel shader binaries from dir.
func ReadShaders(dir string) (Shaders, error) {
	vs, err := os.ReadFile(filepath.Join(dir, VertexShaderFile))
	if err != nil {
		return Shaders{}, fmt.Errorf("read vertex shader: %w", err)
	}
	ps, err := os.ReadFile(filepath.Join(dir, PixelShaderFile))
	if err != nil {
		return Shaders{}, fmt.Errorf("read pixel shader: %w", err)
	}
	return Shaders{Vertex: vs, Pixel: ps}, nil
}

// InputElement describes one vertex attribute.
type InputElement = driver.InputElement

// TriangleLayout is a float3 POSITION followed by a float4 COLOR.
var TriangleLayout = []InputElement{
	{Semantic: "POSITION", Format: driver.FormatR32G32B32Float, Offset: 0},
	{Semantic: "COLOR", Format: driver.FormatR32G32B32A32Float, Offset: 12},
}

// LayoutStride returns the tightly packed stride of layout.
func LayoutStride(layout []InputElement) int {
	stride := 0
	for _, e := range layout {
		if end := e.Offset + e.Format.Size(); end > stride {
			stride = end
		}
	}
	return stride
}

// RootSignature is the binding layout of a pipeline.
type RootSignature struct {
	rs driver.RootSignature
}

// Release releases the root signature.
func (r *RootSignature) Release() {
	if r != nil && r.rs != nil {
		r.rs.Release()
		r.rs = nil
	}
}

// Pipeline is a compiled graphics pipeline.
type Pipeline struct {
	pso driver.Pipeline
}

// Release releases the pipeline.
func (p *Pipeline) Release() {
	if p != nil && p.pso != nil {
		p.pso.Release()
		p.pso = nil
	}
}

func (p *Pipeline) handle() driver.Pipeline {
	if p == nil {
		return nil
	}
	return p.pso
}

// CreateRootSignature creates an empty root signature that allows input
// assembler layouts.
func (g *Graphics) CreateRootSignature() (*RootSignature, error) {
	if err := g.usable(); err != nil {
		return nil, err
	}
	rs, err := g.device.CreateRootSignature(driver.RootSignatureDesc{Flags: driver.RootSignatureAllowInputLayout})
	if err != nil {
		return nil, check(err)
	}
	return &RootSignature{rs: rs}, nil
}

// PipelineDesc describes a pipeline. Zero Stride means LayoutStride.
type PipelineDesc struct {
	RootSignature *RootSignature
	Shaders       Shaders
	Layout        []InputElement
	Stride        int
	Wireframe     bool
}

// CreatePipeline creates a pipeline drawing solid, back-culled triangle
// lists into the surface with a less-than depth test.
func (g *Graphics) CreatePipeline(desc PipelineDesc) (*Pipeline, error) {
	if err := g.usable(); err != nil {
		return nil, err
	}
	if desc.RootSignature == nil || desc.RootSignature.rs == nil {
		return nil, check(fmt.Errorf("create pipeline: no root signature: %w", driver.ErrInvalidArg))
	}
	stride := desc.Stride
	if stride == 0 {
		stride = LayoutStride(desc.Layout)
	}
	fill := driver.FillSolid
	if desc.Wireframe {
		fill = driver.FillWireframe
	}
	pso, err := g.device.CreatePipeline(&driver.PipelineDesc{
		RootSignature: desc.RootSignature.rs,
		VS:            desc.Shaders.Vertex,
		PS:            desc.Shaders.Pixel,
		InputLayout:   desc.Layout,
		Stride:        stride,
		Fill:          fill,
		Cull:          driver.CullBack,
		DepthEnable:   true,
		DepthFunc:     driver.CompareLess,
		Topology:      driver.TopologyTriangleList,
		RTVFormat:     driver.FormatRGBA8Unorm,
		DSVFormat:     driver.FormatD24UnormS8Uint,
		Samples:       g.opts.samples,
	})
	if err != nil {
		return nil, check(err)
	}
	return &Pipeline{pso: pso}, nil
}
