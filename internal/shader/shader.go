// Package shader compiles the WGSL sources of the demo pipeline to the
// SPIR-V binaries read by frameloop.ReadShaders.
package shader

import (
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/naga"

	"github.com/gogpu/frameloop"
)

// Source file names, one entry point each.
const (
	VertexSource = "vertex.wgsl"
	PixelSource  = "pixel.wgsl"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ErrNotSPIRV is returned when the compiler output is not a SPIR-V module.
var ErrNotSPIRV = errors.New("shader: output is not SPIR-V")

//go:embed vertex.wgsl pixel.wgsl
var builtin embed.FS

// Compile compiles WGSL source to little-endian SPIR-V bytes.
func Compile(src string) ([]byte, error) {
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}
	if len(spirv) < 4 || len(spirv)%4 != 0 || binary.LittleEndian.Uint32(spirv) != spirvMagic {
		return nil, fmt.Errorf("shader: %d bytes: %w", len(spirv), ErrNotSPIRV)
	}
	return spirv, nil
}

// Triangle compiles the built-in vertex and pixel shaders.
func Triangle() (frameloop.Shaders, error) {
	vs, err := compileFile(builtin.ReadFile, VertexSource)
	if err != nil {
		return frameloop.Shaders{}, err
	}
	ps, err := compileFile(builtin.ReadFile, PixelSource)
	if err != nil {
		return frameloop.Shaders{}, err
	}
	return frameloop.Shaders{Vertex: vs, Pixel: ps}, nil
}

// CompileDir compiles vertex.wgsl and pixel.wgsl from in, or the built-in
// sources when in is empty, and writes vertex.spv and pixel.spv to out.
func CompileDir(in, out string) error {
	read := builtin.ReadFile
	if in != "" {
		read = func(name string) ([]byte, error) {
			return os.ReadFile(filepath.Join(in, name))
		}
	}
	files := []struct{ src, dst string }{
		{VertexSource, frameloop.VertexShaderFile},
		{PixelSource, frameloop.PixelShaderFile},
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("shader: %w", err)
	}
	for _, f := range files {
		spirv, err := compileFile(read, f.src)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(out, f.dst), spirv, 0o644); err != nil {
			return fmt.Errorf("shader: %w", err)
		}
	}
	return nil
}

func compileFile(read func(string) ([]byte, error), name string) ([]byte, error) {
	src, err := read(name)
	if err != nil {
		return nil, fmt.Errorf("shader: read %s: %w", name, err)
	}
	spirv, err := Compile(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return spirv, nil
}
