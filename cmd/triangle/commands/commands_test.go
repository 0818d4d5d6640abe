package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/frameloop"
	"github.com/gogpu/frameloop/internal/config"
)

// execute runs the command tree with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// shaderDir writes placeholder SPIR-V headers, which the soft driver
// accepts.
func shaderDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	magic := []byte{0x03, 0x02, 0x23, 0x07}
	for _, name := range []string{frameloop.VertexShaderFile, frameloop.PixelShaderFile} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), magic, 0o644))
	}
	return dir
}

func TestRunWritesFrames(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frames")
	stdout, err := execute(t, "run",
		"--driver", "soft",
		"--frames", "3",
		"--width", "32", "--height", "32",
		"--output", out,
		"--shaders", shaderDir(t),
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 frames presented by Soft Rasterizer (soft driver)")

	files, err := filepath.Glob(filepath.Join(out, "*.png"))
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestRunRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"driver", []string{"run", "--driver", "metal"}},
		{"buffers", []string{"run", "--buffers", "1"}},
		{"timeout", []string{"run", "--wait-timeout", "soon"}},
		{"color", []string{"run", "--color", "blue-ish"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestRunMissingConfig(t *testing.T) {
	_, err := execute(t, "run", "-c", filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigPrintsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run]\nframes = 7\n"), 0o644))

	stdout, err := execute(t, "config", "-c", path)
	require.NoError(t, err)

	c, err := config.Parse([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, 7, c.Run.Frames)
	assert.Equal(t, config.Default().Window, c.Window)
}

func TestAdaptersSoft(t *testing.T) {
	stdout, err := execute(t, "adapters", "--driver", "soft")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Soft Rasterizer")
	assert.Contains(t, stdout, "soft (warp)")
}

func TestVertexData(t *testing.T) {
	data := vertexData(triangleVertices)
	assert.Len(t, data, len(triangleVertices)*frameloop.LayoutStride(frameloop.TriangleLayout))
}
