package frameloop

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/gogpu/frameloop/driver"
	"github.com/gogpu/frameloop/driver/soft"
	"github.com/gogpu/frameloop/window"
)

// frames collects presented images. Presents run on the GPU timeline.
type frames struct {
	mu   sync.Mutex
	imgs []*image.RGBA
	idx  []int
}

func (f *frames) add(i int, img *image.RGBA) {
	f.mu.Lock()
	f.imgs = append(f.imgs, img)
	f.idx = append(f.idx, i)
	f.mu.Unlock()
}

func (f *frames) last() *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.imgs) == 0 {
		return nil
	}
	return f.imgs[len(f.imgs)-1]
}

type fixture struct {
	g      *Graphics
	f      *soft.Factory
	win    *window.Headless
	frames *frames
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	fr := &frames{}
	f := soft.NewFactory(soft.WithPresentFunc(fr.add))
	win := window.NewHeadless(window.WithSize(64, 48), window.WithColor(color.RGBA{B: 255, A: 255}))
	g := New(append([]Option{WithFactory(f)}, opts...)...)
	if err := g.Initialize(win); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return &fixture{g: g, f: f, win: win, frames: fr}
}

func (fx *fixture) close(t *testing.T) {
	t.Helper()
	if err := fx.g.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	for _, err := range fx.f.Violations() {
		t.Errorf("violation: %v", err)
	}
}

func vertexBytes(vs ...[7]float32) []byte {
	var b []byte
	for _, v := range vs {
		for _, f := range v {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
		}
	}
	return b
}

var redTriangle = vertexBytes(
	[7]float32{0, 0.5, 0, 1, 0, 0, 1},
	[7]float32{0.5, -0.5, 0, 1, 0, 0, 1},
	[7]float32{-0.5, -0.5, 0, 1, 0, 0, 1},
)

var testShaders = Shaders{Vertex: []byte{0x03, 0x02, 0x23, 0x07}, Pixel: []byte{0x03, 0x02, 0x23, 0x07}}

func TestVertexLayoutStride(t *testing.T) {
	if got := LayoutStride(TriangleLayout); got != 28 {
		t.Errorf("LayoutStride(TriangleLayout) = %d, want 28", got)
	}
	if got := len(redTriangle); got != 3*28 {
		t.Errorf("len(redTriangle) = %d", got)
	}
}

func TestPlacementString(t *testing.T) {
	tests := []struct {
		p    Placement
		want string
	}{
		{Default, "Default"},
		{Upload, "Upload"},
		{Placement(7), "Placement(7)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.p), got, tt.want)
		}
	}
}

func TestDriverHeap(t *testing.T) {
	if Default.heap() != driver.HeapDefault || Upload.heap() != driver.HeapUpload {
		t.Error("placement does not map to the matching heap")
	}
}
