// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/vector"

	"github.com/gogpu/frameloop/driver"
)

// vertex is a post-viewport vertex.
type vertex struct {
	x, y, z float32
	color   [4]float32
}

func (es *execState) draw(vertexCount, instanceCount, firstVertex int) error {
	if es.pipeline == nil {
		return fmt.Errorf("draw without pipeline: %w", driver.ErrInvalidArg)
	}
	if es.rootSig == nil {
		return fmt.Errorf("draw without root signature: %w", driver.ErrInvalidArg)
	}
	if es.rt == nil {
		return fmt.Errorf("draw without render target: %w", driver.ErrInvalidArg)
	}
	if es.rt.state != driver.StateRenderTarget {
		return fmt.Errorf("draw into %s in state %s: %w", es.rt.kind, es.rt.state, driver.ErrInvalidArg)
	}
	if len(es.vertex) == 0 || es.vertex[0].Buffer == nil {
		return fmt.Errorf("draw without vertex buffer: %w", driver.ErrInvalidArg)
	}
	view := es.vertex[0]
	vb, ok := view.Buffer.(*buffer)
	if !ok {
		return fmt.Errorf("draw from foreign buffer: %w", driver.ErrInvalidArg)
	}
	if vb.heap == driver.HeapDefault && vb.state != driver.StateGenericRead {
		return fmt.Errorf("draw from vertex buffer in state %s: %w", vb.state, driver.ErrInvalidArg)
	}
	if instanceCount <= 0 {
		return nil
	}

	verts := make([]vertex, 0, vertexCount)
	for i := firstVertex; i < firstVertex+vertexCount; i++ {
		v, err := es.fetch(vb, view, i)
		if err != nil {
			return err
		}
		verts = append(verts, v)
	}

	r := rasterizer{es: es, mask: image.NewAlpha(es.rt.rgba.Rect)}
	switch es.topology {
	case driver.TopologyTriangleList:
		for i := 0; i+2 < len(verts); i += 3 {
			r.triangle(verts[i], verts[i+1], verts[i+2])
		}
	case driver.TopologyTriangleStrip:
		for i := 0; i+2 < len(verts); i++ {
			if i%2 == 0 {
				r.triangle(verts[i], verts[i+1], verts[i+2])
			} else {
				r.triangle(verts[i+1], verts[i], verts[i+2])
			}
		}
	}
	return nil
}

// fetch reads vertex i and applies the viewport transform.
func (es *execState) fetch(vb *buffer, view driver.VertexBufferView, i int) (vertex, error) {
	p := es.pipeline
	stride := int(view.Stride)
	if stride == 0 {
		stride = p.desc.Stride
	}
	base := i * stride
	if base+stride > int(view.Size) || base+stride > len(vb.data) {
		return vertex{}, fmt.Errorf("vertex %d outside of buffer: %w", i, driver.ErrInvalidArg)
	}
	data := vb.data[base : base+stride]

	pos := [4]float32{0, 0, 0, 1}
	if err := readElement(data, p.desc.InputLayout[p.position], pos[:]); err != nil {
		return vertex{}, err
	}
	v := vertex{color: [4]float32{1, 1, 1, 1}}
	if p.color >= 0 {
		if err := readElement(data, p.desc.InputLayout[p.color], v.color[:]); err != nil {
			return vertex{}, err
		}
	}
	w := pos[3]
	if w == 0 {
		w = 1
	}
	x, y, z := pos[0]/w, pos[1]/w, pos[2]/w
	vp := es.viewport
	v.x = vp.X + (x+1)/2*vp.Width
	v.y = vp.Y + (1-y)/2*vp.Height
	v.z = vp.MinDepth + z*(vp.MaxDepth-vp.MinDepth)
	return v, nil
}

func readElement(data []byte, e driver.InputElement, out []float32) error {
	n := e.Format.Size() / 4
	if n == 0 || e.Format == driver.FormatRGBA8Unorm || e.Format == driver.FormatD24UnormS8Uint {
		return fmt.Errorf("unsupported vertex format %d for %s: %w", e.Format, e.Semantic, driver.ErrUnsupported)
	}
	if e.Offset+n*4 > len(data) {
		return fmt.Errorf("%s outside of vertex stride: %w", e.Semantic, driver.ErrInvalidArg)
	}
	for k := 0; k < n && k < len(out); k++ {
		bits := binary.LittleEndian.Uint32(data[e.Offset+k*4:])
		out[k] = math.Float32frombits(bits)
	}
	return nil
}

type rasterizer struct {
	es   *execState
	mask *image.Alpha
	ras  vector.Rasterizer
}

func (r *rasterizer) triangle(a, b, c vertex) {
	desc := &r.es.pipeline.desc
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return
	}
	// Screen y points down, so a clockwise triangle on screen has a
	// positive area here.
	front := (area < 0) == desc.FrontCCW
	switch desc.Cull {
	case driver.CullBack:
		if !front {
			return
		}
	case driver.CullFront:
		if front {
			return
		}
	}

	bounds := r.mask.Rect
	if r.es.hasScissor {
		s := r.es.scissor
		bounds = bounds.Intersect(image.Rect(s.Left, s.Top, s.Right, s.Bottom))
	}
	box := image.Rect(
		int(math.Floor(float64(min(a.x, b.x, c.x)))),
		int(math.Floor(float64(min(a.y, b.y, c.y)))),
		int(math.Ceil(float64(max(a.x, b.x, c.x))))+1,
		int(math.Ceil(float64(max(a.y, b.y, c.y))))+1,
	).Intersect(bounds)
	if box.Empty() {
		return
	}

	clear(r.mask.Pix)
	w, h := r.mask.Rect.Dx(), r.mask.Rect.Dy()
	r.ras.Reset(w, h)
	if desc.Fill == driver.FillWireframe {
		r.line(a, b)
		r.line(b, c)
		r.line(c, a)
	} else {
		r.ras.MoveTo(a.x, a.y)
		r.ras.LineTo(b.x, b.y)
		r.ras.LineTo(c.x, c.y)
		r.ras.ClosePath()
	}
	r.ras.Draw(r.mask, r.mask.Rect, image.Opaque, image.Point{})

	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			cov := r.mask.AlphaAt(x, y).A
			if cov == 0 {
				continue
			}
			px, py := float32(x)+0.5, float32(y)+0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := 1 - w0 - w1
			z := w0*a.z + w1*b.z + w2*c.z
			if !r.depthTest(x, y, z) {
				continue
			}
			var col [4]float32
			for k := range col {
				col[k] = w0*a.color[k] + w1*b.color[k] + w2*c.color[k]
			}
			r.blend(x, y, col, float32(cov)/255)
		}
	}
}

// line rasterizes a one pixel wide quad along a-b.
func (r *rasterizer) line(a, b vertex) {
	dx, dy := b.x-a.x, b.y-a.y
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	nx, ny := -dy/l*0.5, dx/l*0.5
	r.ras.MoveTo(a.x+nx, a.y+ny)
	r.ras.LineTo(b.x+nx, b.y+ny)
	r.ras.LineTo(b.x-nx, b.y-ny)
	r.ras.LineTo(a.x-nx, a.y-ny)
	r.ras.ClosePath()
}

func (r *rasterizer) depthTest(x, y int, z float32) bool {
	desc := &r.es.pipeline.desc
	ds := r.es.ds
	if !desc.DepthEnable || ds == nil {
		return true
	}
	if ds.state != driver.StateDepthWrite {
		return true
	}
	i := y*ds.w + x
	if i < 0 || i >= len(ds.depth) {
		return true
	}
	pass := false
	switch desc.DepthFunc {
	case driver.CompareLess:
		pass = z < ds.depth[i]
	case driver.CompareLessEqual:
		pass = z <= ds.depth[i]
	case driver.CompareAlways:
		pass = true
	}
	if pass {
		ds.depth[i] = z
	}
	return pass
}

func (r *rasterizer) blend(x, y int, col [4]float32, cov float32) {
	dst := r.es.rt.rgba
	i := dst.PixOffset(x, y)
	src := toRGBA(col)
	for k := 0; k < 4; k++ {
		d := float32(dst.Pix[i+k])
		dst.Pix[i+k] = uint8(d + (float32(src[k])-d)*cov + 0.5)
	}
}

// edge is twice the signed area of the triangle (a, b, p).
func edge(a, b vertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}
