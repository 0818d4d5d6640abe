package frameloop

import (
	"fmt"
	"image/color"

	"github.com/gogpu/frameloop/driver"
)

// Surface is the rotating set of presentable images plus the
// depth/stencil image they share.
type Surface struct {
	swapchain driver.Swapchain
	images    []*Image
	depth     *Image
	rtvHeap   driver.DescriptorHeap
	dsvHeap   driver.DescriptorHeap

	index      int
	viewport   driver.Viewport
	scissor    driver.Rect
	background [4]float32
	vsync      bool
	fullscreen bool
}

// surfaceConfig describes the surface to create.
type surfaceConfig struct {
	window     uintptr
	width      int
	height     int
	count      int
	samples    driver.SampleDesc
	vsync      bool
	fullscreen bool
	background color.Color
}

// newSurface creates the swapchain, the render target heap, the
// depth/stencil image and its heap. Objects created before a failure are
// released by the caller through release.
func newSurface(dev driver.Device, q driver.Queue, cfg surfaceConfig) (*Surface, error) {
	s := &Surface{vsync: cfg.vsync}

	sc, err := dev.CreateSwapchain(q, driver.SwapchainDesc{
		Window:      cfg.window,
		Width:       cfg.width,
		Height:      cfg.height,
		Format:      driver.FormatRGBA8Unorm,
		BufferCount: cfg.count,
		Samples:     cfg.samples,
		AllowTear:   !cfg.vsync,
	})
	if err != nil {
		return s, fmt.Errorf("create swapchain: %w", err)
	}
	s.swapchain = sc

	if cfg.fullscreen {
		if err := sc.SetFullscreen(true); err != nil {
			slogger().Warn("frameloop: fullscreen unavailable", "error", err)
		} else {
			s.fullscreen = true
		}
	}

	if s.rtvHeap, err = dev.CreateDescriptorHeap(driver.DescriptorRenderTarget, cfg.count); err != nil {
		return s, fmt.Errorf("create render target heap: %w", err)
	}
	for i := 0; i < cfg.count; i++ {
		img, err := sc.Image(i)
		if err != nil {
			return s, fmt.Errorf("get swapchain image %d: %w", i, err)
		}
		s.images = append(s.images, &Image{
			name:  fmt.Sprintf("surface image %d", i),
			img:   img,
			state: StatePresent,
		})
		if err := s.rtvHeap.CreateView(img, i); err != nil {
			return s, fmt.Errorf("create render target view %d: %w", i, err)
		}
	}

	depth, err := dev.CreateDepthStencil(cfg.width, cfg.height, cfg.samples)
	if err != nil {
		return s, fmt.Errorf("create depth stencil: %w", err)
	}
	s.depth = &Image{name: "depth stencil", img: depth, state: StateCommon}

	if s.dsvHeap, err = dev.CreateDescriptorHeap(driver.DescriptorDepthStencil, 1); err != nil {
		return s, fmt.Errorf("create depth stencil heap: %w", err)
	}
	if err := s.dsvHeap.CreateView(depth, 0); err != nil {
		return s, fmt.Errorf("create depth stencil view: %w", err)
	}

	s.viewport = driver.Viewport{
		Width:    float32(cfg.width),
		Height:   float32(cfg.height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	s.scissor = driver.Rect{Right: cfg.width, Bottom: cfg.height}
	s.background = background(cfg.background)
	return s, nil
}

// background converts c to a clear color with alpha forced to 1.
func background(c color.Color) [4]float32 {
	if c == nil {
		return [4]float32{0, 0, 0, 1}
	}
	r, g, b, _ := c.RGBA()
	return [4]float32{float32(r) / 0xffff, float32(g) / 0xffff, float32(b) / 0xffff, 1}
}

// CurrentIndex returns the index of the image the next frame renders into.
func (s *Surface) CurrentIndex() int { return s.index }

// BufferCount returns the number of images.
func (s *Surface) BufferCount() int { return len(s.images) }

// Image returns image i.
func (s *Surface) Image(i int) *Image { return s.images[i] }

// Current returns the image the next frame renders into.
func (s *Surface) Current() *Image { return s.images[s.index] }

// Depth returns the depth/stencil image.
func (s *Surface) Depth() *Image { return s.depth }

// Viewport returns the full-surface viewport.
func (s *Surface) Viewport() driver.Viewport { return s.viewport }

// begin records the start of a frame into rec: current image to render
// target, viewport, scissor, clears and target binding.
func (s *Surface) begin(rec *Recorder) error {
	img := s.images[s.index]
	if err := rec.Transition(img, StatePresent, StateRenderTarget); err != nil {
		return err
	}
	l := rec.list
	l.SetViewport(s.viewport)
	l.SetScissor(s.scissor)
	rtv := s.rtvHeap.Handle(s.index)
	dsv := s.dsvHeap.Handle(0)
	l.ClearRenderTarget(rtv, s.background)
	l.ClearDepthStencil(dsv, 1, 0)
	l.SetRenderTargets(rtv, dsv)
	return nil
}

// end records the transition of the current image back to present.
func (s *Surface) end(rec *Recorder) error {
	return rec.Transition(s.images[s.index], StateRenderTarget, StatePresent)
}

// present shows the current image and rotates the index.
func (s *Surface) present() error {
	interval := 0
	if s.vsync {
		interval = 1
	}
	if err := s.swapchain.Present(interval); err != nil {
		return fmt.Errorf("present image %d: %w", s.index, err)
	}
	s.index = (s.index + 1) % len(s.images)
	return nil
}

// release releases the surface in order: images, swapchain (after leaving
// fullscreen), depth image, depth heap, render target heap.
func (s *Surface) release() {
	for _, img := range s.images {
		img.img.Release()
	}
	s.images = nil
	if s.swapchain != nil {
		if s.fullscreen {
			if err := s.swapchain.SetFullscreen(false); err != nil {
				slogger().Warn("frameloop: leave fullscreen", "error", err)
			}
			s.fullscreen = false
		}
		s.swapchain.Release()
		s.swapchain = nil
	}
	if s.depth != nil {
		s.depth.img.Release()
		s.depth = nil
	}
	if s.dsvHeap != nil {
		s.dsvHeap.Release()
		s.dsvHeap = nil
	}
	if s.rtvHeap != nil {
		s.rtvHeap.Release()
		s.rtvHeap = nil
	}
}
