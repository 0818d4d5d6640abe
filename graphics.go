package frameloop

import (
	"fmt"

	"github.com/gogpu/frameloop/driver"
	"github.com/gogpu/frameloop/window"
)

// Graphics owns the device and everything created from it: the queue, the
// recorder, the fence gate and the presentation surface.
//
// Graphics is not safe for concurrent use. One goroutine drives it; the
// only concurrency is the GPU timeline behind the driver.
type Graphics struct {
	opts options

	factory driver.Factory
	adapter driver.Adapter
	device  driver.Device
	queue   driver.Queue
	rec     *Recorder
	fence   driver.Fence
	gate    *Gate
	surface *Surface

	// buffers are the live buffers from Allocate and UploadMesh, in
	// allocation order.
	buffers []*Buffer

	initialized bool
	closed      bool
	lost        bool
}

// New returns unconfigured Graphics. Call Initialize before use.
func New(opts ...Option) *Graphics {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Graphics{opts: o}
}

// Initialize creates the device, preferring hardware adapters and falling
// back to the software adapter, then every object the frame loop needs.
// It records and submits the depth/stencil transition, so the gate counter
// is 1 on return.
func (g *Graphics) Initialize(win window.Window) error {
	if g.closed {
		return ErrClosed
	}
	if g.initialized {
		return check(fmt.Errorf("initialize: already initialized: %w", driver.ErrInvalidArg))
	}
	if err := g.initialize(win); err != nil {
		g.release()
		g.closed = true
		return check(err)
	}
	g.initialized = true
	slogger().Info("frameloop: initialized",
		"driver", g.factory.Name(),
		"adapter", g.adapter.Info().Name,
		"size", fmt.Sprintf("%dx%d", win.Width(), win.Height()),
		"buffers", g.surface.BufferCount())
	return nil
}

func (g *Graphics) initialize(win window.Window) error {
	g.factory = g.opts.defaultFactory()

	adapter, device, err := createDevice(g.factory, g.opts.minLevel)
	if err != nil {
		return err
	}
	g.adapter, g.device = adapter, device

	if g.opts.hardwareLog {
		logHardwareInfo(adapter.Info(), device.MaxFeatureLevel())
	}

	if g.queue, err = device.CreateCommandQueue(); err != nil {
		return fmt.Errorf("create command queue: %w", err)
	}
	if g.rec, err = newRecorder(device); err != nil {
		return err
	}
	if g.fence, err = device.CreateFence(0); err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	g.gate = NewGate(g.queue, g.fence, g.opts.waitTimeout)

	cfg := surfaceConfig{
		window:     win.Handle(),
		width:      win.Width(),
		height:     win.Height(),
		count:      g.opts.bufferCount,
		samples:    g.opts.samples,
		vsync:      g.opts.vsync,
		background: win.Color(),
	}
	if fs, ok := win.(interface{ Fullscreen() bool }); ok {
		cfg.fullscreen = fs.Fullscreen()
	}
	g.surface, err = newSurface(device, g.queue, cfg)
	if err != nil {
		return err
	}

	if err := g.rec.Transition(g.surface.depth, StateCommon, StateDepthWrite); err != nil {
		return err
	}
	return g.submit()
}

// usable reports whether Graphics can accept work.
func (g *Graphics) usable() error {
	switch {
	case g.closed:
		return ErrClosed
	case !g.initialized:
		return ErrNotInitialized
	case g.lost:
		return ErrDeviceLost
	}
	return nil
}

// ResetCommands reopens the recorder without resetting the allocator, for
// recording setup work such as mesh uploads.
func (g *Graphics) ResetCommands() error {
	if err := g.usable(); err != nil {
		return err
	}
	return check(g.rec.ResetList(nil))
}

// SubmitCommands closes the recording, executes it and blocks until the
// GPU has completed it.
func (g *Graphics) SubmitCommands() error {
	if err := g.usable(); err != nil {
		return err
	}
	return check(g.submit())
}

func (g *Graphics) submit() error {
	if err := g.rec.Close(); err != nil {
		return err
	}
	if !g.gate.Submit(g.rec.list) {
		g.lost = true
		return fmt.Errorf("submit batch %d: %w: %w", g.gate.Counter(), ErrDeviceLost, g.gate.Err())
	}
	g.rec.submitted(g.gate.Counter())
	if g.opts.debug {
		slogger().Debug("frameloop: batch complete", "fence", g.gate.Counter())
	}
	return nil
}

// Clear starts a frame: it resets the recorder with pso, moves the current
// surface image to the render target state, sets the viewport and scissor
// and clears color and depth/stencil. pso may be nil.
func (g *Graphics) Clear(pso *Pipeline) error {
	if err := g.usable(); err != nil {
		return err
	}
	if err := g.rec.Reset(pso.handle()); err != nil {
		return check(err)
	}
	return check(g.surface.begin(g.rec))
}

// Present ends a frame: it moves the current image back to the present
// state, submits and waits, presents and advances the image index.
func (g *Graphics) Present() error {
	if err := g.usable(); err != nil {
		return err
	}
	if err := g.surface.end(g.rec); err != nil {
		return check(err)
	}
	if err := g.submit(); err != nil {
		return check(err)
	}
	if err := g.surface.present(); err != nil {
		g.lost = true
		return check(err)
	}
	return nil
}

// WaitIdle blocks until all submitted work has completed.
func (g *Graphics) WaitIdle() error {
	if err := g.usable(); err != nil {
		return err
	}
	if !g.gate.Wait() {
		g.lost = true
		return check(fmt.Errorf("wait idle: %w: %w", ErrDeviceLost, g.gate.Err()))
	}
	return nil
}

// CurrentIndex returns the surface image index of the next frame.
func (g *Graphics) CurrentIndex() int {
	if g.surface == nil {
		return 0
	}
	return g.surface.CurrentIndex()
}

// BufferCount returns the number of surface images.
func (g *Graphics) BufferCount() int {
	if g.surface == nil {
		return g.opts.bufferCount
	}
	return g.surface.BufferCount()
}

// SetVSync switches vertical refresh synchronization for later presents.
func (g *Graphics) SetVSync(on bool) {
	g.opts.vsync = on
	if g.surface != nil {
		g.surface.vsync = on
	}
}

// VSync reports whether presents wait for vertical refresh.
func (g *Graphics) VSync() bool { return g.opts.vsync }

// Recorder returns the command recorder.
func (g *Graphics) Recorder() *Recorder { return g.rec }

// Gate returns the submission gate.
func (g *Graphics) Gate() *Gate { return g.gate }

// Surface returns the presentation surface.
func (g *Graphics) Surface() *Surface { return g.surface }

// Device returns the driver device.
func (g *Graphics) Device() driver.Device { return g.device }

// AdapterInfo describes the adapter in use.
func (g *Graphics) AdapterInfo() driver.AdapterInfo {
	if g.adapter == nil {
		return driver.AdapterInfo{}
	}
	return g.adapter.Info()
}

// Close waits for the GPU to finish and releases everything in reverse
// creation order: buffers still live, surface images, swapchain, depth image, depth heap,
// render target heap, fence, command list, allocator, queue, device and
// factory.
func (g *Graphics) Close() error {
	if g.closed {
		return ErrClosed
	}
	g.closed = true
	var err error
	if g.initialized && !g.lost {
		if !g.gate.Wait() {
			err = check(fmt.Errorf("final wait: %w: %w", ErrDeviceLost, g.gate.Err()))
			slogger().Warn("frameloop: final wait failed", "error", g.gate.Err())
		}
	}
	g.release()
	slogger().Info("frameloop: closed")
	return err
}

func (g *Graphics) release() {
	if n := len(g.buffers); n > 0 {
		names := make([]string, n)
		for i, b := range g.buffers {
			names[i] = b.name
		}
		slogger().Warn("frameloop: releasing live buffers", "count", n, "names", names)
		for i := n - 1; i >= 0; i-- {
			g.buffers[i].buf.Release()
			g.buffers[i].buf = nil
		}
		g.buffers = nil
	}
	if g.surface != nil {
		g.surface.release()
		g.surface = nil
	}
	if g.fence != nil {
		g.fence.Release()
		g.fence = nil
	}
	if g.rec != nil {
		g.rec.release()
		g.rec = nil
	}
	if g.queue != nil {
		g.queue.Release()
		g.queue = nil
	}
	if g.device != nil {
		g.device.Release()
		g.device = nil
	}
	if g.factory != nil {
		g.factory.Release()
		g.factory = nil
	}
}
