// Package engine drives a frame loop: it polls the window, toggles pause,
// measures frame time and calls into a Game once per frame.
//
// Everything the game needs is passed explicitly through a Context; there
// is no package-level state.
//
//	g := frameloop.New()
//	if err := g.Initialize(win); err != nil { ... }
//	defer g.Close()
//	e := engine.New(g, win, win)
//	err := e.Run(ctx, &MyGame{})
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/frameloop"
	"github.com/gogpu/frameloop/window"
)

// Context is what a Game sees of the engine.
type Context struct {
	Graphics *frameloop.Graphics
	Window   window.Window
	Input    window.Input

	// FrameTime is the duration of the previous frame.
	FrameTime time.Duration
}

// Game is the content driven by the engine.
//
// Init runs once before the first frame and Finalize once after the last,
// even when the loop stopped on an error. While the engine is running,
// every frame calls Update, Draw and Display in that order; while it is
// paused, every frame calls OnPause instead.
type Game interface {
	Init(ctx *Context) error
	Update(ctx *Context) error
	Draw(ctx *Context) error
	Display(ctx *Context) error
	OnPause(ctx *Context)
	Finalize(ctx *Context) error
}

// PauseSleep is how long Base.OnPause sleeps.
const PauseSleep = 10 * time.Millisecond

// Base provides the optional Game hooks. Embed it and implement Init,
// Update and Finalize.
type Base struct{}

// Draw does nothing.
func (Base) Draw(*Context) error { return nil }

// Display does nothing.
func (Base) Display(*Context) error { return nil }

// OnPause sleeps briefly so a paused loop does not spin.
func (Base) OnPause(*Context) { time.Sleep(PauseSleep) }

// Option configures an Engine.
type Option func(*options)

type options struct {
	pauseKey window.Key
	fpsTitle bool
	now      func() time.Time
}

func defaultOptions() options {
	return options{
		pauseKey: window.KeyPause,
		fpsTitle: true,
		now:      time.Now,
	}
}

// WithPauseKey sets the key toggling pause. The default is window.KeyPause.
func WithPauseKey(k window.Key) Option {
	return func(o *options) { o.pauseKey = k }
}

// WithFPSTitle enables or disables the once-per-second FPS and frame time
// report in the window title. It is enabled by default.
func WithFPSTitle(on bool) Option {
	return func(o *options) { o.fpsTitle = on }
}

// Engine runs the frame loop.
type Engine struct {
	opts  options
	ctx   Context
	timer Timer

	paused bool
	total  time.Duration
	frames int
}

// New returns an engine over an initialized Graphics, its window and the
// window's input.
func New(g *frameloop.Graphics, win window.Window, in window.Input, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		opts:  o,
		ctx:   Context{Graphics: g, Window: win, Input: in},
		timer: Timer{now: o.now},
	}
}

// Context returns the context passed to the game.
func (e *Engine) Context() *Context { return &e.ctx }

// Pause stops the frame timer; the game's OnPause runs instead of frames.
func (e *Engine) Pause() {
	e.paused = true
	e.timer.Stop()
	frameloop.Logger().Debug("engine: paused")
}

// Resume restarts the frame timer.
func (e *Engine) Resume() {
	e.paused = false
	e.timer.Start()
	frameloop.Logger().Debug("engine: resumed")
}

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool { return e.paused }

// Run initializes game and runs frames until the window closes, ctx is
// done or the game returns an error. Finalize always runs; its error is
// joined with the loop's.
func (e *Engine) Run(ctx context.Context, game Game) error {
	e.timer.Start()
	if err := game.Init(&e.ctx); err != nil {
		return errors.Join(fmt.Errorf("engine: init: %w", err), e.finalize(game))
	}
	err := e.loop(ctx, game)
	return errors.Join(err, e.finalize(game))
}

func (e *Engine) loop(ctx context.Context, game Game) error {
	for e.ctx.Window.PollEvents() {
		if ctx.Err() != nil {
			frameloop.Logger().Info("engine: stopped", "reason", context.Cause(ctx))
			return nil
		}
		if e.ctx.Input != nil && e.ctx.Input.KeyPress(e.opts.pauseKey) {
			if e.paused {
				e.Resume()
			} else {
				e.Pause()
			}
		}
		if e.paused {
			game.OnPause(&e.ctx)
			continue
		}
		e.ctx.FrameTime = e.frameTime()
		if err := game.Update(&e.ctx); err != nil {
			return fmt.Errorf("engine: update: %w", err)
		}
		if err := game.Draw(&e.ctx); err != nil {
			return fmt.Errorf("engine: draw: %w", err)
		}
		if err := game.Display(&e.ctx); err != nil {
			return fmt.Errorf("engine: display: %w", err)
		}
	}
	return nil
}

// frameTime measures the last frame and, once per second, reports the
// frame rate in the window title.
func (e *Engine) frameTime() time.Duration {
	ft := e.timer.Reset()
	if !e.opts.fpsTitle {
		return ft
	}
	e.total += ft
	e.frames++
	if e.total >= time.Second {
		e.ctx.Window.SetTitle(fmt.Sprintf("%s    FPS: %d    Frame Time: %.3f (ms)",
			e.ctx.Window.Title(), e.frames, float64(ft)/float64(time.Millisecond)))
		e.frames = 0
		e.total -= time.Second
	}
	return ft
}

func (e *Engine) finalize(game Game) error {
	if err := game.Finalize(&e.ctx); err != nil {
		return fmt.Errorf("engine: finalize: %w", err)
	}
	return nil
}
