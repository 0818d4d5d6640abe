package commands

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/gogpu/frameloop"
	"github.com/gogpu/frameloop/driver"
	"github.com/gogpu/frameloop/driver/soft"
	"github.com/gogpu/frameloop/driver/wgpu"
	"github.com/gogpu/frameloop/engine"
	"github.com/gogpu/frameloop/internal/config"
	"github.com/gogpu/frameloop/internal/shader"
	"github.com/gogpu/frameloop/window"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render the triangle",
		Long: `Run renders the triangle until the frame budget is spent, Escape is
pressed or the process is interrupted. V toggles vsync and Pause pauses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			rep, err := run(ctx, c, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d frames presented by %s (%s driver)\n", rep.frames, rep.adapter, rep.driver)
			return nil
		},
	}
	d := config.Default()
	f := cmd.Flags()
	f.String("title", d.Window.Title, "window title")
	f.Int("width", d.Window.Width, "window width")
	f.Int("height", d.Window.Height, "window height")
	f.String("color", d.Window.Color, "background color")
	f.Bool("fullscreen", d.Window.Fullscreen, "start in fullscreen mode")
	f.String("driver", d.Graphics.Driver, `GPU driver, "soft" or "wgpu"`)
	f.Int("buffers", d.Graphics.Buffers, "number of surface images")
	f.Bool("vsync", d.Graphics.VSync, "synchronize presentation with the vertical refresh")
	f.Int("samples", d.Graphics.Samples, "samples per pixel")
	f.Bool("hardware-log", d.Graphics.HardwareLog, "log adapter and display information")
	f.Bool("debug", d.Graphics.Debug, "enable driver validation logging")
	f.String("wait-timeout", d.Graphics.WaitTimeout, "bound on every fence wait, e.g. 2s (default: none)")
	f.Int("frames", d.Run.Frames, "frames to render, 0 runs until interrupted")
	f.String("output", d.Run.Output, "directory presented frames are written to as PNG")
	f.String("shaders", d.Run.Shaders, "directory holding vertex.spv and pixel.spv")
	f.String("log-level", d.Run.LogLevel, "debug, info, warn or error")
	return cmd
}

type report struct {
	frames  int
	adapter string
	driver  string
}

// run renders c into a headless window. Log records go to logOut.
func run(ctx context.Context, c config.Config, logOut io.Writer) (report, error) {
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: c.Run.Level()}))
	frameloop.SetLogger(logger)
	defer frameloop.SetLogger(nil)

	bg, err := c.Window.Background()
	if err != nil {
		return report{}, err
	}
	timeout, err := c.Graphics.Timeout()
	if err != nil {
		return report{}, err
	}

	opts := []window.HeadlessOption{
		window.WithSize(c.Window.Width, c.Window.Height),
		window.WithTitle(c.Window.Title),
		window.WithColor(bg),
		window.WithFrames(c.Run.Frames),
		window.WithFullscreen(c.Window.Fullscreen),
	}
	if c.Run.Output != "" {
		if err := os.MkdirAll(c.Run.Output, 0o755); err != nil {
			return report{}, fmt.Errorf("output: %w", err)
		}
		opts = append(opts, window.WithSink(&window.PNGSink{Dir: c.Run.Output}))
	}
	win := window.NewHeadless(opts...)

	shaders, err := loadShaders(c.Run.Shaders)
	if err != nil {
		return report{}, err
	}
	factory, err := newFactory(c.Graphics, win.Deliver)
	if err != nil {
		return report{}, err
	}

	g := frameloop.New(
		frameloop.WithFactory(factory),
		frameloop.WithBufferCount(c.Graphics.Buffers),
		frameloop.WithVSync(c.Graphics.VSync),
		frameloop.WithAntialiasing(c.Graphics.Samples, c.Graphics.Quality),
		frameloop.WithHardwareLog(c.Graphics.HardwareLog),
		frameloop.WithWaitTimeout(timeout),
		frameloop.WithDebug(c.Graphics.Debug),
	)
	if err := g.Initialize(win); err != nil {
		return report{}, err
	}
	rep := report{adapter: g.AdapterInfo().Name, driver: factory.Name()}

	runErr := engine.New(g, win, win, engine.WithFPSTitle(true)).Run(ctx, &triangle{shaders: shaders})
	closeErr := g.Close()
	if err := errors.Join(runErr, closeErr, win.Err()); err != nil {
		return report{}, err
	}
	rep.frames = win.Delivered()
	return rep, nil
}

// loadShaders reads the compiled shaders from dir, compiling the built-in
// sources when dir holds none.
func loadShaders(dir string) (frameloop.Shaders, error) {
	if dir != "" {
		s, err := frameloop.ReadShaders(dir)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return frameloop.Shaders{}, err
		}
		frameloop.Logger().Info("triangle: no compiled shaders, compiling built-in sources", "dir", dir)
	}
	return shader.Triangle()
}

// newFactory returns the driver factory named by g.Driver. The software
// factory always exists: it is the whole soft driver and the fallback
// adapter of the wgpu driver.
func newFactory(g config.Graphics, present func(int, *image.RGBA)) (driver.Factory, error) {
	sf := soft.NewFactory(soft.WithPresentFunc(present), soft.WithDebug(g.Debug))
	if g.Driver != "wgpu" {
		return sf, nil
	}
	backend, err := halBackend(g.Backend)
	if err != nil {
		sf.Release()
		return nil, err
	}
	wf, err := wgpu.NewFactory(
		wgpu.WithBackend(backend),
		wgpu.WithFallback(sf),
		wgpu.WithPresentFunc(present),
	)
	if errors.Is(err, driver.ErrUnsupported) {
		frameloop.Logger().Warn("triangle: wgpu backend unavailable, using the soft driver", "backend", g.Backend, "error", err)
		return sf, nil
	}
	if err != nil {
		sf.Release()
		return nil, err
	}
	return wf, nil
}

func halBackend(name string) (gputypes.Backend, error) {
	switch name {
	case "vulkan":
		return gputypes.BackendVulkan, nil
	default:
		return 0, fmt.Errorf("backend %q: %w", name, config.ErrInvalid)
	}
}
