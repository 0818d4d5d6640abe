// Package config loads the settings of the demo binaries from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is returned for settings that fail validation.
var ErrInvalid = errors.New("config: invalid setting")

// Config is the full demo configuration.
type Config struct {
	Window   Window   `toml:"window"`
	Graphics Graphics `toml:"graphics"`
	Run      Run      `toml:"run"`
}

// Window describes the window the demo presents into.
type Window struct {
	Title      string `toml:"title"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Color      string `toml:"color"`
	Fullscreen bool   `toml:"fullscreen"`
}

// Graphics selects and configures the GPU driver.
type Graphics struct {
	// Driver is "soft" or "wgpu".
	Driver      string `toml:"driver"`
	Backend     string `toml:"backend"`
	Buffers     int    `toml:"buffers"`
	VSync       bool   `toml:"vsync"`
	Samples     int    `toml:"samples"`
	Quality     int    `toml:"quality"`
	HardwareLog bool   `toml:"hardware_log"`
	Debug       bool   `toml:"debug"`
	WaitTimeout string `toml:"wait_timeout"`
}

// Run bounds a headless run.
type Run struct {
	// Frames is the number of frames to render; 0 runs until interrupted.
	Frames int `toml:"frames"`
	// Output is the directory presented frames are written to as PNG.
	// Empty disables writing.
	Output string `toml:"output"`
	// Shaders is the directory holding vertex.spv and pixel.spv.
	Shaders string `toml:"shaders"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: Window{
			Title:  "Triangle",
			Width:  600,
			Height: 600,
			Color:  "#007acc",
		},
		Graphics: Graphics{
			Driver:  "soft",
			Backend: "vulkan",
			Buffers: 2,
			VSync:   true,
			Samples: 1,
		},
		Run: Run{
			Frames:   120,
			Shaders:  "shaders",
			LogLevel: "warn",
		},
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("config: %s", strict.String())
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks every setting.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d: %w", c.Window.Width, c.Window.Height, ErrInvalid))
	}
	if _, err := c.Window.Background(); err != nil {
		errs = append(errs, err)
	}
	switch c.Graphics.Driver {
	case "soft", "wgpu":
	default:
		errs = append(errs, fmt.Errorf("driver %q: %w", c.Graphics.Driver, ErrInvalid))
	}
	if c.Graphics.Backend != "vulkan" {
		errs = append(errs, fmt.Errorf("backend %q: %w", c.Graphics.Backend, ErrInvalid))
	}
	if c.Graphics.Buffers < 2 {
		errs = append(errs, fmt.Errorf("buffers %d, need at least 2: %w", c.Graphics.Buffers, ErrInvalid))
	}
	if c.Graphics.Samples < 1 {
		errs = append(errs, fmt.Errorf("samples %d: %w", c.Graphics.Samples, ErrInvalid))
	}
	if _, err := c.Graphics.Timeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Run.Frames < 0 {
		errs = append(errs, fmt.Errorf("frames %d: %w", c.Run.Frames, ErrInvalid))
	}
	if _, ok := logLevels[c.Run.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("log level %q: %w", c.Run.LogLevel, ErrInvalid))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Background parses Color, a hex color such as "#007acc" or "#07c". The
// result is opaque.
func (w Window) Background() (color.Color, error) {
	c, err := colorful.Hex(w.Color)
	if err != nil {
		return nil, fmt.Errorf("window color %q: %w", w.Color, ErrInvalid)
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// Timeout parses WaitTimeout. Empty means no timeout.
func (g Graphics) Timeout() (time.Duration, error) {
	if g.WaitTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(g.WaitTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("wait timeout %q: %w", g.WaitTimeout, ErrInvalid)
	}
	return d, nil
}
