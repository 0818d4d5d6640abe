// Package commands implements the triangle command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/frameloop/internal/config"
)

// NewRootCmd returns the triangle command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "triangle",
		Short: "Render a colored triangle with frameloop",
		Long: `Triangle drives the frameloop renderer through a headless window.

It selects a hardware adapter when the wgpu driver finds one and falls back
to the software rasterizer otherwise. Presented frames can be written to a
directory as PNG files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "TOML config file (default: built-in settings)")
	root.AddCommand(newRunCmd(), newAdaptersCmd(), newConfigCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads the --config file over the defaults and applies every
// flag set on the command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()
	c := config.Default()
	if path, _ := f.GetString("config"); path != "" {
		var err error
		if c, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	flag := func(name string, dst *bool) {
		if f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}
	str("title", &c.Window.Title)
	num("width", &c.Window.Width)
	num("height", &c.Window.Height)
	str("color", &c.Window.Color)
	flag("fullscreen", &c.Window.Fullscreen)
	str("driver", &c.Graphics.Driver)
	num("buffers", &c.Graphics.Buffers)
	flag("vsync", &c.Graphics.VSync)
	num("samples", &c.Graphics.Samples)
	flag("hardware-log", &c.Graphics.HardwareLog)
	flag("debug", &c.Graphics.Debug)
	str("wait-timeout", &c.Graphics.WaitTimeout)
	num("frames", &c.Run.Frames)
	str("output", &c.Run.Output)
	str("shaders", &c.Run.Shaders)
	str("log-level", &c.Run.LogLevel)

	if err := c.Validate(); err != nil {
		return config.Config{}, err
	}
	return c, nil
}
