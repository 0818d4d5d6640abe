package frameloop

import (
	"time"

	"github.com/gogpu/frameloop/driver"
	"github.com/gogpu/frameloop/driver/soft"
)

// DefaultBufferCount is the number of surface images.
const DefaultBufferCount = 2

// Option configures Graphics during creation.
//
// Example:
//
//	// Software driver, vsync on
//	g := frameloop.New(frameloop.WithVSync(true))
//
//	// Hardware driver with the software rasterizer as fallback
//	f, err := wgpu.NewFactory(wgpu.WithFallback(soft.NewFactory()))
//	if err != nil { ... }
//	g := frameloop.New(frameloop.WithFactory(f))
type Option func(*options)

// options holds optional configuration for Graphics.
type options struct {
	factory     driver.Factory
	bufferCount int
	vsync       bool
	samples     driver.SampleDesc
	hardwareLog bool
	waitTimeout time.Duration
	debug       bool
	minLevel    driver.FeatureLevel
}

func defaultOptions() options {
	return options{
		bufferCount: DefaultBufferCount,
		samples:     driver.SampleDesc{Count: 1},
		minLevel:    driver.FeatureLevel11_0,
	}
}

// WithFactory sets the driver factory. Graphics takes ownership and
// releases it on Close. Defaults to the software driver.
func WithFactory(f driver.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithBufferCount sets the number of surface images. Values below 2 are
// ignored.
func WithBufferCount(n int) Option {
	return func(o *options) {
		if n >= 2 {
			o.bufferCount = n
		}
	}
}

// WithVSync synchronizes Present with the vertical refresh.
func WithVSync(on bool) Option {
	return func(o *options) {
		o.vsync = on
	}
}

// WithAntialiasing sets the sample count and quality of the surface.
func WithAntialiasing(count, quality int) Option {
	return func(o *options) {
		if count >= 1 {
			o.samples = driver.SampleDesc{Count: count, Quality: quality}
		}
	}
}

// WithHardwareLog logs adapter, memory, feature level and display
// information at Info level during Initialize.
func WithHardwareLog(on bool) Option {
	return func(o *options) {
		o.hardwareLog = on
	}
}

// WithWaitTimeout bounds every fence wait. Zero, the default, waits
// forever.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		o.waitTimeout = d
	}
}

// WithDebug enables the debug layer of the default software factory and
// debug-level logging of fence values and transitions.
func WithDebug(on bool) Option {
	return func(o *options) {
		o.debug = on
	}
}

// WithMinFeatureLevel sets the feature level every adapter is asked for.
func WithMinFeatureLevel(l driver.FeatureLevel) Option {
	return func(o *options) {
		o.minLevel = l
	}
}

func (o *options) defaultFactory() driver.Factory {
	if o.factory != nil {
		return o.factory
	}
	return soft.NewFactory(soft.WithDebug(o.debug))
}
