package frameloop

import (
	"testing"
	"time"

	"github.com/gogpu/frameloop/driver"
	"github.com/gogpu/frameloop/driver/soft"
)

func TestDefaultOptions(t *testing.T) {
	g := New()
	o := g.opts
	if o.bufferCount != DefaultBufferCount {
		t.Errorf("bufferCount = %d, want %d", o.bufferCount, DefaultBufferCount)
	}
	if o.samples != (driver.SampleDesc{Count: 1}) {
		t.Errorf("samples = %+v", o.samples)
	}
	if o.minLevel != driver.FeatureLevel11_0 {
		t.Errorf("minLevel = %v", o.minLevel)
	}
	if o.waitTimeout != 0 || o.vsync || o.debug || o.hardwareLog {
		t.Errorf("unexpected defaults %+v", o)
	}
	f := o.defaultFactory()
	defer f.Release()
	if f.Name() != "soft" {
		t.Errorf("default factory = %q, want soft", f.Name())
	}
}

func TestOptions(t *testing.T) {
	f := soft.NewFactory()
	defer f.Release()
	g := New(
		WithFactory(f),
		WithBufferCount(3),
		WithVSync(true),
		WithAntialiasing(4, 1),
		WithHardwareLog(true),
		WithWaitTimeout(time.Second),
		WithDebug(true),
		WithMinFeatureLevel(driver.FeatureLevel12_0),
	)
	o := g.opts
	if o.defaultFactory() != f {
		t.Error("WithFactory ignored")
	}
	if o.bufferCount != 3 || !o.vsync || !o.hardwareLog || !o.debug {
		t.Errorf("options = %+v", o)
	}
	if o.samples != (driver.SampleDesc{Count: 4, Quality: 1}) {
		t.Errorf("samples = %+v", o.samples)
	}
	if o.waitTimeout != time.Second {
		t.Errorf("waitTimeout = %v", o.waitTimeout)
	}
	if o.minLevel != driver.FeatureLevel12_0 {
		t.Errorf("minLevel = %v", o.minLevel)
	}
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	o := New(WithBufferCount(1), WithAntialiasing(0, 3)).opts
	if o.bufferCount != DefaultBufferCount {
		t.Errorf("bufferCount = %d", o.bufferCount)
	}
	if o.samples.Count != 1 {
		t.Errorf("samples = %+v", o.samples)
	}
}
