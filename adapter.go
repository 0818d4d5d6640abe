package frameloop

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/frameloop/driver"
)

// createDevice creates the device on the first hardware adapter that
// supports min, or on the factory's software adapter when none does. No
// other object exists before it returns.
func createDevice(f driver.Factory, min driver.FeatureLevel) (driver.Adapter, driver.Device, error) {
	adapters, err := f.Adapters()
	if err != nil {
		slogger().Warn("frameloop: enumerate adapters", "error", err)
	}
	var errs []error
	for _, a := range adapters {
		info := a.Info()
		if info.Software {
			continue
		}
		dev, err := a.CreateDevice(min)
		if err == nil {
			slogger().Info("frameloop: using hardware adapter", "adapter", info.Name)
			return a, dev, nil
		}
		slogger().Debug("frameloop: adapter rejected", "adapter", info.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", info.Name, err))
	}

	warp, err := f.WarpAdapter()
	if err != nil {
		return nil, nil, fmt.Errorf("software adapter: %w", errors.Join(append(errs, err)...))
	}
	dev, err := warp.CreateDevice(min)
	if err != nil {
		return nil, nil, fmt.Errorf("create device on software adapter: %w", errors.Join(append(errs, err)...))
	}
	slogger().Warn("frameloop: using software adapter", "adapter", warp.Info().Name)
	return warp, dev, nil
}

const bytesPerMB = 1 << 20

// logHardwareInfo logs the adapter, its video memory, the device feature
// level and the attached display.
func logHardwareInfo(info driver.AdapterInfo, level driver.FeatureLevel) {
	p := message.NewPrinter(language.English)
	log := slogger()
	log.Info("frameloop: adapter",
		"name", info.Name,
		"software", info.Software,
		"budget", p.Sprintf("%d MB", info.Budget/bytesPerMB),
		"usage", p.Sprintf("%d MB", info.CurrentUsage/bytesPerMB))
	log.Info("frameloop: feature level", "max", level.String())
	if o := info.Output; o != nil {
		log.Info("frameloop: display",
			"name", o.Name,
			"resolution", p.Sprintf("%d x %d", o.Width, o.Height),
			"refresh", p.Sprintf("%d Hz", o.RefreshHz))
	}
}
