// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"
	"time"

	"github.com/gogpu/frameloop/driver"
)

// refreshPeriod is the simulated vertical refresh interval.
const refreshPeriod = time.Second / 60

type swapchain struct {
	child
	q          *queue
	desc       driver.SwapchainDesc
	images     []*imageRes
	index      int
	fullscreen bool
	lastVBlank time.Time
}

func (s *swapchain) BufferCount() int  { return len(s.images) }
func (s *swapchain) CurrentIndex() int { return s.index }

func (s *swapchain) Image(i int) (driver.Image, error) {
	if i < 0 || i >= len(s.images) {
		return nil, fmt.Errorf("soft: swapchain image %d of %d: %w", i, len(s.images), driver.ErrInvalidArg)
	}
	return s.images[i], nil
}

// Present queues the current image for display and advances the index.
// The image must be in StatePresent when the timeline reaches it.
func (s *swapchain) Present(syncInterval int) error {
	if s.dev.removed.Load() {
		return driver.ErrDeviceRemoved
	}
	i := s.index
	img := s.images[i]
	f := s.dev.f
	if !s.q.push(func() {
		if img.state != driver.StatePresent {
			f.violate(fmt.Errorf("soft: present of image %d in state %s: %w", i, img.state, driver.ErrInvalidArg))
		}
		if f.present != nil {
			f.present(i, cloneRGBA(img.rgba))
		}
	}) {
		return fmt.Errorf("soft: present on a released queue: %w", driver.ErrInvalidArg)
	}
	if syncInterval > 0 {
		s.waitVBlank(syncInterval)
	}
	s.index = (i + 1) % len(s.images)
	return nil
}

func (s *swapchain) waitVBlank(interval int) {
	next := s.lastVBlank.Add(refreshPeriod * time.Duration(interval))
	if d := time.Until(next); d > 0 {
		time.Sleep(d)
	}
	s.lastVBlank = time.Now()
}

func (s *swapchain) SetFullscreen(on bool) error {
	if s.desc.Window == 0 && on {
		return fmt.Errorf("soft: fullscreen needs a window: %w", driver.ErrUnsupported)
	}
	s.fullscreen = on
	return nil
}

// Release releases the swapchain. Its images must be released first and
// it must not be in fullscreen mode.
func (s *swapchain) Release() {
	if s.fullscreen {
		s.dev.f.violate(fmt.Errorf("soft: swapchain released in fullscreen mode: %w", driver.ErrInvalidArg))
	}
	for i, img := range s.images {
		if !img.released {
			s.dev.f.violate(fmt.Errorf("soft: swapchain released before image %d: %w", i, driver.ErrInvalidArg))
		}
	}
	s.release()
}
