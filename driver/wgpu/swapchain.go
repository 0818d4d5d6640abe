// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameloop/driver"
)

// swapchain is a ring of offscreen textures. Present reads the current one
// back and hands it to the PresentFunc.
type swapchain struct {
	d          *device
	desc       driver.SwapchainDesc
	present    PresentFunc
	images     []*texture
	index      int
	fullscreen bool
}

var _ driver.Swapchain = (*swapchain)(nil)

func (s *swapchain) BufferCount() int  { return len(s.images) }
func (s *swapchain) CurrentIndex() int { return s.index }

func (s *swapchain) Image(i int) (driver.Image, error) {
	if i < 0 || i >= len(s.images) {
		return nil, fmt.Errorf("wgpu: swapchain image %d of %d: %w", i, len(s.images), driver.ErrInvalidArg)
	}
	return s.images[i], nil
}

// Present shows the current image and advances the index. Readback is
// synchronous, so syncInterval has no further effect.
func (s *swapchain) Present(syncInterval int) error {
	if err := s.d.alive(); err != nil {
		return err
	}
	i := s.index
	img := s.images[i]
	if img.state != driver.StatePresent {
		s.d.f.violate(fmt.Errorf("wgpu: present of image %d in state %s: %w", i, img.state, driver.ErrInvalidArg))
	}
	if s.present != nil {
		rgba, err := s.readback(img)
		if err != nil {
			s.d.markLost("present", err)
			return fmt.Errorf("wgpu: present: %v: %w", err, driver.ErrDeviceRemoved)
		}
		s.present(i, rgba)
	}
	s.index = (i + 1) % len(s.images)
	return nil
}

// copyPitchAlignment is the required BytesPerRow alignment of a texture
// to buffer copy.
const copyPitchAlignment = driver.RowPitchAlignment

// readback copies img into a staging buffer, waits for the copy and strips
// the row padding.
func (s *swapchain) readback(img *texture) (*image.RGBA, error) {
	dev := s.d.hal
	w, h := uint32(img.w), uint32(img.h)
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "present-staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer dev.DestroyBuffer(staging)

	enc, err := dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "present-encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("present"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.hal,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	enc.CopyTextureToBuffer(img.hal, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: img.hal, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.hal,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmd, err := enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer dev.FreeCommandBuffer(cmd)

	f, err := dev.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer dev.DestroyFence(f)
	if err := s.d.queue.Submit([]hal.CommandBuffer{cmd}, f, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	ok, err := dev.Wait(f, 1, s.d.f.waitTimeout)
	if err != nil || !ok {
		return nil, fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err)
	}

	data := make([]byte, size)
	if err := s.d.queue.ReadBuffer(staging, 0, data); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, img.w, img.h))
	for y := 0; y < img.h; y++ {
		src := data[y*int(alignedBytesPerRow):]
		copy(rgba.Pix[y*rgba.Stride:(y+1)*rgba.Stride], src[:bytesPerRow])
	}
	return rgba, nil
}

func (s *swapchain) SetFullscreen(on bool) error {
	if s.desc.Window == 0 && on {
		return fmt.Errorf("wgpu: fullscreen needs a window: %w", driver.ErrUnsupported)
	}
	s.fullscreen = on
	return nil
}

// Release releases the swapchain. Its images must be released first and
// it must not be in fullscreen mode.
func (s *swapchain) Release() {
	if s.fullscreen {
		s.d.f.violate(fmt.Errorf("wgpu: swapchain released in fullscreen mode: %w", driver.ErrInvalidArg))
	}
	for i, img := range s.images {
		if !img.released {
			s.d.f.violate(fmt.Errorf("wgpu: swapchain released before image %d: %w", i, driver.ErrInvalidArg))
			img.Release()
		}
	}
}
