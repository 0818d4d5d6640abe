// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, CodeOK},
		{"no device", ErrNoDevice, CodeNotFound},
		{"wrapped memory", fmt.Errorf("create buffer: %w", ErrNoDeviceMemory), CodeOutOfMemory},
		{"removed", ErrDeviceRemoved, CodeDeviceRemoved},
		{"allocator", ErrAllocatorInUse, CodeStillDrawing},
		{"other", errors.New("boom"), CodeFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestAlignRowPitch(t *testing.T) {
	tests := []struct {
		in, want uint64
	}{
		{0, 0},
		{1, 256},
		{108, 256},
		{256, 256},
		{257, 512},
	}
	for _, tt := range tests {
		if got := AlignRowPitch(tt.in); got != tt.want {
			t.Errorf("AlignRowPitch(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBufferFootprint(t *testing.T) {
	fp := BufferFootprint(108)
	if fp.RowSize != 108 || fp.Width != 108 {
		t.Errorf("RowSize/Width = %d/%d, want 108", fp.RowSize, fp.Width)
	}
	if fp.RowPitch != 256 {
		t.Errorf("RowPitch = %d, want 256", fp.RowPitch)
	}
	if fp.NumRows != 1 || fp.Depth != 1 || fp.Offset != 0 {
		t.Errorf("unexpected footprint %+v", fp)
	}
}

func TestEventAutoReset(t *testing.T) {
	ev := NewEvent()
	ev.Signal()
	ev.Signal()
	if !ev.Wait(time.Second) {
		t.Fatal("Wait() = false after Signal")
	}
	if ev.Wait(10 * time.Millisecond) {
		t.Fatal("event stayed set after a successful Wait")
	}

	done := make(chan struct{})
	go func() {
		ev.Wait(0)
		close(done)
	}()
	ev.Signal()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked waiter was not woken")
	}
}

func TestEventReset(t *testing.T) {
	ev := NewEvent()
	ev.Signal()
	ev.Reset()
	if ev.Wait(10 * time.Millisecond) {
		t.Error("Reset did not clear the event")
	}
}

func TestStrings(t *testing.T) {
	if got := StateCopyDest.String(); got != "CopyDest" {
		t.Errorf("StateCopyDest = %q", got)
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("State(42) = %q", got)
	}
	if got := FeatureLevel11_0.String(); got != "11_0" {
		t.Errorf("FeatureLevel11_0 = %q", got)
	}
	if got := HeapUpload.String(); got != "Upload" {
		t.Errorf("HeapUpload = %q", got)
	}
}

func TestSetLoggerNil(t *testing.T) {
	SetLogger(slog.Default())
	if Logger() != slog.Default() {
		t.Fatal("Logger() did not return the configured logger")
	}
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("nil logger should restore the silent default")
	}
}
