// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "errors"

// Errors returned by driver implementations.
var (
	// ErrNoDevice means that no adapter could create a device.
	ErrNoDevice = errors.New("driver: no suitable device")

	// ErrNoDeviceMemory means that a device allocation failed.
	ErrNoDeviceMemory = errors.New("driver: out of device memory")

	// ErrInvalidArg means that a call was made with invalid parameters,
	// including state transitions whose Before does not match.
	ErrInvalidArg = errors.New("driver: invalid argument")

	// ErrDeviceRemoved means that the device was lost and every object
	// created from it is unusable.
	ErrDeviceRemoved = errors.New("driver: device removed")

	// ErrAllocatorInUse means that a command allocator was reset while
	// the GPU was still executing commands recorded from it.
	ErrAllocatorInUse = errors.New("driver: command allocator in use")

	// ErrUnsupported means that the backend does not implement a feature.
	ErrUnsupported = errors.New("driver: unsupported")

	// ErrNotMappable means that Map was called on a buffer outside the
	// upload heap.
	ErrNotMappable = errors.New("driver: buffer is not mappable")
)

// Code is an HRESULT-like numeric result code, kept so that failures can
// be reported the same way across backends.
type Code uint32

// Result codes. CodeOK is returned for a nil error.
const (
	CodeOK            Code = 0x00000000
	CodeFail          Code = 0x80004005
	CodeNotImpl       Code = 0x80004001
	CodeOutOfMemory   Code = 0x8007000E
	CodeInvalidArg    Code = 0x80070057
	CodeDeviceRemoved Code = 0x887A0005
	CodeUnsupported   Code = 0x887A0004
	CodeNotFound      Code = 0x887A0002
	CodeStillDrawing  Code = 0x887A000A
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrNoDevice, CodeNotFound},
	{ErrNoDeviceMemory, CodeOutOfMemory},
	{ErrInvalidArg, CodeInvalidArg},
	{ErrDeviceRemoved, CodeDeviceRemoved},
	{ErrAllocatorInUse, CodeStillDrawing},
	{ErrUnsupported, CodeUnsupported},
	{ErrNotMappable, CodeInvalidArg},
}

// CodeOf maps err to a result code. Errors wrapping none of the driver
// sentinels map to CodeFail.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeFail
}
