// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

// RowPitchAlignment is the required alignment of a row in an upload buffer.
const RowPitchAlignment = 256

// Footprint is the placement of a subresource inside an upload buffer.
type Footprint struct {
	Offset   uint64
	Width    uint64
	Height   uint32
	Depth    uint32
	RowPitch uint32
	NumRows  uint32
	RowSize  uint64
	// TotalBytes is the upload size needed for the whole copy.
	TotalBytes uint64
}

// AlignRowPitch rounds n up to RowPitchAlignment.
func AlignRowPitch(n uint64) uint64 {
	return (n + RowPitchAlignment - 1) &^ (RowPitchAlignment - 1)
}

// BufferFootprint returns the footprint of a buffer of size bytes: a
// single row of a single slice at offset zero.
func BufferFootprint(size uint64) Footprint {
	return Footprint{
		Width:      size,
		Height:     1,
		Depth:      1,
		RowPitch:   uint32(AlignRowPitch(size)),
		NumRows:    1,
		RowSize:    size,
		TotalBytes: size,
	}
}
