package frameloop

import (
	"fmt"
)

// Copy moves size bytes of src into the Default buffer target through the
// Upload buffer upload.
//
// The upload buffer is written immediately, row by row according to the
// target's copyable footprint. The copy into target is only recorded,
// bracketed by Common->CopyDest and CopyDest->GenericRead transitions; it
// takes effect when the recording is submitted. Copy never blocks.
func (g *Graphics) Copy(src []byte, size uint64, upload, target *Buffer) error {
	if err := g.usable(); err != nil {
		return err
	}
	if upload == nil || upload.placement != Upload {
		return check(fmt.Errorf("copy: staging buffer: %w", ErrWrongPlacement))
	}
	if target == nil || target.placement != Default {
		return check(fmt.Errorf("copy: target buffer: %w", ErrWrongPlacement))
	}
	if size == 0 || size > uint64(len(src)) || size > upload.Size() || size > target.Size() {
		return check(fmt.Errorf("copy: %d bytes from %d into %d/%d: %w",
			size, len(src), upload.Size(), target.Size(), ErrInvalidSize))
	}
	if !g.rec.Recording() {
		return check(fmt.Errorf("copy: %w", ErrRecorderClosed))
	}
	if target.state != StateCommon {
		return check(&StateError{Resource: target.name, Before: StateCommon, Actual: target.state})
	}

	fp := g.device.CopyableFootprint(target.buf)
	if fp.Offset+fp.TotalBytes > upload.Size() {
		return check(fmt.Errorf("copy: footprint of %d bytes at %d exceeds upload buffer: %w",
			fp.TotalBytes, fp.Offset, ErrInvalidSize))
	}

	mem, err := upload.buf.Map()
	if err != nil {
		return check(fmt.Errorf("copy: map upload buffer: %w", err))
	}
	writeRows(mem, src[:size], fp.Offset, uint64(fp.RowPitch), fp.RowSize, fp.NumRows, fp.Depth)
	upload.buf.Unmap()

	if err := g.rec.Transition(target, StateCommon, StateCopyDest); err != nil {
		return check(err)
	}
	g.rec.list.CopyBufferRegion(target.buf, 0, upload.buf, fp.Offset, min(fp.Width, size))
	g.rec.touch(upload)
	if err := g.rec.Transition(target, StateCopyDest, StateGenericRead); err != nil {
		return check(err)
	}
	return nil
}

// writeRows copies tightly packed rows of rowSize bytes from src into dst,
// where rows start rowPitch bytes apart. Only rowSize bytes per row are
// read, so src is never read past its end.
func writeRows(dst, src []byte, offset, rowPitch, rowSize uint64, rows, depth uint32) {
	slicePitch := rowPitch * uint64(rows)
	srcSlice := rowSize * uint64(rows)
	for z := uint64(0); z < uint64(depth); z++ {
		for y := uint64(0); y < uint64(rows); y++ {
			s := z*srcSlice + y*rowSize
			if s >= uint64(len(src)) {
				return
			}
			e := min(s+rowSize, uint64(len(src)))
			d := offset + z*slicePitch + y*rowPitch
			copy(dst[d:], src[s:e])
		}
	}
}
