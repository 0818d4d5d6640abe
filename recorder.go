package frameloop

import (
	"fmt"

	"github.com/gogpu/frameloop/driver"
)

// Recorder is the single reusable command list and its allocator.
//
// A recording is opened by Reset (or ResetList), filled, closed and
// submitted through the Gate. Reset must not be called until the previous
// batch recorded from the allocator has completed; Graphics guarantees this
// because every submission blocks.
type Recorder struct {
	alloc driver.CmdAllocator
	list  driver.CmdList
	open  bool
	err   error

	// buffers referenced by the current recording.
	touched []*Buffer
	// transitions of the current recording, undone if it is discarded.
	undo []undoEntry
}

type undoEntry struct {
	state  *ResourceState
	before ResourceState
}

func newRecorder(dev driver.Device) (*Recorder, error) {
	alloc, err := dev.CreateCommandAllocator()
	if err != nil {
		return nil, fmt.Errorf("create command allocator: %w", err)
	}
	list, err := dev.CreateCommandList(alloc, nil)
	if err != nil {
		alloc.Release()
		return nil, fmt.Errorf("create command list: %w", err)
	}
	// Lists are created open.
	return &Recorder{alloc: alloc, list: list, open: true}, nil
}

// List returns the underlying command list.
func (r *Recorder) List() driver.CmdList { return r.list }

// Recording reports whether the recorder is open.
func (r *Recorder) Recording() bool { return r.open }

// Reset resets the allocator, then reopens the list with pso as its
// initial pipeline. pso may be nil.
func (r *Recorder) Reset(pso driver.Pipeline) error {
	if err := r.closeIfOpen(); err != nil {
		return err
	}
	if err := r.alloc.Reset(); err != nil {
		return fmt.Errorf("reset command allocator: %w", err)
	}
	return r.reopen(pso)
}

// ResetList reopens the list without resetting the allocator. Recording
// appends to the allocator's memory, so it is safe even while earlier
// batches are still in flight.
func (r *Recorder) ResetList(pso driver.Pipeline) error {
	if err := r.closeIfOpen(); err != nil {
		return err
	}
	return r.reopen(pso)
}

// closeIfOpen discards an open recording.
func (r *Recorder) closeIfOpen() error {
	if !r.open {
		return nil
	}
	slogger().Debug("frameloop: discarding open recording")
	return r.Close()
}

func (r *Recorder) reopen(pso driver.Pipeline) error {
	if err := r.list.Reset(r.alloc, pso); err != nil {
		return fmt.Errorf("reset command list: %w", err)
	}
	r.open = true
	r.forget()
	return nil
}

// Close seals the recording. It returns the first recording error, if
// any, such as commands recorded while closed.
func (r *Recorder) Close() error {
	if !r.open {
		return ErrRecorderClosed
	}
	r.open = false
	if err := r.list.Close(); err != nil {
		return fmt.Errorf("close command list: %w", err)
	}
	err := r.err
	r.err = nil
	return err
}

// ready reports whether commands may be recorded, remembering the first
// failure for Close.
func (r *Recorder) ready() bool {
	if r.open {
		return true
	}
	if r.err == nil {
		r.err = ErrRecorderClosed
	}
	return false
}

// Transition records a barrier moving res from before to after. The
// recorded state of res must be before and after must differ from it;
// otherwise a *StateError is returned and nothing is recorded.
func (r *Recorder) Transition(res Resource, before, after ResourceState) error {
	if !r.open {
		return ErrRecorderClosed
	}
	dr, state := res.tracked()
	if *state != before {
		return &StateError{Resource: res.Name(), Before: before, Actual: *state}
	}
	if before == after {
		return &StateError{Resource: res.Name(), Before: before, Actual: *state, Unchanged: true}
	}
	r.list.Barrier(driver.Barrier{Resource: dr, Before: before, After: after})
	r.undo = append(r.undo, undoEntry{state: state, before: before})
	*state = after
	if b, ok := res.(*Buffer); ok {
		r.touch(b)
	}
	slogger().Debug("frameloop: transition", "resource", res.Name(), "before", before.String(), "after", after.String())
	return nil
}

// SetRootSignature binds the root signature for the following draws.
func (r *Recorder) SetRootSignature(rs *RootSignature) {
	if r.ready() {
		r.list.SetRootSignature(rs.rs)
	}
}

// SetPipeline binds a pipeline for the following draws.
func (r *Recorder) SetPipeline(p *Pipeline) {
	if r.ready() {
		r.list.SetPipeline(p.pso)
	}
}

// VertexBufferView binds a buffer as vertex input.
type VertexBufferView struct {
	Buffer *Buffer
	Size   uint32
	Stride uint32
}

// SetVertexBuffers binds views starting at slot.
func (r *Recorder) SetVertexBuffers(slot int, views ...VertexBufferView) {
	if !r.ready() {
		return
	}
	dv := make([]driver.VertexBufferView, len(views))
	for i, v := range views {
		dv[i] = driver.VertexBufferView{Buffer: v.Buffer.buf, Size: v.Size, Stride: v.Stride}
		r.touch(v.Buffer)
	}
	r.list.SetVertexBuffers(slot, dv...)
}

// SetTopology sets the primitive topology.
func (r *Recorder) SetTopology(t driver.Topology) {
	if r.ready() {
		r.list.SetTopology(t)
	}
}

// Draw records a non-indexed instanced draw.
func (r *Recorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	if r.ready() {
		r.list.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

func (r *Recorder) touch(b *Buffer) {
	if b.recorded {
		return
	}
	b.recorded = true
	r.touched = append(r.touched, b)
}

// forget clears the references of a discarded recording and restores
// the state tags it changed.
func (r *Recorder) forget() {
	for _, b := range r.touched {
		b.recorded = false
	}
	r.touched = r.touched[:0]
	for i := len(r.undo) - 1; i >= 0; i-- {
		*r.undo[i].state = r.undo[i].before
	}
	r.undo = r.undo[:0]
}

// submitted stamps the buffers of the submitted recording with the gate
// value that covers them.
func (r *Recorder) submitted(value uint64) {
	for _, b := range r.touched {
		b.recorded = false
		b.lastUse = value
	}
	r.touched = r.touched[:0]
	r.undo = r.undo[:0]
}

func (r *Recorder) release() {
	r.list.Release()
	r.alloc.Release()
}
