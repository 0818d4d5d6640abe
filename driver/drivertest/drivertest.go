// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package drivertest provides driver doubles for tests: a fence and a queue
// whose timing is under test control, and a factory wrapper that injects
// failing hardware adapters and records the creation order of objects.
package drivertest

import (
	"fmt"
	"sync"

	"github.com/gogpu/frameloop/driver"
)

// Log records driver calls in order. It is safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	events []string
}

func (l *Log) add(format string, args ...any) {
	l.mu.Lock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Fence is a fence whose completed value only moves when Complete is
// called, or when an event is armed and CompleteOnArm is set.
type Fence struct {
	// ArmErr is returned by SetEventOnCompletion when non-nil.
	ArmErr error
	// CompleteOnArm completes the armed value as soon as an event is armed,
	// simulating a GPU that finishes while the caller blocks.
	CompleteOnArm bool

	mu        sync.Mutex
	completed uint64
	armed     []uint64
	pending   map[uint64][]*driver.Event
	released  bool
}

var _ driver.Fence = (*Fence)(nil)

func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Complete raises the completed value to v and signals the events armed
// for values up to v. Lower values are ignored.
func (f *Fence) Complete(v uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeLocked(v)
}

func (f *Fence) completeLocked(v uint64) {
	if v > f.completed {
		f.completed = v
	}
	for value, evs := range f.pending {
		if value <= f.completed {
			for _, ev := range evs {
				ev.Signal()
			}
			delete(f.pending, value)
		}
	}
}

func (f *Fence) SetEventOnCompletion(value uint64, ev *driver.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ArmErr != nil {
		return f.ArmErr
	}
	f.armed = append(f.armed, value)
	if f.completed >= value {
		ev.Signal()
		return nil
	}
	if f.pending == nil {
		f.pending = make(map[uint64][]*driver.Event)
	}
	f.pending[value] = append(f.pending[value], ev)
	if f.CompleteOnArm {
		f.completeLocked(value)
	}
	return nil
}

// Abandon signals every armed event without completing its value, the
// way a driver wakes waiters once the device is lost.
func (f *Fence) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, evs := range f.pending {
		for _, ev := range evs {
			ev.Signal()
		}
	}
	clear(f.pending)
}

// Armed returns the values passed to SetEventOnCompletion.
func (f *Fence) Armed() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.armed...)
}

func (f *Fence) Release() {
	f.mu.Lock()
	f.released = true
	f.mu.Unlock()
}

// Released reports whether Release was called.
func (f *Fence) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// Queue is a queue that records what it is given.
type Queue struct {
	// Immediate completes a *Fence as soon as it is signaled.
	Immediate bool
	// SignalErr is returned by Signal when non-nil.
	SignalErr error

	mu       sync.Mutex
	batches  [][]driver.CmdList
	signals  []uint64
	released bool
}

var _ driver.Queue = (*Queue)(nil)

func (q *Queue) Execute(lists ...driver.CmdList) {
	q.mu.Lock()
	q.batches = append(q.batches, append([]driver.CmdList(nil), lists...))
	q.mu.Unlock()
}

func (q *Queue) Signal(f driver.Fence, value uint64) error {
	if q.SignalErr != nil {
		return q.SignalErr
	}
	q.mu.Lock()
	q.signals = append(q.signals, value)
	q.mu.Unlock()
	if tf, ok := f.(*Fence); ok && q.Immediate {
		tf.Complete(value)
	}
	return nil
}

func (q *Queue) Release() {
	q.mu.Lock()
	q.released = true
	q.mu.Unlock()
}

// Batches returns the number of Execute calls.
func (q *Queue) Batches() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.batches)
}

// Signals returns the signaled values in order.
func (q *Queue) Signals() []uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uint64(nil), q.signals...)
}
