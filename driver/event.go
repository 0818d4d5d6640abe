// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "time"

// Event is an auto-reset wait object. A Signal wakes at most one Wait; a
// Signal with no waiter is remembered until the next Wait.
type Event struct {
	ch chan struct{}
}

// NewEvent returns an unsignaled event.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{}, 1)}
}

// Signal sets the event. Signaling a set event has no effect.
func (e *Event) Signal() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the event is set and then clears it. A timeout of
// zero or less waits forever. It reports whether the event was set.
func (e *Event) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-e.ch
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-e.ch:
		return true
	case <-t.C:
		return false
	}
}

// Reset clears the event without waiting.
func (e *Event) Reset() {
	select {
	case <-e.ch:
	default:
	}
}
