package engine

import "time"

// Timer measures frame time. A stopped timer does not count the time
// until it is started again.
type Timer struct {
	now     func() time.Time
	start   time.Time
	end     time.Time
	stopped bool
}

// NewTimer returns a timer reading the wall clock.
func NewTimer() *Timer {
	return &Timer{now: time.Now}
}

// Start starts the timer, or resumes it after Stop.
func (t *Timer) Start() {
	if t.stopped {
		t.start = t.now().Add(-t.end.Sub(t.start))
		t.stopped = false
		return
	}
	t.start = t.now()
}

// Stop pauses the timer.
func (t *Timer) Stop() {
	if !t.stopped {
		t.end = t.now()
		t.stopped = true
	}
}

// Reset returns the time elapsed since the last Reset or Start and restarts
// the measurement. A stopped timer is restarted.
func (t *Timer) Reset() time.Duration {
	if t.stopped {
		elapsed := t.end.Sub(t.start)
		t.start = t.now()
		t.stopped = false
		return elapsed
	}
	t.end = t.now()
	elapsed := t.end.Sub(t.start)
	t.start = t.end
	return elapsed
}

// Stopped reports whether the timer is stopped.
func (t *Timer) Stopped() bool { return t.stopped }
