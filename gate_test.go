package frameloop

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/frameloop/driver"
	"github.com/gogpu/frameloop/driver/drivertest"
)

func TestGateDoesNotBlockWhenAlreadyComplete(t *testing.T) {
	q := &drivertest.Queue{Immediate: true}
	f := &drivertest.Fence{}
	g := NewGate(q, f, 0)

	for i := 0; i < 3; i++ {
		if !g.Submit() {
			t.Fatalf("Submit %d failed: %v", i, g.Err())
		}
	}
	if g.Blocks() != 0 {
		t.Errorf("Blocks() = %d, want 0", g.Blocks())
	}
	if len(f.Armed()) != 0 {
		t.Errorf("armed = %v, want none", f.Armed())
	}
	if got := q.Signals(); !slices.Equal(got, []uint64{1, 2, 3}) {
		t.Errorf("signals = %v, want [1 2 3]", got)
	}
	if q.Batches() != 3 || g.Waits() != 3 {
		t.Errorf("batches/waits = %d/%d, want 3/3", q.Batches(), g.Waits())
	}
}

func TestGateBlocksUntilComplete(t *testing.T) {
	q := &drivertest.Queue{}
	f := &drivertest.Fence{CompleteOnArm: true}
	g := NewGate(q, f, time.Second)

	if !g.Wait() || !g.Wait() {
		t.Fatalf("Wait failed: %v", g.Err())
	}
	if g.Blocks() != 2 {
		t.Errorf("Blocks() = %d, want 2", g.Blocks())
	}
	if got := f.Armed(); !slices.Equal(got, []uint64{1, 2}) {
		t.Errorf("armed = %v, want [1 2]", got)
	}
	if g.Completed() != 2 {
		t.Errorf("Completed() = %d, want 2", g.Completed())
	}
}

func TestGateCompletedByAnotherGoroutine(t *testing.T) {
	q := &drivertest.Queue{}
	f := &drivertest.Fence{}
	g := NewGate(q, f, 5*time.Second)

	go func() {
		for len(f.Armed()) == 0 {
			time.Sleep(time.Millisecond)
		}
		f.Complete(1)
	}()
	if !g.Wait() {
		t.Fatalf("Wait failed: %v", g.Err())
	}
	if g.Err() != nil {
		t.Errorf("Err() = %v after success", g.Err())
	}
}

func TestGateStartsAtFenceValue(t *testing.T) {
	f := &drivertest.Fence{}
	f.Complete(41)
	g := NewGate(&drivertest.Queue{Immediate: true}, f, 0)
	if g.Counter() != 41 {
		t.Fatalf("Counter() = %d, want 41", g.Counter())
	}
	g.Wait()
	if g.Counter() != 42 {
		t.Errorf("Counter() = %d, want 42", g.Counter())
	}
}

func TestGateFailures(t *testing.T) {
	tests := []struct {
		name  string
		queue *drivertest.Queue
		fence *drivertest.Fence
		want  error
	}{
		{
			name:  "signal",
			queue: &drivertest.Queue{SignalErr: driver.ErrDeviceRemoved},
			fence: &drivertest.Fence{},
			want:  driver.ErrDeviceRemoved,
		},
		{
			name:  "arm",
			queue: &drivertest.Queue{},
			fence: &drivertest.Fence{ArmErr: driver.ErrInvalidArg},
			want:  driver.ErrInvalidArg,
		},
		{
			name:  "timeout",
			queue: &drivertest.Queue{},
			fence: &drivertest.Fence{},
			want:  ErrTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(tt.queue, tt.fence, 10*time.Millisecond)
			if g.Wait() {
				t.Fatal("Wait succeeded")
			}
			if !errors.Is(g.Err(), tt.want) {
				t.Errorf("Err() = %v, want %v", g.Err(), tt.want)
			}
			if g.Counter() != 1 {
				t.Errorf("Counter() = %d, want 1", g.Counter())
			}
		})
	}
}

// A wake without completion, as after a device loss, fails the wait even
// without a timeout.
func TestGateWakeWithoutCompletion(t *testing.T) {
	q := &drivertest.Queue{}
	f := &drivertest.Fence{}
	g := NewGate(q, f, 0)

	done := make(chan bool)
	go func() { done <- g.Wait() }()
	for len(f.Armed()) == 0 {
		time.Sleep(time.Millisecond)
	}
	f.Abandon()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("Wait succeeded although value 1 never completed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait still blocked after the fence was abandoned")
	}
	if !errors.Is(g.Err(), ErrDeviceLost) {
		t.Errorf("Err() = %v, want ErrDeviceLost", g.Err())
	}
}

// A signal arriving after a timed out wait must not release the next wait.
func TestGateLateSignalAfterTimeout(t *testing.T) {
	q := &drivertest.Queue{}
	f := &drivertest.Fence{}
	g := NewGate(q, f, 10*time.Millisecond)
	if g.Wait() {
		t.Fatal("first Wait succeeded")
	}
	f.Complete(1)
	if g.Wait() {
		t.Fatal("second Wait succeeded although value 2 never completed")
	}
	if !errors.Is(g.Err(), ErrTimeout) {
		t.Errorf("Err() = %v, want ErrTimeout", g.Err())
	}
}
