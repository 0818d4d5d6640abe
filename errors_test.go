package frameloop

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/frameloop/driver"
)

func TestCheck(t *testing.T) {
	if check(nil) != nil {
		t.Fatal("check(nil) != nil")
	}
	err := check(fmt.Errorf("create thing: %w", driver.ErrNoDeviceMemory))
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("check returned %T", err)
	}
	if fe.Code != driver.CodeOutOfMemory {
		t.Errorf("Code = %#x, want %#x", uint32(fe.Code), uint32(driver.CodeOutOfMemory))
	}
	if fe.Func != "TestCheck" || fe.File != "errors_test.go" || fe.Line == 0 {
		t.Errorf("location = %s %s:%d", fe.Func, fe.File, fe.Line)
	}
	want := fmt.Sprintf("TestCheck failed in errors_test.go, line %d: create thing: driver: out of device memory", fe.Line)
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if again := check(err); again != err {
		t.Error("check rewrapped an *Error")
	}
}

func TestShortFuncName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"github.com/gogpu/frameloop.(*Graphics).Initialize", "(*Graphics).Initialize"},
		{"github.com/gogpu/frameloop.check", "check"},
		{"main.main", "main"},
		{"github.com/gogpu/frameloop.TestX.func1", "TestX.func1"},
	}
	for _, tt := range tests {
		if got := shortFuncName(tt.in); got != tt.want {
			t.Errorf("shortFuncName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStateError(t *testing.T) {
	err := error(&StateError{Resource: "depth stencil", Before: StateCommon, Actual: StateDepthWrite})
	if !errors.Is(err, ErrStateMismatch) {
		t.Error("StateError does not unwrap to ErrStateMismatch")
	}
	want := "frameloop: transition of depth stencil from Common, but it is in DepthWrite"
	if err.Error() != want {
		t.Errorf("Error() = %q", err.Error())
	}

	err = &StateError{Resource: "backbuffer 0", Before: StateRenderTarget, Actual: StateRenderTarget, Unchanged: true}
	want = "frameloop: transition of backbuffer 0 from RenderTarget to itself"
	if err.Error() != want {
		t.Errorf("Error() = %q", err.Error())
	}
}
