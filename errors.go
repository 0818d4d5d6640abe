package frameloop

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gogpu/frameloop/driver"
)

// Package errors.
var (
	// ErrNotInitialized is returned when Graphics is used before Initialize.
	ErrNotInitialized = errors.New("frameloop: graphics not initialized")

	// ErrDeviceLost is returned when a submission could not be confirmed
	// complete. The device is unusable afterwards.
	ErrDeviceLost = errors.New("frameloop: device lost")

	// ErrStateMismatch is returned when a transition names a before state
	// the resource is not in.
	ErrStateMismatch = errors.New("frameloop: resource state mismatch")

	// ErrInvalidSize is returned for zero sizes and sizes that do not fit
	// the buffers involved.
	ErrInvalidSize = errors.New("frameloop: invalid size")

	// ErrWrongPlacement is returned when a buffer of the wrong placement is
	// passed to a staging copy.
	ErrWrongPlacement = errors.New("frameloop: wrong buffer placement")

	// ErrRecorderClosed is returned when commands are recorded into a
	// closed recorder.
	ErrRecorderClosed = errors.New("frameloop: recorder is closed")

	// ErrResourcePending is returned when a resource is released while an
	// unsubmitted recording still references it.
	ErrResourcePending = errors.New("frameloop: resource referenced by unsubmitted commands")

	// ErrTimeout is returned when a fence wait exceeds the configured
	// timeout.
	ErrTimeout = errors.New("frameloop: fence wait timed out")

	// ErrClosed is returned when Graphics is used after Close.
	ErrClosed = errors.New("frameloop: graphics closed")
)

// Error is a failure of a GPU call, annotated with the call site that
// issued it.
type Error struct {
	Code driver.Code
	Func string
	File string
	Line int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed in %s, line %d: %v", e.Func, e.File, e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// check wraps a non-nil err into an *Error located at its caller. Errors
// that already are an *Error are returned unchanged.
func check(err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	e := &Error{Code: driver.CodeOf(err), Func: "?", File: "?", Err: err}
	if pc, file, line, ok := runtime.Caller(1); ok {
		e.File = filepath.Base(file)
		e.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.Func = shortFuncName(fn.Name())
		}
	}
	return e
}

// shortFuncName strips the import path from a runtime function name:
// "github.com/x/frameloop.(*Graphics).Initialize" becomes
// "(*Graphics).Initialize".
func shortFuncName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// StateError reports a transition whose before state does not match the
// state recorded on the resource, or one that would not change the state.
// No barrier is recorded.
type StateError struct {
	Resource string
	Before   ResourceState
	Actual   ResourceState
	// Unchanged is set when before and after are the same state.
	Unchanged bool
}

func (e *StateError) Error() string {
	if e.Unchanged {
		return fmt.Sprintf("frameloop: transition of %s from %s to itself", e.Resource, e.Before)
	}
	return fmt.Sprintf("frameloop: transition of %s from %s, but it is in %s", e.Resource, e.Before, e.Actual)
}

func (e *StateError) Unwrap() error { return ErrStateMismatch }
