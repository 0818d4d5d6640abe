// Package window defines the window and keyboard collaborators of the frame
// loop and provides a headless implementation.
package window

import "image/color"

// Key identifies a keyboard key.
type Key int

// Keys used by the engine and the demos.
const (
	KeyUnknown Key = iota
	KeyEscape
	KeyPause
	KeySpace
	KeyEnter
	KeyF1
	KeyV
	KeyW
)

var keyNames = map[string]Key{
	"escape": KeyEscape,
	"esc":    KeyEscape,
	"pause":  KeyPause,
	"space":  KeySpace,
	"enter":  KeyEnter,
	"f1":     KeyF1,
	"v":      KeyV,
	"w":      KeyW,
}

// ParseKey returns the key named s, or KeyUnknown.
func ParseKey(s string) Key {
	return keyNames[s]
}

// Window is the surface the frame loop presents into.
type Window interface {
	// Handle identifies the native window. Zero means none.
	Handle() uintptr
	Width() int
	Height() int
	// Color is the background color frames are cleared to.
	Color() color.Color
	Title() string
	SetTitle(title string)
	// PollEvents processes pending events. It returns false once the
	// window is closed.
	PollEvents() bool
	Close()
}

// Input reports keyboard state.
type Input interface {
	// KeyPress reports a key press once; later calls return false until
	// the key is pressed again.
	KeyPress(k Key) bool
	// KeyDown reports whether the key is held.
	KeyDown(k Key) bool
}
