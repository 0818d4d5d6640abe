package window

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"
)

// FrameSink receives presented frames.
type FrameSink interface {
	Frame(index int, img *image.RGBA) error
}

// HeadlessOption configures a Headless window.
type HeadlessOption func(*Headless)

// WithSize sets the client size. The default is 800x600.
func WithSize(w, h int) HeadlessOption {
	return func(hw *Headless) { hw.width, hw.height = w, h }
}

// WithTitle sets the window title.
func WithTitle(title string) HeadlessOption {
	return func(hw *Headless) { hw.title, hw.baseTitle = title, title }
}

// WithColor sets the background color.
func WithColor(c color.Color) HeadlessOption {
	return func(hw *Headless) { hw.bg = c }
}

// WithFrames closes the window after n polls. Zero means never.
func WithFrames(n int) HeadlessOption {
	return func(hw *Headless) { hw.maxFrames = n }
}

// WithKeyPress presses k during poll number frame, counting from 1.
func WithKeyPress(frame int, k Key) HeadlessOption {
	return func(hw *Headless) {
		hw.script[frame] = append(hw.script[frame], k)
	}
}

// WithSink delivers presented frames to s.
func WithSink(s FrameSink) HeadlessOption {
	return func(hw *Headless) { hw.sink = s }
}

// WithFullscreen requests a fullscreen surface.
func WithFullscreen(on bool) HeadlessOption {
	return func(hw *Headless) { hw.fullscreen = on }
}

var nextHandle atomic.Uintptr

// Headless is a window without a display. Key presses are scripted per
// poll and presented frames go to an optional FrameSink. It implements
// both Window and Input.
type Headless struct {
	handle     uintptr
	width      int
	height     int
	title      string
	baseTitle  string
	bg         color.Color
	fullscreen bool
	maxFrames  int
	script     map[int][]Key

	frame   int
	closed  bool
	pressed map[Key]bool
	down    map[Key]bool

	mu     sync.Mutex
	sink   FrameSink
	frames int
	err    error
}

var (
	_ Window = (*Headless)(nil)
	_ Input  = (*Headless)(nil)
)

// NewHeadless returns a headless window.
func NewHeadless(opts ...HeadlessOption) *Headless {
	hw := &Headless{
		handle:  nextHandle.Add(1),
		width:   800,
		height:  600,
		title:   "frameloop",
		bg:      color.Black,
		script:  make(map[int][]Key),
		pressed: make(map[Key]bool),
		down:    make(map[Key]bool),
	}
	hw.baseTitle = hw.title
	for _, opt := range opts {
		opt(hw)
	}
	return hw
}

func (hw *Headless) Handle() uintptr       { return hw.handle }
func (hw *Headless) Width() int            { return hw.width }
func (hw *Headless) Height() int           { return hw.height }
func (hw *Headless) Color() color.Color    { return hw.bg }
func (hw *Headless) Title() string         { return hw.baseTitle }
func (hw *Headless) Fullscreen() bool      { return hw.fullscreen }
func (hw *Headless) SetTitle(title string) { hw.title = title }

// Caption returns the title last set with SetTitle.
func (hw *Headless) Caption() string { return hw.title }

// Polls returns the number of successful PollEvents calls.
func (hw *Headless) Polls() int { return hw.frame }

// PollEvents applies the key presses scripted for the next poll.
func (hw *Headless) PollEvents() bool {
	if hw.closed {
		return false
	}
	if hw.maxFrames > 0 && hw.frame >= hw.maxFrames {
		hw.closed = true
		return false
	}
	hw.frame++
	clear(hw.pressed)
	clear(hw.down)
	for _, k := range hw.script[hw.frame] {
		hw.pressed[k] = true
		hw.down[k] = true
	}
	return true
}

func (hw *Headless) Close() { hw.closed = true }

func (hw *Headless) KeyPress(k Key) bool {
	if hw.pressed[k] {
		delete(hw.pressed, k)
		return true
	}
	return false
}

func (hw *Headless) KeyDown(k Key) bool { return hw.down[k] }

// Deliver hands a presented frame to the sink. It may be called from any
// goroutine. The first sink error is kept and reported by Err.
func (hw *Headless) Deliver(index int, img *image.RGBA) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.frames++
	if hw.sink == nil || hw.err != nil {
		return
	}
	hw.err = hw.sink.Frame(index, img)
}

// Delivered returns the number of frames passed to Deliver.
func (hw *Headless) Delivered() int {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.frames
}

// Err returns the first error returned by the sink.
func (hw *Headless) Err() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.err
}
