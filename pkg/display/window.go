package display

import (
	"time"

	"gocv.io/x/gocv"
)

// NoKey is returned by PollKey when nothing was pressed.
const NoKey = -1

// KeyEscape is the default exit key.
const KeyEscape = 27

// Sink shows frames and reports key presses.
type Sink interface {
	Show(frame gocv.Mat)
	// PollKey waits up to d for a key and returns its code or NoKey.
	PollKey(d time.Duration) int
	Close() error
}

// Window is an on-screen OpenCV window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a Size x Size window titled cfg.Title.
func NewWindow(cfg Config) *Window {
	w := gocv.NewWindow(cfg.Title)
	w.ResizeWindow(cfg.Size, cfg.Size)
	return &Window{window: w}
}

// Show renders frame in the window.
func (w *Window) Show(frame gocv.Mat) {
	w.window.IMShow(frame)
}

// PollKey pumps window events for d and returns the key pressed, if any.
func (w *Window) PollKey(d time.Duration) int {
	ms := int(d / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	key := w.window.WaitKey(ms)
	if key < 0 {
		return NoKey
	}
	return key & 0xFF
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// Headless discards frames. PollKey just sleeps so the loop keeps its pace.
type Headless struct{}

// NewHeadless creates a sink with no window.
func NewHeadless() *Headless {
	return &Headless{}
}

// Show does nothing.
func (Headless) Show(gocv.Mat) {}

// PollKey sleeps for d and reports no key.
func (Headless) PollKey(d time.Duration) int {
	time.Sleep(d)
	return NoKey
}

// Close does nothing.
func (Headless) Close() error { return nil }

// New returns a window, or a headless sink when cfg.Headless is set.
func New(cfg Config) Sink {
	if cfg.Headless {
		return NewHeadless()
	}
	return NewWindow(cfg)
}
