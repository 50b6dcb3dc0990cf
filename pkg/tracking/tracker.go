// Package tracking runs the capture, detect, correct, display loop that keeps
// a motorized mount pointed at a face.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facetrack/internal/log"
	"github.com/teslashibe/go-facetrack/pkg/protocol"
	"github.com/teslashibe/go-facetrack/pkg/tracking/detection"
)

// ErrStopped is returned by Step once the tracker has stopped.
var ErrStopped = errors.New("tracking: stopped")

// State is the tracker lifecycle state
type State int

const (
	// Running processes one frame per Step
	Running State = iota
	// Stopped is terminal
	Stopped
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "running":
		*s = Running
	case "stopped":
		*s = Stopped
	default:
		return fmt.Errorf("tracking: unknown state %q", b)
	}
	return nil
}

// FrameSource interface for capturing frames
type FrameSource interface {
	Read(frame *gocv.Mat) error
}

// Locator interface for finding faces in a frame
type Locator interface {
	Detect(frame gocv.Mat) ([]detection.Box, error)
}

// Writer interface for sending corrections to the mount
type Writer interface {
	Write(p []byte) error
}

// Display interface for showing frames and reading keys
type Display interface {
	Show(frame gocv.Mat)
	PollKey(d time.Duration) int
}

// Annotator interface for drawing the overlay
type Annotator interface {
	Reticle(frame *gocv.Mat, p image.Point) error
	Box(frame *gocv.Mat, r image.Rectangle) error
}

// Observer receives a report after every processed frame
type Observer interface {
	Observe(r Report)
}

// FrameObserver additionally receives the annotated frame. The frame is only
// valid for the duration of the call.
type FrameObserver interface {
	ObserveFrame(frame gocv.Mat)
}

// Deps are the collaborators the tracker drives. Overlay and Observer are optional.
type Deps struct {
	Source   FrameSource
	Locator  Locator
	Link     Writer
	Display  Display
	Overlay  Annotator
	Observer Observer
}

// Report describes one processed frame
type Report struct {
	Frame        uint64                 `json:"frame"`
	Time         time.Time              `json:"time"`
	Faces        []detection.Box        `json:"faces"`
	Target       *detection.Box         `json:"target,omitempty"`
	Displacement *protocol.Displacement `json:"displacement,omitempty"`
	Sent         bool                   `json:"sent"`
	Payload      string                 `json:"payload,omitempty"`
	State        State                  `json:"state"`
}

// Stats are cumulative counters since start
type Stats struct {
	Frames uint64 `json:"frames"`
	Faces  uint64 `json:"faces"`
	Writes uint64 `json:"writes"`
}

// Tracker is the per-frame control loop
type Tracker struct {
	config Config
	deps   Deps
	frame  gocv.Mat

	mu    sync.RWMutex
	state State
	stats Stats
}

// New creates a tracker in the Running state
func New(config Config, deps Deps) *Tracker {
	return &Tracker{
		config: config,
		deps:   deps,
		frame:  gocv.NewMat(),
		state:  Running,
	}
}

// State returns the current state
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Stats returns a snapshot of the counters
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// Config returns the tracker configuration
func (t *Tracker) Config() Config {
	return t.config
}

func (t *Tracker) stop() {
	t.mu.Lock()
	t.state = Stopped
	t.mu.Unlock()
}

// Run steps until the exit key is pressed, ctx is cancelled, or a step fails.
// The first two are a clean stop and return nil.
func (t *Tracker) Run(ctx context.Context) error {
	log.Info("tracking started",
		"threshold", t.config.Threshold,
		"midpoint", t.config.Midpoint.String(),
		"policy", string(t.config.Policy),
		"legacy_center", t.config.LegacyCenter)

	var runErr error
	for t.State() == Running {
		if ctx.Err() != nil {
			t.stop()
			break
		}
		if _, err := t.Step(); err != nil {
			runErr = err
			break
		}
	}

	stats := t.Stats()
	if runErr != nil {
		log.Error("tracking failed", "error", runErr,
			"frames", stats.Frames, "faces", stats.Faces, "writes", stats.Writes)
		return runErr
	}

	log.Info("tracking stopped",
		"frames", stats.Frames, "faces", stats.Faces, "writes", stats.Writes)
	return nil
}

// Step processes exactly one frame. Any error stops the tracker.
func (t *Tracker) Step() (Report, error) {
	if t.State() == Stopped {
		return Report{State: Stopped}, ErrStopped
	}

	fail := func(err error) (Report, error) {
		t.stop()
		return Report{State: Stopped}, err
	}

	if err := t.deps.Source.Read(&t.frame); err != nil {
		return fail(fmt.Errorf("read frame: %w", err))
	}

	if t.deps.Overlay != nil {
		if err := t.deps.Overlay.Reticle(&t.frame, t.config.Midpoint); err != nil {
			return fail(err)
		}
	}

	boxes, err := t.deps.Locator.Detect(t.frame)
	if err != nil {
		return fail(fmt.Errorf("detect: %w", err))
	}

	if t.deps.Overlay != nil {
		for _, b := range boxes {
			if err := t.deps.Overlay.Box(&t.frame, b.Rect()); err != nil {
				return fail(err)
			}
		}
	}

	decision := Decide(boxes, t.config)

	report := Report{
		Time:         time.Now(),
		Faces:        boxes,
		Target:       decision.Target,
		Displacement: decision.Displacement,
		State:        Running,
	}

	if decision.Send {
		payload := protocol.Encode(*decision.Displacement)
		if err := t.deps.Link.Write(payload); err != nil {
			return fail(fmt.Errorf("send correction: %w", err))
		}
		report.Sent = true
		report.Payload = string(payload)
		log.Debug("correction sent", "payload", report.Payload, "faces", len(boxes))
	}

	t.deps.Display.Show(t.frame)

	t.mu.Lock()
	t.stats.Frames++
	t.stats.Faces += uint64(len(boxes))
	if report.Sent {
		t.stats.Writes++
	}
	report.Frame = t.stats.Frames
	t.mu.Unlock()

	if key := t.deps.Display.PollKey(t.config.PollDelay); key == t.config.ExitKey {
		log.Info("exit key pressed", "key", key)
		t.stop()
		report.State = Stopped
	}

	if t.deps.Observer != nil {
		t.deps.Observer.Observe(report)
		if fo, ok := t.deps.Observer.(FrameObserver); ok {
			fo.ObserveFrame(t.frame)
		}
	}

	return report, nil
}

// Close releases the frame buffer
func (t *Tracker) Close() error {
	return t.frame.Close()
}
