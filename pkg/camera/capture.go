package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facetrack/internal/log"
)

// device is the part of gocv.VideoCapture the source uses.
type device interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Capture is an open camera. Frames come out in arrival order; there is no seek.
type Capture struct {
	cfg    Config
	dev    device
	mu     sync.Mutex
	misses int
	frames uint64
	closed bool
}

// Open starts capturing from cfg.Index.
func Open(cfg Config) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, &CaptureError{Index: cfg.Index, Op: "open", Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &CaptureError{Index: cfg.Index, Op: "open", Err: fmt.Errorf("device not available")}
	}

	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	log.Info("camera opened", "index", cfg.Index,
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)))

	return newCapture(cfg, vc), nil
}

func newCapture(cfg Config, dev device) *Capture {
	return &Capture{cfg: cfg, dev: dev}
}

// Read fills frame with the next image. Empty reads are retried until
// MaxReadFailures consecutive misses, then ErrCapture is returned.
func (c *Capture) Read(frame *gocv.Mat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return &CaptureError{Index: c.cfg.Index, Op: "read", Err: fmt.Errorf("capture closed")}
	}

	for {
		if c.dev.Read(frame) && !frame.Empty() {
			c.misses = 0
			c.frames++
			return nil
		}

		c.misses++
		if c.misses >= c.cfg.MaxReadFailures {
			return &CaptureError{
				Index: c.cfg.Index,
				Op:    "read",
				Err:   fmt.Errorf("%d consecutive empty frames", c.misses),
			}
		}
		log.Debug("empty frame, retrying", "index", c.cfg.Index, "misses", c.misses)
	}
}

// Close releases the device. Calling it more than once is safe.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	log.Info("camera closed", "index", c.cfg.Index, "frames", c.frames)
	return c.dev.Close()
}
