// Package detection provides face detection using computer vision
package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Box is a detected face in pixel coordinates
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromRect converts an image.Rectangle to a Box
func FromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the box as an image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Center returns the center point of the box
func (b Box) Center() image.Point {
	return image.Pt((b.X+(b.X+b.Width))/2, (b.Y+(b.Y+b.Height))/2)
}

// LegacyCenter swaps width and height when locating the center. It agrees
// with Center only for square boxes. Both round down; tracking.Displacement
// keeps the half pixel when measuring against the midpoint.
func (b Box) LegacyCenter() image.Point {
	return image.Pt((b.X+(b.X+b.Height))/2, (b.Y+(b.Y+b.Width))/2)
}

// Area returns the area of the bounding box
func (b Box) Area() int {
	return b.Width * b.Height
}

// Detector is the interface for face detection backends
type Detector interface {
	// Detect finds faces in a BGR frame and returns their boxes
	Detect(frame gocv.Mat) ([]Box, error)

	// Close releases resources
	Close() error
}

// Backend names
const (
	BackendHaar  = "haar"
	BackendYuNet = "yunet"
)

// Config holds detector configuration
type Config struct {
	Backend   string // "haar" or "yunet"
	ModelPath string // Cascade XML or ONNX model

	// Haar cascade
	Strictness   float64 // Scale step between pyramid levels; higher is stricter
	MinNeighbors int     // Overlapping hits needed to keep a candidate

	// YuNet
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns the stock frontal-face Haar cascade setup
func DefaultConfig() Config {
	return Config{
		Backend:          BackendHaar,
		ModelPath:        "haarcascade_frontalface_default.xml",
		Strictness:       1.2,
		MinNeighbors:     3, // OpenCV's own default
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// Validate checks the config and returns a list of problems, or nil if valid
func (c *Config) Validate() []string {
	var errors []string

	if c.Backend != BackendHaar && c.Backend != BackendYuNet {
		errors = append(errors, "backend must be haar or yunet")
	}
	if c.ModelPath == "" {
		errors = append(errors, "model path is required")
	}
	if c.Backend == BackendHaar {
		if c.Strictness <= 1.0 {
			errors = append(errors, "strictness must be greater than 1.0")
		}
		if c.MinNeighbors < 0 {
			errors = append(errors, "min neighbors must not be negative")
		}
	}
	if c.Backend == BackendYuNet && (c.ConfidenceThresh <= 0 || c.ConfidenceThresh > 1) {
		errors = append(errors, "confidence threshold must be in (0, 1]")
	}

	return errors
}

// New creates the detector selected by cfg.Backend
func New(cfg Config) (Detector, error) {
	switch cfg.Backend {
	case BackendHaar, "":
		return NewCascade(cfg)
	case BackendYuNet:
		return NewYuNet(cfg)
	default:
		return nil, fmt.Errorf("detection: unknown backend %q", cfg.Backend)
	}
}
