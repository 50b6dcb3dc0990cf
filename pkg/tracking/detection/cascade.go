package detection

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facetrack/internal/log"
)

// CascadeDetector finds faces with an OpenCV Haar cascade
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	gray       gocv.Mat
	config     Config
	mu         sync.Mutex // Protects classifier and gray buffer
}

// NewCascade loads the cascade XML at cfg.ModelPath
func NewCascade(cfg Config) (*CascadeDetector, error) {
	// Check if model file exists first
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, &ModelLoadError{Backend: BackendHaar, Path: cfg.ModelPath, Err: err}
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.ModelPath) {
		classifier.Close()
		return nil, &ModelLoadError{
			Backend: BackendHaar,
			Path:    cfg.ModelPath,
			Err:     errors.New("not a valid cascade file"),
		}
	}

	log.Debug("cascade loaded", "path", cfg.ModelPath,
		"strictness", cfg.Strictness, "min_neighbors", cfg.MinNeighbors)

	return &CascadeDetector{
		classifier: classifier,
		gray:       gocv.NewMat(),
		config:     cfg,
	}, nil
}

// Detect converts frame to grayscale and runs the cascade on it
func (d *CascadeDetector) Detect(frame gocv.Mat) ([]Box, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	if frame.Channels() == 1 {
		frame.CopyTo(&d.gray)
	} else if err := gocv.CvtColor(frame, &d.gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("grayscale: %w", err)
	}

	rects := d.classifier.DetectMultiScaleWithParams(
		d.gray,
		d.config.Strictness,
		d.config.MinNeighbors,
		0,             // Flags (unused by new-style cascades)
		image.Point{}, // No minimum size
		image.Point{}, // No maximum size
	)

	boxes := make([]Box, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, FromRect(r))
	}

	if len(boxes) > 0 {
		log.Debug("cascade found faces", "count", len(boxes))
	}

	return boxes, nil
}

// Close releases the classifier and buffers
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gray.Close()
	return d.classifier.Close()
}
