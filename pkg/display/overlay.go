package display

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Overlay draws tracking annotations onto frames.
type Overlay struct {
	cfg Config
}

// NewOverlay creates an overlay with the colors and sizes from cfg.
func NewOverlay(cfg Config) *Overlay {
	return &Overlay{cfg: cfg}
}

// Reticle draws a filled dot at p.
func (o *Overlay) Reticle(frame *gocv.Mat, p image.Point) error {
	if err := gocv.Circle(frame, p, o.cfg.ReticleRadius, o.cfg.ReticleColor, -1); err != nil {
		return fmt.Errorf("draw reticle: %w", err)
	}
	return nil
}

// Box outlines r.
func (o *Overlay) Box(frame *gocv.Mat, r image.Rectangle) error {
	if err := gocv.Rectangle(frame, r, o.cfg.BoxColor, o.cfg.BoxThickness); err != nil {
		return fmt.Errorf("draw box: %w", err)
	}
	return nil
}
