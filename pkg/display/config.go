// Package display draws the tracking overlay and shows frames on screen.
package display

import "image/color"

// Config holds window and overlay settings.
type Config struct {
	Title string
	Size  int // Window is Size x Size pixels

	ReticleColor  color.RGBA
	ReticleRadius int
	BoxColor      color.RGBA
	BoxThickness  int

	// Headless skips the window entirely (servers, CI, SSH sessions).
	Headless bool
}

// DefaultConfig returns the stock overlay: an amber dot at the midpoint and
// thick green face boxes in a 600x600 window.
func DefaultConfig() Config {
	return Config{
		Title:         "image",
		Size:          600,
		ReticleColor:  color.RGBA{R: 255, G: 223, B: 0, A: 0},
		ReticleRadius: 3,
		BoxColor:      color.RGBA{R: 0, G: 255, B: 0, A: 0},
		BoxThickness:  3,
	}
}

// Validate checks the config and returns a list of problems, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Size < 100 {
		errors = append(errors, "window size must be at least 100")
	}
	if c.ReticleRadius < 1 {
		errors = append(errors, "reticle radius must be at least 1")
	}
	if c.BoxThickness < 1 {
		errors = append(errors, "box thickness must be at least 1")
	}

	return errors
}
