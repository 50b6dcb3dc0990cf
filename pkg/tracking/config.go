package tracking

import (
	"image"
	"time"

	"github.com/teslashibe/go-facetrack/pkg/tracking/detection"
)

// Config holds all tunable parameters for the tracking loop
type Config struct {
	// Dead zone: no correction is sent while both axes are within this many pixels
	Threshold int

	// Midpoint is the fixed point faces are steered toward
	Midpoint image.Point

	// Selection
	Policy       detection.Policy // Which face drives the mount when several are found
	LegacyCenter bool             // Use the width/height-swapped center formula

	// Input
	PollDelay time.Duration // How long to wait for a key each frame
	ExitKey   int           // Key code that stops the loop
}

// DefaultWindowSize is the side of the square preview window in pixels.
const DefaultWindowSize = 600

// MidpointFor returns the center of a square window of the given size
func MidpointFor(windowSize int) image.Point {
	return image.Pt(windowSize/2, windowSize/2)
}

// DefaultConfig returns the configuration the stock mount firmware is tuned for
func DefaultConfig() Config {
	return Config{
		Threshold: 30,
		Midpoint:  MidpointFor(DefaultWindowSize),

		Policy:       detection.PolicyLargest,
		LegacyCenter: false,

		PollDelay: 30 * time.Millisecond,
		ExitKey:   27, // ESC
	}
}

// LegacyConfig reproduces the first mount setup exactly: the swapped center
// formula and last-face-wins selection
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Policy = detection.PolicyLast
	cfg.LegacyCenter = true
	return cfg
}

// Validate checks the config and returns a list of problems, or nil if valid
func (c *Config) Validate() []string {
	var errors []string

	if c.Threshold < 0 {
		errors = append(errors, "threshold must not be negative")
	}
	if c.Midpoint.X < 0 || c.Midpoint.Y < 0 {
		errors = append(errors, "midpoint must not be negative")
	}
	if _, err := detection.ParsePolicy(string(c.Policy)); err != nil {
		errors = append(errors, "policy must be last, largest or nearest")
	}
	if c.PollDelay <= 0 {
		errors = append(errors, "poll delay must be positive")
	}
	if c.ExitKey < 0 || c.ExitKey > 255 {
		errors = append(errors, "exit key must be a byte value")
	}

	return errors
}
