package web

import "time"

// Config holds monitor server parameters
type Config struct {
	Addr          string        // Listen address, e.g. ":8090"
	FrameInterval time.Duration // Minimum gap between streamed camera frames
	JPEGQuality   int           // 1-100
}

// DefaultConfig returns a monitor on :8090 streaming at most 5 frames per second
func DefaultConfig() Config {
	return Config{
		Addr:          ":8090",
		FrameInterval: 200 * time.Millisecond,
		JPEGQuality:   70,
	}
}

// Validate checks the config and returns a list of problems, or nil if valid
func (c *Config) Validate() []string {
	var errors []string

	if c.Addr == "" {
		errors = append(errors, "monitor address is required")
	}
	if c.FrameInterval < 0 {
		errors = append(errors, "frame interval must not be negative")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errors = append(errors, "JPEG quality must be between 1 and 100")
	}

	return errors
}
