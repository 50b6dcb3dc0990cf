// Package camera wraps a local capture device as a frame source.
package camera

// Config holds capture parameters.
type Config struct {
	Index  int // Capture device index (0 = system default camera)
	Width  int // Requested frame width in pixels, 0 keeps the driver default
	Height int // Requested frame height in pixels, 0 keeps the driver default

	// MaxReadFailures is how many empty reads in a row are tolerated before
	// the source gives up. A good frame resets the count.
	MaxReadFailures int
}

// Limits for requested resolution.
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 4096
	MaxHeight = 2160
)

// DefaultConfig returns the setup the tracker was calibrated with:
// a secondary USB webcam at 4:3 480p.
func DefaultConfig() Config {
	return Config{
		Index:           1,
		Width:           640,
		Height:          480,
		MaxReadFailures: 30, // ~1s of dropped frames at 30fps
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Index < 0 {
		errors = append(errors, "camera index must not be negative")
	}

	// Zero means "driver default"
	if c.Width != 0 && (c.Width < MinWidth || c.Width > MaxWidth) {
		errors = append(errors, "width must be 0 or between 160 and 4096")
	}
	if c.Height != 0 && (c.Height < MinHeight || c.Height > MaxHeight) {
		errors = append(errors, "height must be 0 or between 120 and 2160")
	}

	if c.MaxReadFailures < 1 {
		errors = append(errors, "max read failures must be at least 1")
	}

	return errors
}
