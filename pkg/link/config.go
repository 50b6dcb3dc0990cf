// Package link talks to the mount controller over a serial port.
package link

import (
	"runtime"
	"time"
)

// Config holds serial link parameters.
type Config struct {
	Port        string        // Device name (COM4, /dev/ttyACM0, ...)
	BaudRate    int           // Must match the controller firmware
	SettleDelay time.Duration // Wait after open while the board resets
	DryRun      bool          // Log payloads instead of opening a port
}

// DefaultPort returns the usual first USB serial device for this platform.
func DefaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM4"
	}
	return "/dev/ttyACM0"
}

// DefaultConfig returns the settings the stock Arduino sketch expects.
func DefaultConfig() Config {
	return Config{
		Port:        DefaultPort(),
		BaudRate:    9600,
		SettleDelay: 2 * time.Second, // Opening the port resets most Arduino boards
	}
}

// Validate checks the config and returns a list of problems, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if !c.DryRun && c.Port == "" {
		errors = append(errors, "port is required")
	}
	if c.BaudRate <= 0 {
		errors = append(errors, "baud rate must be positive")
	}
	if c.SettleDelay < 0 {
		errors = append(errors, "settle delay must not be negative")
	}

	return errors
}
