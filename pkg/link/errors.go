package link

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrConnection is returned when the port cannot be opened or is busy.
	ErrConnection = errors.New("link: connection failed")

	// ErrClosed is returned when writing to a closed link.
	ErrClosed = errors.New("link: closed")

	// ErrShortWrite is returned when the port accepted fewer bytes than given.
	ErrShortWrite = errors.New("link: short write")
)

// ConnectError describes why a port could not be opened.
type ConnectError struct {
	// Port is the device name, e.g. /dev/ttyACM0 or COM4.
	Port string

	// Reason is a short classification: "busy", "not found", "permission denied" or "".
	Reason string

	// Err is the underlying driver error.
	Err error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("link [%s]: %s: %v", e.Port, e.Reason, e.Err)
	}
	return fmt.Sprintf("link [%s]: %v", e.Port, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Is makes every ConnectError match ErrConnection.
func (e *ConnectError) Is(target error) bool {
	return target == ErrConnection
}

// IsBusy returns true if another process holds the port.
func (e *ConnectError) IsBusy() bool {
	return e.Reason == reasonBusy
}

// IsNotFound returns true if the port does not exist.
func (e *ConnectError) IsNotFound() bool {
	return e.Reason == reasonNotFound
}

const (
	reasonBusy       = "busy"
	reasonNotFound   = "not found"
	reasonPermission = "permission denied"
)
