package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/teslashibe/go-facetrack/internal/log"
)

// Writer is the one operation the tracking loop needs from a link.
type Writer interface {
	Write(p []byte) error
}

// port is the part of serial.Port the link uses.
type port interface {
	io.Writer
	io.Closer
}

// opener opens a port. Replaced in tests.
type opener func(name string, baud int) (port, error)

func openSerial(name string, baud int) (port, error) {
	return serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Serial is an open connection to the mount controller.
type Serial struct {
	name string
	port port

	mu     sync.Mutex
	closed bool
	writes uint64
}

// Connect opens the port and waits cfg.SettleDelay for the board to boot.
// The wait can be cut short by ctx, in which case the port is closed again.
func Connect(ctx context.Context, cfg Config) (*Serial, error) {
	return connect(ctx, cfg, openSerial)
}

func connect(ctx context.Context, cfg Config, open opener) (*Serial, error) {
	p, err := open(cfg.Port, cfg.BaudRate)
	if err != nil {
		return nil, &ConnectError{Port: cfg.Port, Reason: classify(err), Err: err}
	}

	if cfg.SettleDelay > 0 {
		timer := time.NewTimer(cfg.SettleDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			p.Close()
			return nil, fmt.Errorf("link [%s]: waiting for device: %w", cfg.Port, ctx.Err())
		case <-timer.C:
		}
	}

	log.Info("device connected", "port", cfg.Port, "baud", cfg.BaudRate)

	return &Serial{name: cfg.Port, port: p}, nil
}

// classify maps driver errors to a ConnectError reason.
func classify(err error) string {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return ""
	}
	switch pe.Code() {
	case serial.PortBusy:
		return reasonBusy
	case serial.PortNotFound:
		return reasonNotFound
	case serial.PermissionDenied:
		return reasonPermission
	}
	return ""
}

// Write sends p without waiting for any acknowledgement.
func (s *Serial) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	n, err := s.port.Write(p)
	if err != nil {
		return fmt.Errorf("link [%s]: write: %w", s.name, err)
	}
	if n != len(p) {
		return fmt.Errorf("link [%s]: %w (%d of %d bytes)", s.name, ErrShortWrite, n, len(p))
	}

	s.writes++
	return nil
}

// Writes returns how many payloads were sent.
func (s *Serial) Writes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Close releases the port. Calling it more than once is safe.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("link: list ports: %w", err)
	}
	return ports, nil
}
