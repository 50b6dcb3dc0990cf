package link

import (
	"sync"

	"github.com/teslashibe/go-facetrack/internal/log"
)

// DryRun stands in for a device. It logs and records every payload.
type DryRun struct {
	mu       sync.Mutex
	payloads []string
	closed   bool
}

// NewDryRun creates a link that never touches hardware.
func NewDryRun() *DryRun {
	log.Info("device link in dry-run mode, nothing will be sent")
	return &DryRun{}
}

// Write records p.
func (d *DryRun) Write(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.payloads = append(d.payloads, string(p))
	log.Debug("dry-run write", "payload", string(p))
	return nil
}

// Writes returns how many payloads were written.
func (d *DryRun) Writes() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(len(d.payloads))
}

// Close marks the link closed.
func (d *DryRun) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
