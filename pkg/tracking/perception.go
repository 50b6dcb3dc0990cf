package tracking

import (
	"image"

	"github.com/teslashibe/go-facetrack/pkg/protocol"
	"github.com/teslashibe/go-facetrack/pkg/tracking/detection"
)

// Displacement returns how far the face center sits from midpoint.
//
// The center is kept at double resolution so the half pixel of an odd span is
// not floored away. Go division truncates toward zero, so a face 30.5px left
// of the midpoint is reported as -30, the same as one 30.5px to the right.
func Displacement(box detection.Box, midpoint image.Point, legacy bool) protocol.Displacement {
	w, h := box.Width, box.Height
	if legacy {
		w, h = h, w
	}
	return protocol.Displacement{
		DX: (2*box.X + w - 2*midpoint.X) / 2,
		DY: (2*box.Y + h - 2*midpoint.Y) / 2,
	}
}

// Decision is what the loop does with one frame's detections
type Decision struct {
	Target       *detection.Box
	Displacement *protocol.Displacement
	Send         bool
}

// Decide selects a face, measures it and applies the dead zone.
// Zero boxes never produce a send.
func Decide(boxes []detection.Box, cfg Config) Decision {
	box, ok := detection.Select(boxes, cfg.Policy, cfg.Midpoint)
	if !ok {
		return Decision{}
	}

	d := Displacement(box, cfg.Midpoint, cfg.LegacyCenter)
	return Decision{
		Target:       &box,
		Displacement: &d,
		Send:         d.Exceeds(cfg.Threshold),
	}
}
