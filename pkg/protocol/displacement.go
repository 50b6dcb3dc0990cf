// Package protocol defines the text format sent to the mount controller.
//
// A correction is a single ASCII token "X<dx>Y<dy>" with both values as base-10
// signed integers in pixels, e.g. "X45Y-12". There is no terminator, framing or
// checksum, and the device never answers.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed is returned when bytes do not form a valid correction token.
var ErrMalformed = errors.New("protocol: malformed displacement")

// Displacement is the offset of a face center from the frame midpoint, in pixels.
// Positive DX means the face is right of center, positive DY means below.
type Displacement struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Exceeds reports whether either axis is outside the dead zone.
func (d Displacement) Exceeds(threshold int) bool {
	return abs(d.DX) > threshold || abs(d.DY) > threshold
}

// String returns the wire form of d.
func (d Displacement) String() string {
	return string(Encode(d))
}

// Encode returns the wire bytes for d.
func Encode(d Displacement) []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, 'X')
	buf = strconv.AppendInt(buf, int64(d.DX), 10)
	buf = append(buf, 'Y')
	buf = strconv.AppendInt(buf, int64(d.DY), 10)
	return buf
}

// Parse decodes a single token produced by Encode. It is strict: any byte
// sequence Encode would not write is ErrMalformed.
func Parse(b []byte) (Displacement, error) {
	if len(b) < 4 || b[0] != 'X' {
		return Displacement{}, fmt.Errorf("%w: %q", ErrMalformed, b)
	}

	y := -1
	for i := 2; i < len(b); i++ {
		if b[i] == 'Y' {
			y = i
			break
		}
	}
	if y < 0 {
		return Displacement{}, fmt.Errorf("%w: missing Y in %q", ErrMalformed, b)
	}

	dx, err := parseInt(b[1:y])
	if err != nil {
		return Displacement{}, fmt.Errorf("%w: bad dx in %q", ErrMalformed, b)
	}
	dy, err := parseInt(b[y+1:])
	if err != nil {
		return Displacement{}, fmt.Errorf("%w: bad dy in %q", ErrMalformed, b)
	}

	return Displacement{DX: dx, DY: dy}, nil
}

// parseInt accepts only the canonical form Encode writes: an optional minus
// and decimal digits, no leading zeros and no negative zero.
func parseInt(b []byte) (int, error) {
	digits := b
	if len(digits) > 0 && digits[0] == '-' {
		digits = digits[1:]
	}
	if len(digits) == 0 || digits[0] < '0' || digits[0] > '9' {
		return 0, ErrMalformed
	}
	if digits[0] == '0' && (len(digits) > 1 || len(b) > 1) {
		return 0, ErrMalformed
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, err
	}
	return n, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
