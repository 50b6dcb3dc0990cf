package detection

import (
	"fmt"
	"image"
	"strings"
)

// Policy decides which face drives the mount when several are detected
type Policy string

const (
	// PolicyLast takes the last box in detector order
	PolicyLast Policy = "last"
	// PolicyLargest takes the box with the largest area (usually the closest person)
	PolicyLargest Policy = "largest"
	// PolicyNearest takes the box whose center is closest to the midpoint
	PolicyNearest Policy = "nearest"
)

// Policies lists every supported policy
var Policies = []Policy{PolicyLast, PolicyLargest, PolicyNearest}

// ParsePolicy parses a policy name (case-insensitive)
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Policies {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("detection: unknown policy %q (want last, largest or nearest)", s)
}

// Select picks one box by policy. Ties go to the box seen first.
// midpoint is only used by PolicyNearest. Returns false when boxes is empty.
func Select(boxes []Box, policy Policy, midpoint image.Point) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}

	switch policy {
	case PolicyLast:
		return boxes[len(boxes)-1], true

	case PolicyNearest:
		best := 0
		bestDist := distSq(boxes[0].Center(), midpoint)
		for i := 1; i < len(boxes); i++ {
			if d := distSq(boxes[i].Center(), midpoint); d < bestDist {
				best, bestDist = i, d
			}
		}
		return boxes[best], true

	default:
		best := 0
		for i := 1; i < len(boxes); i++ {
			if boxes[i].Area() > boxes[best].Area() {
				best = i
			}
		}
		return boxes[best], true
	}
}

func distSq(a, b image.Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}
