package protocol

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		d    Displacement
		want string
	}{
		{"right and up", Displacement{DX: 45, DY: -12}, "X45Y-12"},
		{"left and down", Displacement{DX: -120, DY: 88}, "X-120Y88"},
		{"zero", Displacement{}, "X0Y0"},
		{"both negative", Displacement{DX: -1, DY: -300}, "X-1Y-300"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := string(Encode(tc.d)); got != tc.want {
				t.Errorf("Encode(%+v) = %q, want %q", tc.d, got, tc.want)
			}
			if got := tc.d.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	d, err := Parse([]byte("X45Y-12"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.DX != 45 || d.DY != -12 {
		t.Errorf("Parse = %+v, want {45 -12}", d)
	}
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"X",
		"X1",
		"Y1X2",
		"X1Y",
		"XY1",
		"X+1Y2",
		"X1Y2\n",
		"X1.5Y2",
		"x1y2",
		"X-0Y0",
		"X0Y-0",
		"X007Y1",
		"X1Y00",
		"X--1Y2",
		"X1Y2Y3",
	}

	for _, in := range inputs {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformed", in, err)
		}
	}
}

func TestParse_RoundTripsEncode(t *testing.T) {
	for _, d := range []Displacement{{0, 0}, {-1, 1}, {10, -100}, {-300, 0}, {1234, -5678}} {
		got, err := Parse(Encode(d))
		if err != nil {
			t.Errorf("Parse(%q) error: %v", Encode(d), err)
			continue
		}
		if got != d {
			t.Errorf("Parse(%q) = %+v, want %+v", Encode(d), got, d)
		}
	}
}

func TestDisplacement_Exceeds(t *testing.T) {
	const threshold = 30

	tests := []struct {
		d    Displacement
		want bool
	}{
		{Displacement{0, 0}, false},
		{Displacement{30, 30}, false},
		{Displacement{-30, -30}, false},
		{Displacement{31, 0}, true},
		{Displacement{0, -31}, true},
		{Displacement{-31, 5}, true},
		{Displacement{29, 31}, true},
	}

	for _, tc := range tests {
		if got := tc.d.Exceeds(threshold); got != tc.want {
			t.Errorf("%+v.Exceeds(%d) = %v, want %v", tc.d, threshold, got, tc.want)
		}
	}
}

func TestDisplacement_ExceedsMatchesMaxAxis(t *testing.T) {
	const threshold = 30
	for dx := -40; dx <= 40; dx += 5 {
		for dy := -40; dy <= 40; dy += 5 {
			d := Displacement{DX: dx, DY: dy}
			within := abs(dx) <= threshold && abs(dy) <= threshold
			if d.Exceeds(threshold) == within {
				t.Fatalf("%+v: Exceeds=%v but within dead zone=%v", d, d.Exceeds(threshold), within)
			}
		}
	}
}
