package domain

import (
	"errors"
	"math"
	"testing"
)

func nearly(a, b Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestTransform_InvertedRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		t    Transform
	}{
		{"Identity", Identity()},
		{"Translation", Translation(10, -4)},
		{"Scale Then Translate", Scaling(2, 0.5).Then(Translation(3, 7))},
		{"Shear", Transform{A: 1, B: 0.3, C: 0.2, D: 1, Dx: 5, Dy: 1}},
	}

	p := Point{X: 12.5, Y: -3}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := tt.t.Inverted()
			if err != nil {
				t.Fatalf("Inverted() error = %v", err)
			}
			if got := inv.Map(tt.t.Map(p)); !nearly(got, p) {
				t.Errorf("inv(t(p)) = %v, want %v", got, p)
			}
		})
	}
}

func TestTransform_Singular(t *testing.T) {
	_, err := Scaling(0, 1).Inverted()
	if !errors.Is(err, ErrSingularTransform) {
		t.Errorf("expected ErrSingularTransform, got %v", err)
	}
}

func TestTransform_Then(t *testing.T) {
	got := Scaling(2, 2).Then(Translation(1, 1)).Map(Point{X: 1, Y: 1})
	if !nearly(got, Point{X: 3, Y: 3}) {
		t.Errorf("got %v, want (3,3)", got)
	}
}

func TestParsePortType(t *testing.T) {
	cases := map[string]PortType{"in": PortIn, "Input": PortIn, "OUT": PortOut, "output": PortOut, "": PortNone}
	for in, want := range cases {
		got, err := ParsePortType(in)
		if err != nil {
			t.Fatalf("ParsePortType(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ParsePortType(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParsePortType("sideways"); err == nil {
		t.Error("expected error for unknown port type")
	}
	if PortIn.Opposite() != PortOut || PortOut.Opposite() != PortIn || PortNone.Opposite() != PortNone {
		t.Error("Opposite() mismatch")
	}
}
