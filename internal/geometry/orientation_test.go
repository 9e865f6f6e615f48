package geometry

import (
	"math"
	"testing"
)

func TestFromSpherical(t *testing.T) {
	tests := []struct {
		name string
		in   Spherical
		want Vector
	}{
		{"straight right", Spherical{1, 0, 0}, Vector{0, 1, 0}},
		{"straight ahead", Spherical{1, 90, 0}, Vector{0, 0, 1}},
		{"straight up", Spherical{1, 0, 90}, Vector{1, 0, 0}},
		{"left", Spherical{1, 270, 0}, Vector{0, 0, -1}},
		{"scaled", Spherical{5.6, 0, 0}, Vector{0, 5.6, 0}},
		{"detector at 135", Spherical{1, 135, 0}, Vector{0, -0.7071068, 0.7071068}},
		{"sample at 335", Spherical{1, 270 + 65, 0}, Vector{0, 0.9063078, -0.4226183}},
		{"zero radius", Spherical{0, 45, 45}, Vector{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromSpherical(tt.in)
			if got != tt.want {
				t.Errorf("FromSpherical(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromSphericalNoNegativeZero(t *testing.T) {
	v := FromSpherical(Spherical{1, 90, 0})
	for i, c := range v {
		if c == 0 && math.Signbit(c) {
			t.Errorf("component %d is negative zero", i)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	vectors := []Vector{
		{0, 1, 0},
		{0, 0, 1},
		{1, 0, 0},
		{0, 5.6, 0},
		{0.25, -0.5, 0.75},
		{-0.3, 0.2, -0.9},
	}

	tol := 1e-6
	for _, v := range vectors {
		got := FromSpherical(ToSpherical(v))
		for i := range v {
			if math.Abs(got[i]-v[i]) > tol {
				t.Errorf("round trip of %v = %v (component %d off by %g)", v, got, i, got[i]-v[i])
			}
		}
	}
}

func TestToSphericalZero(t *testing.T) {
	if got := ToSpherical(Vector{}); got != (Spherical{}) {
		t.Errorf("ToSpherical(0) = %v, want zero", got)
	}
}
