// Package geometry converts the orientation vectors used in the simulation
// geometry between spherical and Cartesian form.
//
// The frame follows the simulator: +x points up, +y points towards the source
// and z runs left to right. Theta turns within the YZ plane (0° is right, 90° is
// straight ahead), phi tilts up (+) or down (-).
package geometry

import "math"

// Precision is the number of decimals Cartesian components are rounded to.
const Precision = 7

// Vector is a Cartesian triple.
type Vector [3]float64

// X returns the first component.
func (v Vector) X() float64 { return v[0] }

// Y returns the second component.
func (v Vector) Y() float64 { return v[1] }

// Z returns the third component.
func (v Vector) Z() float64 { return v[2] }

// Spherical is a (radius, theta, phi) triple with angles in degrees.
type Spherical [3]float64

// FromSpherical converts (r, theta°, phi°) to Cartesian coordinates:
//
//	x = r·sin(phi)
//	y = r·cos(phi)·cos(theta)
//	z = r·cos(phi)·sin(theta)
//
// each rounded to Precision decimals. Angles are not range checked.
func FromSpherical(s Spherical) Vector {
	r := s[0]
	theta := s[1] * math.Pi / 180
	phi := s[2] * math.Pi / 180
	return Vector{
		round(r * math.Sin(phi)),
		round(r * math.Cos(phi) * math.Cos(theta)),
		round(r * math.Cos(phi) * math.Sin(theta)),
	}
}

// ToSpherical is the inverse of FromSpherical. Theta is returned in [0, 360).
// The zero vector maps to the zero triple.
func ToSpherical(v Vector) Spherical {
	r := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if r == 0 {
		return Spherical{}
	}
	phi := math.Asin(v[0]/r) * 180 / math.Pi
	theta := math.Atan2(v[2], v[1]) * 180 / math.Pi
	if theta < 0 {
		theta += 360
	}
	return Spherical{r, theta, phi}
}

func round(x float64) float64 {
	scale := math.Pow10(Precision)
	v := math.Round(x*scale) / scale
	if v == 0 {
		// drop the sign of negative zero so it never renders as "-0"
		return 0
	}
	return v
}
