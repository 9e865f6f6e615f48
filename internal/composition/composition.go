// Package composition resolves the different ways of describing a layer's
// elemental make-up into normalized weight fractions.
package composition

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/xrfsim/internal/element"
)

// Total is the value weight fractions are normalized to.
const Total = 100.0

var (
	ErrEmptyMasses     = errors.New("element masses are empty")
	ErrAmbiguous       = errors.New("more than one composition form supplied")
	ErrUnknownElement  = errors.New("unknown element")
	ErrLengthMismatch  = errors.New("element and mass lists differ in length")
	ErrNegativeMass    = errors.New("negative mass")
	ErrNonFiniteMass   = errors.New("mass is not a finite number")
	ErrZeroTotal       = errors.New("masses sum to zero")
	ErrDuplicateNumber = errors.New("element listed twice")
)

// Input describes a composition in one of three equivalent forms:
//
//   - Elements: atomic number -> mass
//   - Symbols + Masses
//   - AtomicNumbers + Masses
//
// Masses are relative; they are rescaled so the fractions sum to 100.
type Input struct {
	Elements      map[int]float64
	Symbols       []string
	AtomicNumbers []int
	Masses        []float64
}

// Fraction is one element's share of a layer, in percent by weight.
type Fraction struct {
	Z      int
	Weight float64
}

// Fractions is a resolved composition sorted by atomic number.
type Fractions []Fraction

// Sum returns the total weight (100 after Resolve, up to rounding).
func (f Fractions) Sum() float64 {
	var s float64
	for _, fr := range f {
		s += fr.Weight
	}
	return s
}

// Map returns the fractions keyed by atomic number.
func (f Fractions) Map() map[int]float64 {
	m := make(map[int]float64, len(f))
	for _, fr := range f {
		m[fr.Z] = fr.Weight
	}
	return m
}

// Resolve normalizes in to weight fractions. Exactly one identifier form must
// be present; combining forms is rejected rather than silently preferring one.
func Resolve(in Input) (Fractions, error) {
	forms := 0
	if len(in.Elements) > 0 {
		forms++
	}
	if len(in.Symbols) > 0 {
		forms++
	}
	if len(in.AtomicNumbers) > 0 {
		forms++
	}
	if forms > 1 {
		return nil, ErrAmbiguous
	}

	var numbers []int
	var masses []float64

	switch {
	case len(in.Elements) > 0:
		if len(in.Masses) > 0 {
			return nil, fmt.Errorf("%w: masses given alongside an element map", ErrAmbiguous)
		}
		for z, m := range in.Elements {
			numbers = append(numbers, z)
			masses = append(masses, m)
		}
	case len(in.Symbols) > 0:
		for _, sym := range in.Symbols {
			z, ok := element.Number(sym)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownElement, sym)
			}
			numbers = append(numbers, z)
		}
		masses = in.Masses
	default:
		numbers = in.AtomicNumbers
		masses = in.Masses
	}

	if len(masses) == 0 {
		return nil, fmt.Errorf("%w: did you set masses?", ErrEmptyMasses)
	}
	if len(numbers) != len(masses) {
		return nil, fmt.Errorf("%w: %d elements, %d masses", ErrLengthMismatch, len(numbers), len(masses))
	}

	return normalize(numbers, masses)
}

func normalize(numbers []int, masses []float64) (Fractions, error) {
	seen := make(map[int]bool, len(numbers))
	var total float64
	for i, z := range numbers {
		if !element.Valid(z) {
			return nil, fmt.Errorf("%w: atomic number %d", ErrUnknownElement, z)
		}
		if seen[z] {
			sym, _ := element.Symbol(z)
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNumber, sym)
		}
		seen[z] = true
		if math.IsNaN(masses[i]) || math.IsInf(masses[i], 0) {
			return nil, fmt.Errorf("%w: %g for Z=%d", ErrNonFiniteMass, masses[i], z)
		}
		if masses[i] < 0 {
			return nil, fmt.Errorf("%w: %g for Z=%d", ErrNegativeMass, masses[i], z)
		}
		total += masses[i]
	}
	if total == 0 {
		return nil, ErrZeroTotal
	}
	if math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: masses overflow", ErrNonFiniteMass)
	}

	out := make(Fractions, len(numbers))
	for i, z := range numbers {
		out[i] = Fraction{Z: z, Weight: Total * (masses[i] / total)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out, nil
}
