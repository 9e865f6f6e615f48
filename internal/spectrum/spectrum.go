// Package spectrum reads simulated XRF spectra and counts photons in energy
// windows.
package spectrum

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrNoSpectrum means no readable artifact was found.
	ErrNoSpectrum = errors.New("no spectrum available")
	// ErrParse means an artifact exists but its content is malformed.
	ErrParse = errors.New("malformed spectrum")
)

// Point is one channel: its energy in keV and the photon count.
type Point struct {
	Energy float64 `json:"energy"`
	Counts float64 `json:"counts"`
}

// Spectrum is an ordered series of channels.
type Spectrum []Point

// Window is an energy range in keV. Bounds may be given in either order.
type Window struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Bounds returns the window ordered low to high.
func (w Window) Bounds() (lo, hi float64) {
	return math.Min(w.Low, w.High), math.Max(w.Low, w.High)
}

// Contains reports whether energy lies in the closed window.
func (w Window) Contains(energy float64) bool {
	lo, hi := w.Bounds()
	return energy >= lo && energy <= hi
}

// Count sums the integer-truncated counts of channels whose energy lies in
// [min(a,b), max(a,b)].
func (s Spectrum) Count(a, b float64) int64 {
	w := Window{Low: a, High: b}
	var total int64
	for _, p := range s {
		if w.Contains(p.Energy) {
			total += int64(p.Counts)
		}
	}
	return total
}

// CountWindows counts every named window.
func (s Spectrum) CountWindows(windows map[string]Window) map[string]int64 {
	out := make(map[string]int64, len(windows))
	for name, w := range windows {
		out[name] = s.Count(w.Low, w.High)
	}
	return out
}

// Energies returns the channel energies.
func (s Spectrum) Energies() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Energy
	}
	return out
}

// Counts returns the channel counts.
func (s Spectrum) Counts() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Counts
	}
	return out
}

// In returns the channels inside w.
func (s Spectrum) In(w Window) Spectrum {
	var out Spectrum
	for _, p := range s {
		if w.Contains(p.Energy) {
			out = append(out, p)
		}
	}
	return out
}

// SortedNames returns the window names in lexical order.
func SortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
