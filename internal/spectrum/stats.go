package spectrum

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats summarizes the channels inside one energy window.
type WindowStats struct {
	Window   Window  `json:"window"`
	Channels int     `json:"channels"`
	Photons  int64   `json:"photons"` // integer-truncated sum, as Count
	Total    float64 `json:"total"`   // untruncated sum

	// Centroid and Width are the count-weighted mean and standard deviation of
	// the channel energies. Both are NaN when the window holds no counts.
	Centroid float64 `json:"centroid"`
	Width    float64 `json:"width"`

	PeakEnergy float64 `json:"peak_energy"`
	PeakCounts float64 `json:"peak_counts"`
}

// Stats computes WindowStats for w.
func (s Spectrum) Stats(w Window) WindowStats {
	in := s.In(w)
	lo, hi := w.Bounds()
	st := WindowStats{
		Window:   Window{Low: lo, High: hi},
		Channels: len(in),
		Photons:  s.Count(lo, hi),
		Centroid: math.NaN(),
		Width:    math.NaN(),
	}
	if len(in) == 0 {
		return st
	}

	energies, counts := in.Energies(), in.Counts()
	st.Total = floats.Sum(counts)
	peak := floats.MaxIdx(counts)
	st.PeakEnergy, st.PeakCounts = energies[peak], counts[peak]
	if st.Total > 0 {
		st.Centroid = stat.Mean(energies, counts)
		if st.Total > 1 {
			st.Width = stat.StdDev(energies, counts)
		}
	}
	return st
}

// StatsWindows computes WindowStats for every named window.
func (s Spectrum) StatsWindows(windows map[string]Window) map[string]WindowStats {
	out := make(map[string]WindowStats, len(windows))
	for name, w := range windows {
		out[name] = s.Stats(w)
	}
	return out
}
