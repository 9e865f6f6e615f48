// Package testutil provides shared test fixtures: a complete example deck, a
// synthetic spectrum and a stand-in for the simulator binary.
package testutil

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/config"
	"github.com/banshee-data/xrfsim/internal/spectrum"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// ExampleDeck returns a complete deck: an As/Fe alloy under air, excited by a
// 13.5 keV line and seen by a Si(Li) detector through Be windows.
func ExampleDeck() *config.Deck {
	f := config.Float
	return &config.Deck{
		Parameters: config.Parameters{
			NPhotonsInterval:        config.Int64(1),
			NPhotonsLine:            config.Int64(100000),
			NInteractionsTrajectory: config.Int(1),
			ReferenceLayer:          config.Int(2),
			DSampleSource:           f(100),
			AreaDetector:            f(0.5),
			DSourceSlit:             f(100),
			SlitSizeX:               f(0.001),
			SlitSizeY:               f(0.001),
			DetectorType:            config.String("SiLi"),
			DetectorLiveTime:        f(1500),
			DetectorPulseWidth:      f(1e-05),
			DetectorNChannels:       config.Int(2048),
			DetectorGain:            f(0.0182138),
			DetectorFano:            f(0.12),
			DetectorNoise:           f(0.1),
		},
		SampleOrientation:   &config.Orientation{RThetaPhi: []float64{1, 335, 0}},
		DetectorOrientation: &config.Orientation{RThetaPhi: []float64{1, 135, 0}},
		DetectorWindow:      &config.Orientation{XYZ: []float64{0, 5.6, 0}},
		Sources: []config.Source{
			{Energy: f(13.5), HorizontalIntensity: f(1e12), VerticalIntensity: f(1e9), Gaussian: f(0.14)},
		},
		Layers: []config.Layer{
			{Symbols: []string{"N", "O", "Ar"}, Masses: []float64{70, 29, 1}, Density: f(0.00122), Thickness: f(3)},
			{Elements: map[string]float64{"As": 50, "Fe": 50}, Density: f(7.31), Thickness: f(0.01)},
		},
		ExcitationPath: []config.Layer{{Elements: map[string]float64{"Be": 1}, Density: f(1.85), Thickness: f(0.02)}},
		DetectorPath:   []config.Layer{{Elements: map[string]float64{"Be": 1}, Density: f(1.85), Thickness: f(0.0025)}},
		Crystal:        []config.Layer{{Elements: map[string]float64{"Si": 1}, Density: f(2.33), Thickness: f(0.35)}},
		Windows: map[string][]float64{
			"k_a_Fe": {6.098, 6.744},
			"k_b_Fe": {6.7801, 7.340},
			"k_a_As": {10.196, 10.890},
			"k_b_As": {11.472, 11.999},
		},
	}
}

// ExampleSpectrum is a small spectrum with a peak inside each example window.
func ExampleSpectrum() spectrum.Spectrum {
	return spectrum.Spectrum{
		{Energy: 6.0, Counts: 1},
		{Energy: 6.4, Counts: 120.5},
		{Energy: 6.5, Counts: 80},
		{Energy: 7.05, Counts: 30},
		{Energy: 10.5, Counts: 60},
		{Energy: 11.7, Counts: 12},
		{Energy: 13.5, Counts: 400},
	}
}

// CSV renders s the way the simulator exports it: channel, energy, then
// cumulative counts per interaction order.
func CSV(s spectrum.Spectrum) []byte {
	var b strings.Builder
	for i, p := range s {
		fmt.Fprintf(&b, "%d,%g,%g,%g\n", i, p.Energy, p.Counts/2, p.Counts)
	}
	return []byte(b.String())
}

// XMSO renders s as a minimal simulator output document.
func XMSO(s spectrum.Spectrum) []byte {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?>\n<xmimsim-results>\n <spectrum_conv>\n")
	for i, p := range s {
		fmt.Fprintf(&b, "  <channel><channelnr>%d</channelnr><energy>%g</energy>"+
			"<counts interaction_number=\"1\">%g</counts><counts interaction_number=\"2\">%g</counts></channel>\n",
			i, p.Energy, p.Counts/2, p.Counts)
	}
	b.WriteString(" </spectrum_conv>\n</xmimsim-results>\n")
	return []byte(b.String())
}

// FakeSimulation returns a hook for simulator.MockCommandExecutor.OnRun that
// writes the artifacts a real run would leave behind: the .xmso next to the
// input file and, when an export flag is present, the export file.
func FakeSimulation(store artifact.Store, s spectrum.Spectrum) func(args []string) error {
	return func(args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("no input file")
		}
		base := strings.TrimSuffix(args[0], artifact.InputExt)
		if err := store.WriteFile(base+artifact.OutputExt, XMSO(s), 0o644); err != nil {
			return err
		}
		for i := 1; i+1 < len(args); i++ {
			if strings.HasPrefix(args[i], "--csv-file") {
				return store.WriteFile(args[i+1], CSV(s), 0o644)
			}
			if strings.HasSuffix(args[i], "-file") || strings.HasSuffix(args[i], "-unconvoluted") {
				return store.WriteFile(args[i+1], []byte("export"), 0o644)
			}
		}
		return nil
	}
}
