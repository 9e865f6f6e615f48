package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xrfsim/internal/composition"
	"github.com/banshee-data/xrfsim/internal/geometry"
	"github.com/banshee-data/xrfsim/internal/simulator"
	"github.com/banshee-data/xrfsim/internal/xmsi"
)

func TestLoadDeck_YAML(t *testing.T) {
	deck, err := LoadDeck("testdata/example.yaml")
	require.NoError(t, err)

	assert.Empty(t, deck.Parameters.Missing())
	assert.Equal(t, int64(100000), deck.Parameters.GetNPhotonsLine())
	assert.Equal(t, "SiLi", deck.Parameters.GetDetectorType())
	assert.Equal(t, 1e-05, deck.Parameters.GetDetectorPulseWidth())
	assert.Equal(t, 0.0, deck.Parameters.GetCollimatorHeight())

	v, err := deck.SampleOrientation.Vector()
	require.NoError(t, err)
	assert.Equal(t, geometry.Vector{0, 0.9063078, -0.4226183}, v)

	require.Len(t, deck.Sources, 1)
	src, err := deck.Sources[0].Resolve()
	require.NoError(t, err)
	assert.Equal(t, xmsi.Gaussian, src.Distribution)
	assert.Equal(t, 0.14, src.Scale)
	assert.Equal(t, 1e12, src.HorizontalIntensity)

	require.Len(t, deck.Layers, 2)
	air, err := deck.Layers[0].Resolve()
	require.NoError(t, err)
	assert.InDelta(t, composition.Total, air.Elements.Sum(), 1e-9)
	assert.Equal(t, []int{7, 8, 18}, zs(air.Elements))

	crystal, err := deck.Crystal[0].Resolve()
	require.NoError(t, err)
	assert.Equal(t, []int{14}, zs(crystal.Elements))

	assert.Equal(t, []string{"k_a_As", "k_a_Fe", "k_b_As", "k_b_Fe"}, deck.WindowNames())
	assert.Equal(t, 30*time.Minute, deck.Run.GetTimeout())
	assert.Equal(t, simulator.Export("csv-file"), deck.Run.GetExport())
	assert.Equal(t, 2, deck.Run.SimulatorOptions().Threads)
}

func TestLoadDeck_JSON(t *testing.T) {
	deck, err := LoadDeck("testdata/example.json")
	require.NoError(t, err)

	require.NotNil(t, deck.Filename)
	assert.Equal(t, "fe_as", *deck.Filename)
	assert.Equal(t, simulator.Export(""), deck.Run.GetExport(), "none disables export")
	assert.True(t, deck.Run.GetSaveXMSO())
	assert.True(t, deck.Run.GetSaveXMSI())

	opts := deck.Run.SimulatorOptions()
	assert.True(t, opts.EnablePoisson)
	assert.Equal(t, " --enable-poisson", opts.HashSuffix())

	src, err := deck.Sources[0].Resolve()
	require.NoError(t, err)
	assert.Equal(t, xmsi.Monochromatic, src.Distribution)
}

func TestLoadDeck_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"bad extension", "deck.toml", "x = 1", "extension"},
		{"unknown json key", "deck.json", `{"paramters": {}}`, "paramters"},
		{"unknown yaml key", "deck.yaml", "parameters:\n  n_photon_line: 5\n", "n_photon_line"},
		{"empty yaml", "deck.yaml", "", "empty"},
		{"both orientation forms", "deck.yaml", "sample_orientation:\n  xyz: [0, 1, 0]\n  rthetaphi: [1, 0, 0]\n", "both"},
		{"short vector", "deck.json", `{"detector_window": {"xyz": [0, 5.6]}}`, "3 components"},
		{"bad detector", "deck.yaml", "parameters:\n  detector_type: CdTe\n", "detector_type"},
		{"bad export", "deck.yaml", "run:\n  export: pdf-file\n", "invalid export"},
		{"bad timeout", "deck.yaml", "run:\n  timeout: soon\n", "timeout"},
		{"window arity", "deck.yaml", "windows:\n  k_a_Fe: [6.1]\n", "k_a_Fe"},
		{"ambiguous layer", "deck.yaml", "layers:\n  - elements: {Fe: 1}\n    symbols: [Fe]\n    masses: [1]\n    density: 1\n    thickness: 1\n", "more than one"},
		{"unknown element", "deck.yaml", "layers:\n  - elements: {Xx: 1}\n    density: 1\n    thickness: 1\n", "unknown element"},
		{"layer without density", "deck.yaml", "layers:\n  - elements: {Fe: 1}\n    thickness: 1\n", "density"},
		{"two scales", "deck.yaml", "sources:\n  - energy: 10\n    horizontal_intensity: 1\n    vertical_intensity: 1\n    gaussian: 1\n    lorentzian: 1\n", "both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadDeck(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDeck_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.yaml")
	big := "# " + strings.Repeat("x", MaxDeckSize) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(big), 0o644))

	_, err := LoadDeck(path)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadDeck_Missing(t *testing.T) {
	_, err := LoadDeck(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLayer_ElementKeys(t *testing.T) {
	l := Layer{Elements: map[string]float64{"26": 1, "As": 3}}
	in, err := l.Composition()
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{26: 1, 33: 3}, in.Elements)

	dup := Layer{Elements: map[string]float64{"Fe": 1, "26": 1}}
	_, err = dup.Composition()
	assert.ErrorIs(t, err, composition.ErrDuplicateNumber)
}

func zs(f composition.Fractions) []int {
	out := make([]int, len(f))
	for i, x := range f {
		out[i] = x.Z
	}
	return out
}

func TestParseDeck_NonFiniteMass(t *testing.T) {
	for _, masses := range []string{"[.nan, 1]", "[.inf, 1]"} {
		t.Run(masses, func(t *testing.T) {
			data := "layers: [{symbols: [Fe, As], masses: " + masses + ", density: 7, thickness: 0.1}]\n"
			_, err := ParseDeck([]byte(data), FormatYAML)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.ErrorIs(t, err, composition.ErrNonFiniteMass)
		})
	}
}
