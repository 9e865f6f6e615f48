package xmsi

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xrfsim/internal/composition"
	"github.com/banshee-data/xrfsim/internal/geometry"
)

func beryllium(thickness float64) Layer {
	return Layer{Elements: composition.Fractions{{Z: 4, Weight: 100}}, Density: 1.85, Thickness: thickness}
}

func sampleDocument() *Document {
	return &Document{
		NPhotonsInterval:        1,
		NPhotonsLine:            100000,
		NInteractionsTrajectory: 1,
		Layers: []Layer{
			{Elements: composition.Fractions{{Z: 7, Weight: 70}, {Z: 8, Weight: 29}, {Z: 18, Weight: 1}}, Density: 0.00122, Thickness: 3},
			{Elements: composition.Fractions{{Z: 26, Weight: 50}, {Z: 33, Weight: 50}}, Density: 7.31, Thickness: 0.01},
		},
		ReferenceLayer:      2,
		DSampleSource:       100,
		SampleOrientation:   geometry.FromSpherical(geometry.Spherical{1, 335, 0}),
		DetectorWindow:      geometry.Vector{0, 5.6, 0},
		DetectorOrientation: geometry.FromSpherical(geometry.Spherical{1, 135, 0}),
		AreaDetector:        0.5,
		DSourceSlit:         100,
		SlitSizeX:           0.001,
		SlitSizeY:           0.001,
		Sources: []Source{
			{Energy: 13.5, HorizontalIntensity: 1e12, VerticalIntensity: 1e9},
		},
		ExcitationPath: []Layer{beryllium(0.02)},
		DetectorPath:   []Layer{beryllium(0.0025)},
		DetectorType:   "SiLi",
		LiveTime:       1500,
		PulseWidth:     1e-05,
		NChannels:      2048,
		Gain:           0.0182138,
		Fano:           0.12,
		Noise:          0.1,
		Crystal:        []Layer{{Elements: composition.Fractions{{Z: 14, Weight: 100}}, Density: 2.33, Thickness: 0.35}},
	}
}

func TestRenderContainsSections(t *testing.T) {
	out, err := sampleDocument().Render("xmi/run1")
	require.NoError(t, err)

	for _, want := range []string{
		`<?xml version="1.0"?>`,
		`<!DOCTYPE xmimsim SYSTEM "http://www.xmi.UGent.be/xml/xmimsim-1.0.dtd">`,
		"  <outputfile>xmi/run1.xmso</outputfile>\n  <n_photons_interval>1</n_photons_interval>",
		"<n_photons_line>100000</n_photons_line>",
		"<reference_layer>2</reference_layer>",
		"   <x>0</x>\n   <y>0.9063078</y>\n   <z>-0.4226183</z>",
		"<horizontal_intensity>1e+12</horizontal_intensity>",
		"<pulse_width>1e-05</pulse_width>",
		"<slit_size_x>0.001</slit_size_x>",
		"<detector_type>SiLi</detector_type>",
		"<nchannels>2048</nchannels>",
		"<collimator_height>0</collimator_height>",
		"     <atomic_number>33</atomic_number>\n     <weight_fraction>50</weight_fraction>",
		"  <crystal>\n   <layer>\n    <element>\n     <atomic_number>14</atomic_number>",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "scale_parameter")
}

func TestRenderIsWellFormed(t *testing.T) {
	out, err := sampleDocument().Render("xmi/run1")
	require.NoError(t, err)

	dec := xml.NewDecoder(strings.NewReader(out))
	layers := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "layer" {
			layers++
		}
	}
	// two sample layers, one per absorber path, one crystal
	assert.Equal(t, 5, layers)
}

func TestBodyIndependentOfOutputName(t *testing.T) {
	doc := sampleDocument()
	body, err := doc.Body()
	require.NoError(t, err)

	a, err := doc.Render("a")
	require.NoError(t, err)
	b, err := doc.Render("b")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(a, body))
	assert.True(t, strings.HasSuffix(b, body))
	assert.NotEqual(t, a, b)
}

func TestRenderScaleParameter(t *testing.T) {
	doc := sampleDocument()
	doc.Sources[0].Distribution = Gaussian
	doc.Sources[0].Scale = 0.14

	out, err := doc.Render("x")
	require.NoError(t, err)
	assert.Contains(t, out, `<discrete distribution_type="gaussian">`)
	assert.Contains(t, out, "<sigma_yp>0</sigma_yp>\n   <scale_parameter>0.14</scale_parameter>\n  </discrete>")
}

func TestHeaderEscapesPath(t *testing.T) {
	h, err := Header("runs/a&b")
	require.NoError(t, err)
	assert.Contains(t, h, "<outputfile>runs/a&amp;b.xmso</outputfile>")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Document)
	}{
		{"no layers", func(d *Document) { d.Layers = nil }},
		{"reference layer zero", func(d *Document) { d.ReferenceLayer = 0 }},
		{"reference layer too high", func(d *Document) { d.ReferenceLayer = 3 }},
		{"no sources", func(d *Document) { d.Sources = nil }},
		{"no crystal", func(d *Document) { d.Crystal = nil }},
		{"bad detector", func(d *Document) { d.DetectorType = "CCD" }},
		{"bad distribution", func(d *Document) { d.Sources[0].Distribution = "uniform" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sampleDocument()
			tt.mutate(doc)
			_, err := doc.Body()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		100:       "100",
		0.001:     "0.001",
		1e-05:     "1e-05",
		0.0182138: "0.0182138",
		1e12:      "1e+12",
		-0.5:      "-0.5",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}
