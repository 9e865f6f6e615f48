// Package xmsi renders simulation input files in the XMI-MSIM 1.0 XML format.
package xmsi

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/banshee-data/xrfsim/internal/composition"
	"github.com/banshee-data/xrfsim/internal/geometry"
)

// Input file extensions used by the simulator.
const (
	InputExt  = ".xmsi"
	OutputExt = ".xmso"
)

// ErrInvalid is returned when a document cannot describe a runnable simulation.
var ErrInvalid = errors.New("invalid xmsi document")

// Detector types understood by the simulator.
var DetectorTypes = []string{"SiLi", "Ge", "Si_SDD"}

// Distribution types for a discrete source's energy spread.
const (
	Monochromatic = ""
	Gaussian      = "gaussian"
	Lorentzian    = "lorentzian"
)

// Layer is a slab of material.
type Layer struct {
	Elements  composition.Fractions
	Density   float64 // g/cm3
	Thickness float64 // cm
}

// Source is a discrete X-ray line feeding the simulation.
type Source struct {
	Energy              float64 // keV
	HorizontalIntensity float64 // photons/s
	VerticalIntensity   float64 // photons/s
	SigmaX              float64
	SigmaXP             float64
	SigmaY              float64
	SigmaYP             float64

	// Distribution is Monochromatic, Gaussian or Lorentzian. Scale is only
	// written for the latter two.
	Distribution string
	Scale        float64
}

// Document holds every value written to an input file. Distances are in cm.
type Document struct {
	NPhotonsInterval        int64
	NPhotonsLine            int64
	NInteractionsTrajectory int

	Layers         []Layer
	ReferenceLayer int // 1-based index into Layers

	DSampleSource       float64
	SampleOrientation   geometry.Vector
	DetectorWindow      geometry.Vector
	DetectorOrientation geometry.Vector
	AreaDetector        float64
	CollimatorHeight    float64
	CollimatorDiameter  float64
	DSourceSlit         float64
	SlitSizeX           float64
	SlitSizeY           float64

	Sources []Source

	ExcitationPath []Layer
	DetectorPath   []Layer

	DetectorType string
	LiveTime     float64 // s
	PulseWidth   float64 // s
	NChannels    int
	Gain         float64 // keV/channel
	Zero         float64 // keV
	Fano         float64
	Noise        float64 // keV
	Crystal      []Layer
}

var funcs = template.FuncMap{
	"num": FormatNumber,
	"xml": escape,
}

var (
	header  = template.Must(template.New("header").Funcs(funcs).Parse(headerTemplate))
	body    = template.Must(template.New("body").Funcs(funcs).Parse(bodyTemplate))
	source  = template.Must(template.New("source").Funcs(funcs).Parse(sourceTemplate))
	layer   = template.Must(template.New("layer").Funcs(funcs).Parse(layerTemplate))
	element = template.Must(template.New("element").Funcs(funcs).Parse(elementTemplate))
)

// FormatNumber writes v in its shortest round-tripping form ("100", "0.001",
// "1e-05").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func escape(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Validate checks the structural requirements the simulator enforces.
func (d *Document) Validate() error {
	if len(d.Layers) == 0 {
		return fmt.Errorf("%w: at least one sample layer is required", ErrInvalid)
	}
	if d.ReferenceLayer < 1 || d.ReferenceLayer > len(d.Layers) {
		return fmt.Errorf("%w: reference_layer %d out of range 1-%d", ErrInvalid, d.ReferenceLayer, len(d.Layers))
	}
	if len(d.Sources) == 0 {
		return fmt.Errorf("%w: at least one source is required", ErrInvalid)
	}
	if len(d.Crystal) == 0 {
		return fmt.Errorf("%w: at least one crystal layer is required", ErrInvalid)
	}
	valid := false
	for _, t := range DetectorTypes {
		if d.DetectorType == t {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: detector_type %q not one of %s", ErrInvalid, d.DetectorType, strings.Join(DetectorTypes, ", "))
	}
	for i, s := range d.Sources {
		switch s.Distribution {
		case Monochromatic, Gaussian, Lorentzian:
		default:
			return fmt.Errorf("%w: source %d has unknown distribution %q", ErrInvalid, i+1, s.Distribution)
		}
	}
	return nil
}

// Body renders everything after the <outputfile> line. It does not depend on
// the output filename, which lets callers derive the filename from it.
func (d *Document) Body() (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}

	view := struct {
		Doc            *Document
		Layers         string
		Sources        string
		ExcitationPath string
		DetectorPath   string
		Crystal        string
	}{Doc: d}

	var err error
	if view.Layers, err = renderLayers(d.Layers); err != nil {
		return "", err
	}
	if view.ExcitationPath, err = renderLayers(d.ExcitationPath); err != nil {
		return "", err
	}
	if view.DetectorPath, err = renderLayers(d.DetectorPath); err != nil {
		return "", err
	}
	if view.Crystal, err = renderLayers(d.Crystal); err != nil {
		return "", err
	}

	var sources bytes.Buffer
	for _, s := range d.Sources {
		if err := source.Execute(&sources, s); err != nil {
			return "", fmt.Errorf("render source: %w", err)
		}
	}
	view.Sources = sources.String()

	var buf bytes.Buffer
	if err := body.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	return buf.String(), nil
}

// Header renders the XML prolog and the <outputfile> declaration. base is the
// artifact path without extension; the simulator writes base + ".xmso".
func Header(base string) (string, error) {
	var buf bytes.Buffer
	err := header.Execute(&buf, struct {
		DTD    string
		Output string
	}{DTD, base + OutputExt})
	if err != nil {
		return "", fmt.Errorf("render header: %w", err)
	}
	return buf.String(), nil
}

// Render returns the complete input file for output base path base.
func (d *Document) Render(base string) (string, error) {
	b, err := d.Body()
	if err != nil {
		return "", err
	}
	h, err := Header(base)
	if err != nil {
		return "", err
	}
	return h + b, nil
}

func renderLayers(layers []Layer) (string, error) {
	var out bytes.Buffer
	for i, l := range layers {
		var elems bytes.Buffer
		for _, f := range l.Elements {
			if err := element.Execute(&elems, f); err != nil {
				return "", fmt.Errorf("render layer %d element %d: %w", i+1, f.Z, err)
			}
		}
		err := layer.Execute(&out, struct {
			Elements  string
			Density   float64
			Thickness float64
		}{elems.String(), l.Density, l.Thickness})
		if err != nil {
			return "", fmt.Errorf("render layer %d: %w", i+1, err)
		}
	}
	return out.String(), nil
}
