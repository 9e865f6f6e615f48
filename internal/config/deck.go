// Package config loads simulation decks: the parameters, layers, sources,
// orientations, run options and energy windows for one calculation.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/xrfsim/internal/composition"
	"github.com/banshee-data/xrfsim/internal/element"
	"github.com/banshee-data/xrfsim/internal/geometry"
	"github.com/banshee-data/xrfsim/internal/xmsi"
)

// ErrInvalid marks a malformed deck.
var ErrInvalid = errors.New("invalid configuration")

// MaxDeckSize is the largest deck file LoadDeck will read.
const MaxDeckSize = 1 * 1024 * 1024 // 1MB

// Format selects the deck decoder.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the deck format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: deck file must have .json, .yaml or .yml extension, got %q", ErrInvalid, ext)
	}
}

// Deck is the root configuration for a calculation.
type Deck struct {
	// Filename overrides the hashed artifact name.
	Filename *string `json:"filename,omitempty" yaml:"filename,omitempty"`

	Parameters Parameters `json:"parameters" yaml:"parameters"`

	SampleOrientation   *Orientation `json:"sample_orientation,omitempty" yaml:"sample_orientation,omitempty"`
	DetectorOrientation *Orientation `json:"detector_orientation,omitempty" yaml:"detector_orientation,omitempty"`
	DetectorWindow      *Orientation `json:"detector_window,omitempty" yaml:"detector_window,omitempty"`

	Sources        []Source `json:"sources,omitempty" yaml:"sources,omitempty"`
	Layers         []Layer  `json:"layers,omitempty" yaml:"layers,omitempty"`
	ExcitationPath []Layer  `json:"excitation_path,omitempty" yaml:"excitation_path,omitempty"`
	DetectorPath   []Layer  `json:"detector_path,omitempty" yaml:"detector_path,omitempty"`
	Crystal        []Layer  `json:"crystal,omitempty" yaml:"crystal,omitempty"`

	Run RunOptions `json:"run" yaml:"run"`

	// Windows maps a window name to its [low, high] energy bounds in keV.
	Windows map[string][]float64 `json:"windows,omitempty" yaml:"windows,omitempty"`
}

// Orientation is a direction given either as Cartesian components or as
// spherical (r, theta, phi) with angles in degrees. Exactly one must be set.
type Orientation struct {
	XYZ       []float64 `json:"xyz,omitempty" yaml:"xyz,omitempty"`
	RThetaPhi []float64 `json:"rthetaphi,omitempty" yaml:"rthetaphi,omitempty"`
}

// Vector resolves the orientation to Cartesian form.
func (o *Orientation) Vector() (geometry.Vector, error) {
	switch {
	case o.XYZ != nil && o.RThetaPhi != nil:
		return geometry.Vector{}, fmt.Errorf("%w: orientation has both xyz and rthetaphi", ErrInvalid)
	case o.XYZ != nil:
		if len(o.XYZ) != 3 {
			return geometry.Vector{}, fmt.Errorf("%w: xyz needs 3 components, got %d", ErrInvalid, len(o.XYZ))
		}
		return geometry.Vector{o.XYZ[0], o.XYZ[1], o.XYZ[2]}, nil
	case o.RThetaPhi != nil:
		if len(o.RThetaPhi) != 3 {
			return geometry.Vector{}, fmt.Errorf("%w: rthetaphi needs 3 components, got %d", ErrInvalid, len(o.RThetaPhi))
		}
		return geometry.FromSpherical(geometry.Spherical{o.RThetaPhi[0], o.RThetaPhi[1], o.RThetaPhi[2]}), nil
	default:
		return geometry.Vector{}, fmt.Errorf("%w: orientation needs xyz or rthetaphi", ErrInvalid)
	}
}

// Source describes one excitation line. The sigma fields default to 0.
// Gaussian and Lorentzian set the scale parameter of the corresponding
// discrete distribution; at most one may be given.
type Source struct {
	Energy              *float64 `json:"energy,omitempty" yaml:"energy,omitempty"`
	HorizontalIntensity *float64 `json:"horizontal_intensity,omitempty" yaml:"horizontal_intensity,omitempty"`
	VerticalIntensity   *float64 `json:"vertical_intensity,omitempty" yaml:"vertical_intensity,omitempty"`
	SigmaX              *float64 `json:"sigma_x,omitempty" yaml:"sigma_x,omitempty"`
	SigmaXP             *float64 `json:"sigma_xp,omitempty" yaml:"sigma_xp,omitempty"`
	SigmaY              *float64 `json:"sigma_y,omitempty" yaml:"sigma_y,omitempty"`
	SigmaYP             *float64 `json:"sigma_yp,omitempty" yaml:"sigma_yp,omitempty"`
	Gaussian            *float64 `json:"gaussian,omitempty" yaml:"gaussian,omitempty"`
	Lorentzian          *float64 `json:"lorentzian,omitempty" yaml:"lorentzian,omitempty"`
}

// Resolve converts the deck entry to a render-ready source.
func (s *Source) Resolve() (xmsi.Source, error) {
	if s.Energy == nil || s.HorizontalIntensity == nil || s.VerticalIntensity == nil {
		return xmsi.Source{}, fmt.Errorf("%w: source needs energy, horizontal_intensity and vertical_intensity", ErrInvalid)
	}
	if s.Gaussian != nil && s.Lorentzian != nil {
		return xmsi.Source{}, fmt.Errorf("%w: source has both gaussian and lorentzian scale", ErrInvalid)
	}
	out := xmsi.Source{
		Energy:              *s.Energy,
		HorizontalIntensity: *s.HorizontalIntensity,
		VerticalIntensity:   *s.VerticalIntensity,
		SigmaX:              deref(s.SigmaX, 0),
		SigmaXP:             deref(s.SigmaXP, 0),
		SigmaY:              deref(s.SigmaY, 0),
		SigmaYP:             deref(s.SigmaYP, 0),
	}
	switch {
	case s.Gaussian != nil:
		out.Distribution, out.Scale = xmsi.Gaussian, *s.Gaussian
	case s.Lorentzian != nil:
		out.Distribution, out.Scale = xmsi.Lorentzian, *s.Lorentzian
	}
	return out, nil
}

// Layer describes one slab. The composition is given in exactly one of three
// forms: an element map keyed by symbol or atomic number, symbols with masses,
// or atomic numbers with masses.
type Layer struct {
	Elements      map[string]float64 `json:"elements,omitempty" yaml:"elements,omitempty"`
	Symbols       []string           `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	AtomicNumbers []int              `json:"atomic_numbers,omitempty" yaml:"atomic_numbers,omitempty"`
	Masses        []float64          `json:"masses,omitempty" yaml:"masses,omitempty"`
	Density       *float64           `json:"density,omitempty" yaml:"density,omitempty"`
	Thickness     *float64           `json:"thickness,omitempty" yaml:"thickness,omitempty"`
}

// Composition converts the deck layer into composition input, turning element
// map keys into atomic numbers.
func (l *Layer) Composition() (composition.Input, error) {
	in := composition.Input{
		Symbols:       l.Symbols,
		AtomicNumbers: l.AtomicNumbers,
		Masses:        l.Masses,
	}
	if l.Elements != nil {
		in.Elements = make(map[int]float64, len(l.Elements))
		for key, mass := range l.Elements {
			z, err := element.Parse(key)
			if err != nil {
				return composition.Input{}, fmt.Errorf("%w: %w", composition.ErrUnknownElement, err)
			}
			if _, dup := in.Elements[z]; dup {
				return composition.Input{}, fmt.Errorf("%w: %q", composition.ErrDuplicateNumber, key)
			}
			in.Elements[z] = mass
		}
	}
	return in, nil
}

// Resolve normalizes the composition and returns a render-ready layer.
func (l *Layer) Resolve() (xmsi.Layer, error) {
	if l.Density == nil || l.Thickness == nil {
		return xmsi.Layer{}, fmt.Errorf("%w: layer needs density and thickness", ErrInvalid)
	}
	in, err := l.Composition()
	if err != nil {
		return xmsi.Layer{}, err
	}
	fractions, err := composition.Resolve(in)
	if err != nil {
		return xmsi.Layer{}, err
	}
	return xmsi.Layer{Elements: fractions, Density: *l.Density, Thickness: *l.Thickness}, nil
}

// LoadDeck loads a deck from a JSON or YAML file.
// The file must be under MaxDeckSize. Unknown keys are rejected.
func LoadDeck(path string) (*Deck, error) {
	cleanPath := filepath.Clean(path)
	format, err := FormatFromPath(cleanPath)
	if err != nil {
		return nil, err
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat deck file: %w", err)
	}
	if fileInfo.Size() > MaxDeckSize {
		return nil, fmt.Errorf("%w: deck file too large: %d bytes (max %d)", ErrInvalid, fileInfo.Size(), MaxDeckSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck file: %w", err)
	}
	return ParseDeck(data, format)
}

// ParseDeck decodes and validates deck content.
func ParseDeck(data []byte, format Format) (*Deck, error) {
	deck := &Deck{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(deck); err != nil {
			return nil, fmt.Errorf("%w: failed to parse deck JSON: %w", ErrInvalid, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(deck); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: deck is empty", ErrInvalid)
			}
			return nil, fmt.Errorf("%w: failed to parse deck YAML: %w", ErrInvalid, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown deck format %q", ErrInvalid, format)
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}
	return deck, nil
}

// Validate checks the values that are set. Completeness of the parameter set
// is checked when the deck is turned into a model.
func (d *Deck) Validate() error {
	if err := d.Parameters.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for name, o := range map[string]*Orientation{
		"sample_orientation":   d.SampleOrientation,
		"detector_orientation": d.DetectorOrientation,
		"detector_window":      d.DetectorWindow,
	} {
		if o == nil {
			continue
		}
		if _, err := o.Vector(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for i := range d.Sources {
		if _, err := d.Sources[i].Resolve(); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
	}
	for role, layers := range map[string][]Layer{
		"layers":          d.Layers,
		"excitation_path": d.ExcitationPath,
		"detector_path":   d.DetectorPath,
		"crystal":         d.Crystal,
	} {
		for i := range layers {
			if _, err := layers[i].Resolve(); err != nil {
				return fmt.Errorf("%w: %s[%d]: %w", ErrInvalid, role, i, err)
			}
		}
	}
	if err := d.Run.Validate(); err != nil {
		return fmt.Errorf("%w: run: %w", ErrInvalid, err)
	}
	for _, name := range d.WindowNames() {
		if b := d.Windows[name]; len(b) != 2 {
			return fmt.Errorf("%w: window %q needs [low, high], got %d values", ErrInvalid, name, len(b))
		}
	}
	return nil
}

// WindowNames returns the window names in sorted order.
func (d *Deck) WindowNames() []string {
	names := make([]string, 0, len(d.Windows))
	for name := range d.Windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
