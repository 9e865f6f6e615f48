// Package xmimsim builds XRF simulation models and runs them through the
// XMI-MSIM binary.
//
// A Model accumulates parameters, layers, sources and orientations through
// chained calls. The first invalid input is kept and reported by Err,
// Body and Calculate; later calls are ignored. A Model is not safe for
// concurrent use.
package xmimsim

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/composition"
	"github.com/banshee-data/xrfsim/internal/config"
	"github.com/banshee-data/xrfsim/internal/geometry"
	"github.com/banshee-data/xrfsim/internal/simulator"
	"github.com/banshee-data/xrfsim/internal/timeutil"
	"github.com/banshee-data/xrfsim/internal/xmsi"
)

// ErrIncomplete is returned when required model inputs are missing.
var ErrIncomplete = errors.New("model is incomplete")

// Runner executes the simulator. *simulator.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, inputPath, exportPath string, opts simulator.Options) (*simulator.Invocation, error)
}

// Model is a simulation under construction.
type Model struct {
	params config.Parameters

	sampleOrientation   *geometry.Vector
	detectorOrientation *geometry.Vector
	detectorWindow      *geometry.Vector

	layers         []xmsi.Layer
	excitationPath []xmsi.Layer
	detectorPath   []xmsi.Layer
	crystal        []xmsi.Layer
	sources        []xmsi.Source

	filename string
	err      error

	store  artifact.Store
	runner Runner
	clock  timeutil.Clock

	last *Result
}

// Option configures a Model.
type Option func(*Model)

// WithStore sets where artifacts are written and read.
func WithStore(s artifact.Store) Option { return func(m *Model) { m.store = s } }

// WithRunner replaces the simulator runner.
func WithRunner(r Runner) Option { return func(m *Model) { m.runner = r } }

// WithClock replaces the clock used to time calculations.
func WithClock(c timeutil.Clock) Option { return func(m *Model) { m.clock = c } }

// New creates an empty model that writes to the host filesystem and runs the
// simulator found on PATH.
func New(opts ...Option) *Model {
	m := &Model{
		store: artifact.OSStore{},
		clock: timeutil.RealClock{},
	}
	for _, o := range opts {
		o(m)
	}
	if m.runner == nil {
		m.runner = simulator.NewRunner()
	}
	return m
}

func (m *Model) fail(err error) *Model {
	if m.err == nil {
		m.err = err
	}
	return m
}

// Err returns the first error recorded by a builder call.
func (m *Model) Err() error { return m.err }

// SetParameters merges p into the model; fields set in p override earlier
// values.
func (m *Model) SetParameters(p config.Parameters) *Model {
	if m.err != nil {
		return m
	}
	if err := p.Validate(); err != nil {
		return m.fail(fmt.Errorf("%w: %w", config.ErrInvalid, err))
	}
	m.params.Merge(p)
	return m
}

// Parameters returns a copy of the merged parameters.
func (m *Model) Parameters() config.Parameters {
	var p config.Parameters
	p.Merge(m.params)
	return p
}

func (m *Model) addLayer(dst *[]xmsi.Layer, role string, in composition.Input, density, thickness float64) *Model {
	if m.err != nil {
		return m
	}
	fractions, err := composition.Resolve(in)
	if err != nil {
		return m.fail(fmt.Errorf("%s layer %d: %w", role, len(*dst)+1, err))
	}
	if density <= 0 || thickness <= 0 {
		return m.fail(fmt.Errorf("%w: %s layer %d: density and thickness must be positive", config.ErrInvalid, role, len(*dst)+1))
	}
	*dst = append(*dst, xmsi.Layer{Elements: fractions, Density: density, Thickness: thickness})
	return m
}

// AddLayer appends a sample layer. Layers are stacked in the order added;
// reference_layer counts from 1.
func (m *Model) AddLayer(in composition.Input, density, thickness float64) *Model {
	return m.addLayer(&m.layers, "sample", in, density, thickness)
}

// AddExcitationPathLayer appends an absorber between source and sample.
func (m *Model) AddExcitationPathLayer(in composition.Input, density, thickness float64) *Model {
	return m.addLayer(&m.excitationPath, "excitation path", in, density, thickness)
}

// AddDetectorPathLayer appends an absorber between sample and detector.
func (m *Model) AddDetectorPathLayer(in composition.Input, density, thickness float64) *Model {
	return m.addLayer(&m.detectorPath, "detector path", in, density, thickness)
}

// AddCrystalLayer appends a detector crystal layer.
func (m *Model) AddCrystalLayer(in composition.Input, density, thickness float64) *Model {
	return m.addLayer(&m.crystal, "crystal", in, density, thickness)
}

// AddSource appends an excitation line.
func (m *Model) AddSource(s xmsi.Source) *Model {
	if m.err != nil {
		return m
	}
	switch s.Distribution {
	case xmsi.Monochromatic, xmsi.Gaussian, xmsi.Lorentzian:
	default:
		return m.fail(fmt.Errorf("%w: source %d: unknown distribution %q", config.ErrInvalid, len(m.sources)+1, s.Distribution))
	}
	if s.Energy <= 0 {
		return m.fail(fmt.Errorf("%w: source %d: energy must be positive", config.ErrInvalid, len(m.sources)+1))
	}
	m.sources = append(m.sources, s)
	return m
}

// SampleOrientation sets the sample normal.
func (m *Model) SampleOrientation(v geometry.Vector) *Model {
	if m.err == nil {
		m.sampleOrientation = &v
	}
	return m
}

// DetectorOrientation sets the detector axis.
func (m *Model) DetectorOrientation(v geometry.Vector) *Model {
	if m.err == nil {
		m.detectorOrientation = &v
	}
	return m
}

// DetectorWindow sets the position of the detector window.
func (m *Model) DetectorWindow(v geometry.Vector) *Model {
	if m.err == nil {
		m.detectorWindow = &v
	}
	return m
}

func (m *Model) RemoveAllLayers() *Model         { m.layers = nil; return m }
func (m *Model) RemoveAllExcitationPath() *Model { m.excitationPath = nil; return m }
func (m *Model) RemoveAllDetectorPath() *Model   { m.detectorPath = nil; return m }
func (m *Model) RemoveAllCrystal() *Model        { m.crystal = nil; return m }
func (m *Model) RemoveAllSources() *Model        { m.sources = nil; return m }

// SetFilename fixes the artifact name instead of deriving it from the
// document hash. The name must not contain a directory.
func (m *Model) SetFilename(name string) *Model {
	if m.err != nil {
		return m
	}
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return m.fail(fmt.Errorf("%w: filename %q must be a bare file name", config.ErrInvalid, name))
	}
	m.filename = name
	return m
}

// RemoveFilename returns to hash-derived artifact names.
func (m *Model) RemoveFilename() *Model {
	m.filename = ""
	return m
}

// Document assembles the render-ready document, reporting missing inputs.
func (m *Model) Document() (*xmsi.Document, error) {
	if m.err != nil {
		return nil, m.err
	}

	var missing []string
	missing = append(missing, m.params.Missing()...)
	if m.sampleOrientation == nil {
		missing = append(missing, "sample_orientation")
	}
	if m.detectorOrientation == nil {
		missing = append(missing, "detector_orientation")
	}
	if m.detectorWindow == nil {
		missing = append(missing, "detector_window")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	p := &m.params
	doc := &xmsi.Document{
		NPhotonsInterval:        p.GetNPhotonsInterval(),
		NPhotonsLine:            p.GetNPhotonsLine(),
		NInteractionsTrajectory: p.GetNInteractionsTrajectory(),
		Layers:                  m.layers,
		ReferenceLayer:          p.GetReferenceLayer(),
		DSampleSource:           p.GetDSampleSource(),
		SampleOrientation:       *m.sampleOrientation,
		DetectorWindow:          *m.detectorWindow,
		DetectorOrientation:     *m.detectorOrientation,
		AreaDetector:            p.GetAreaDetector(),
		CollimatorHeight:        p.GetCollimatorHeight(),
		CollimatorDiameter:      p.GetCollimatorDiameter(),
		DSourceSlit:             p.GetDSourceSlit(),
		SlitSizeX:               p.GetSlitSizeX(),
		SlitSizeY:               p.GetSlitSizeY(),
		Sources:                 m.sources,
		ExcitationPath:          m.excitationPath,
		DetectorPath:            m.detectorPath,
		DetectorType:            p.GetDetectorType(),
		LiveTime:                p.GetDetectorLiveTime(),
		PulseWidth:              p.GetDetectorPulseWidth(),
		NChannels:               p.GetDetectorNChannels(),
		Gain:                    p.GetDetectorGain(),
		Zero:                    p.GetDetectorZero(),
		Fano:                    p.GetDetectorFano(),
		Noise:                   p.GetDetectorNoise(),
		Crystal:                 m.crystal,
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncomplete, err)
	}
	return doc, nil
}

// Body renders the input file without its header. It is regenerated on
// every call.
func (m *Model) Body() (string, error) {
	doc, err := m.Document()
	if err != nil {
		return "", err
	}
	return doc.Body()
}
