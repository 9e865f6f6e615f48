package xmimsim

import (
	"fmt"

	"github.com/banshee-data/xrfsim/internal/composition"
	"github.com/banshee-data/xrfsim/internal/config"
	"github.com/banshee-data/xrfsim/internal/geometry"
	"github.com/banshee-data/xrfsim/internal/simulator"
	"github.com/banshee-data/xrfsim/internal/spectrum"
)

// LoadDeck reads a deck file and builds its model. The model's runner uses
// the deck's binary and timeout unless opts supply another runner.
func LoadDeck(path string, opts ...Option) (*Model, *config.Deck, error) {
	d, err := config.LoadDeck(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := FromDeck(d, append([]Option{WithRunner(RunnerFor(&d.Run))}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, d, nil
}

// RunnerFor creates a process runner honouring the binary and timeout in r.
func RunnerFor(r *config.RunOptions) *simulator.Runner {
	runner := simulator.NewRunner()
	runner.Binary = r.GetBinary()
	runner.Timeout = r.GetTimeout()
	return runner
}

// FromDeck builds a model from a loaded deck.
func FromDeck(d *config.Deck, opts ...Option) (*Model, error) {
	m := New(opts...)
	if d.Filename != nil {
		m.SetFilename(*d.Filename)
	}
	m.SetParameters(d.Parameters)

	for _, o := range []struct {
		name string
		spec *config.Orientation
		set  func(*Model, config.Orientation) error
	}{
		{"sample_orientation", d.SampleOrientation, setOrientation((*Model).SampleOrientation)},
		{"detector_orientation", d.DetectorOrientation, setOrientation((*Model).DetectorOrientation)},
		{"detector_window", d.DetectorWindow, setOrientation((*Model).DetectorWindow)},
	} {
		if o.spec == nil {
			continue
		}
		if err := o.set(m, *o.spec); err != nil {
			return nil, fmt.Errorf("%s: %w", o.name, err)
		}
	}

	for i := range d.Sources {
		src, err := d.Sources[i].Resolve()
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		m.AddSource(src)
	}

	for _, role := range []struct {
		name   string
		layers []config.Layer
		add    func(*Model, composition.Input, float64, float64) *Model
	}{
		{"layers", d.Layers, (*Model).AddLayer},
		{"excitation_path", d.ExcitationPath, (*Model).AddExcitationPathLayer},
		{"detector_path", d.DetectorPath, (*Model).AddDetectorPathLayer},
		{"crystal", d.Crystal, (*Model).AddCrystalLayer},
	} {
		for i := range role.layers {
			l := &role.layers[i]
			if l.Density == nil || l.Thickness == nil {
				return nil, fmt.Errorf("%w: %s[%d]: layer needs density and thickness", config.ErrInvalid, role.name, i)
			}
			in, err := l.Composition()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", role.name, i, err)
			}
			role.add(m, in, *l.Density, *l.Thickness)
		}
	}

	if err := m.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func setOrientation(set func(*Model, geometry.Vector) *Model) func(*Model, config.Orientation) error {
	return func(m *Model, o config.Orientation) error {
		v, err := o.Vector()
		if err != nil {
			return err
		}
		set(m, v)
		return nil
	}
}

// Windows converts the deck's energy windows. Decks are validated on load, so
// every entry has two bounds.
func Windows(d *config.Deck) map[string]spectrum.Window {
	out := make(map[string]spectrum.Window, len(d.Windows))
	for name, b := range d.Windows {
		if len(b) == 2 {
			out[name] = spectrum.Window{Low: b[0], High: b[1]}
		}
	}
	return out
}
