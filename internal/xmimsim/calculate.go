package xmimsim

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/config"
	"github.com/banshee-data/xrfsim/internal/monitoring"
	"github.com/banshee-data/xrfsim/internal/simulator"
	"github.com/banshee-data/xrfsim/internal/spectrum"
	"github.com/banshee-data/xrfsim/internal/xmsi"
)

// CalcOptions controls one calculation.
type CalcOptions struct {
	// Dir is the artifact directory, created if absent. Empty writes to the
	// working directory.
	Dir string

	// SaveXMSI keeps the rendered input after a successful run.
	SaveXMSI bool
	// SaveXMSO keeps the simulator output after a successful run.
	SaveXMSO bool
	// Force runs the simulator even when output artifacts already exist.
	Force bool

	Simulator simulator.Options
}

// DefaultCalcOptions writes to "xmi", keeps the .xmsi, drops the .xmso and
// exports a CSV spectrum.
func DefaultCalcOptions() CalcOptions {
	return CalcOptions{
		Dir:       artifact.DefaultDir,
		SaveXMSI:  true,
		Simulator: simulator.Options{Export: simulator.DefaultExport},
	}
}

// CalcOptionsFromConfig maps deck run options onto CalcOptions.
func CalcOptionsFromConfig(r *config.RunOptions) CalcOptions {
	return CalcOptions{
		Dir:       r.GetDir(),
		SaveXMSI:  r.GetSaveXMSI(),
		SaveXMSO:  r.GetSaveXMSO(),
		Force:     r.GetForce(),
		Simulator: r.SimulatorOptions(),
	}
}

// Result describes a calculation.
type Result struct {
	Name   string         `json:"name"`
	Paths  artifact.Paths `json:"paths"`
	Digest string         `json:"digest"` // SHA-224 of body plus flag suffix

	// Skipped is set when existing artifacts made the run unnecessary.
	Skipped    bool                  `json:"skipped"`
	Invocation *simulator.Invocation `json:"invocation,omitempty"`
	Options    CalcOptions           `json:"options"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	spectrum spectrum.Spectrum
	origin   spectrum.Origin
}

// ExportPath is the export artifact, or "" when no export was requested.
func (r *Result) ExportPath() string {
	if r.Options.Simulator.Export == "" {
		return ""
	}
	return r.Paths.Export(r.Options.Simulator.Export.Ext())
}

// Origin reports which artifact the spectrum was read from. It is empty until
// the spectrum has been loaded.
func (r *Result) Origin() spectrum.Origin { return r.origin }

// Digest hashes a body together with the flag suffix that changes the
// simulation result.
func Digest(body string, opts simulator.Options) string {
	sum := sha256.Sum224([]byte(body + opts.HashSuffix()))
	return hex.EncodeToString(sum[:])
}

// Filename returns the artifact name a calculation with opts would use: the
// name set by SetFilename, or the digest.
func (m *Model) Filename(opts simulator.Options) (string, error) {
	body, err := m.Body()
	if err != nil {
		return "", err
	}
	if m.filename != "" {
		return m.filename, nil
	}
	return Digest(body, opts), nil
}

// Calculate renders the input file and runs the simulator unless the output
// or export artifact already exists and opts.Force is unset.
//
// The .xmsi is always written. After a successful run it is removed unless
// SaveXMSI is set, and the .xmso is removed unless SaveXMSO is set. A failed
// run leaves every artifact in place. A calculation that fails before the
// .xmsi is written clears Last.
func (m *Model) Calculate(ctx context.Context, opts CalcOptions) (*Result, error) {
	m.last = nil
	if err := opts.Simulator.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}
	body, err := m.Body()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Digest:    Digest(body, opts.Simulator),
		Options:   opts,
		StartedAt: m.clock.Now(),
	}
	res.Name = m.filename
	if res.Name == "" {
		res.Name = res.Digest
	}
	res.Paths = artifact.Paths{Dir: opts.Dir, Name: res.Name}

	if opts.Dir != "" {
		if err := m.store.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}

	exists := artifact.Exists(m.store, res.Paths.Output())
	exportPath := res.ExportPath()
	if exportPath != "" && artifact.Exists(m.store, exportPath) {
		exists = true
	}

	header, err := xmsi.Header(res.Paths.Base())
	if err != nil {
		return nil, err
	}
	if err := m.store.WriteFile(res.Paths.Input(), []byte(header+body), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write input file: %w", err)
	}

	m.last = res
	if exists && !opts.Force {
		res.Skipped = true
		monitoring.Logf("artifacts for %s already exist, skipping simulation", res.Name)
		return res, nil
	}

	inv, err := m.runner.Run(ctx, res.Paths.Input(), exportPath, opts.Simulator)
	res.Invocation = inv
	res.Duration = m.clock.Since(res.StartedAt)
	if err != nil {
		return res, err
	}

	if !opts.SaveXMSI {
		if err := artifact.RemoveIfExists(m.store, res.Paths.Input()); err != nil {
			return res, fmt.Errorf("failed to remove input file: %w", err)
		}
	}
	if !opts.SaveXMSO {
		if exportPath == "" {
			monitoring.Logf("warning: %s has no export and its .xmso is not kept; the spectrum will be unavailable", res.Name)
		}
		if err := artifact.RemoveIfExists(m.store, res.Paths.Output()); err != nil {
			return res, fmt.Errorf("failed to remove output file: %w", err)
		}
	}
	return res, nil
}

// Last returns the most recent calculation, or nil.
func (m *Model) Last() *Result { return m.last }

// Spectrum reads the spectrum of the most recent calculation, from its CSV
// export when present and otherwise from its .xmso.
func (m *Model) Spectrum() (spectrum.Spectrum, error) {
	if m.last == nil {
		return nil, fmt.Errorf("%w: no calculation has run", spectrum.ErrNoSpectrum)
	}
	if m.last.spectrum != nil {
		return m.last.spectrum, nil
	}
	s, origin, err := spectrum.Load(m.store, m.last.Paths, m.last.Options.Simulator.Export.Unconvoluted())
	if err != nil {
		return nil, err
	}
	m.last.spectrum, m.last.origin = s, origin
	return s, nil
}

// Count returns the photons between energies a and b inclusive, in keV.
func (m *Model) Count(a, b float64) (int64, error) {
	s, err := m.Spectrum()
	if err != nil {
		return 0, err
	}
	return s.Count(a, b), nil
}

// CountWindows counts photons in each named window.
func (m *Model) CountWindows(windows map[string]spectrum.Window) (map[string]int64, error) {
	s, err := m.Spectrum()
	if err != nil {
		return nil, err
	}
	return s.CountWindows(windows), nil
}
