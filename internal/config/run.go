package config

import (
	"fmt"
	"time"

	"github.com/banshee-data/xrfsim/internal/artifact"
	"github.com/banshee-data/xrfsim/internal/simulator"
)

// RunOptions controls where a calculation writes its artifacts and how the
// simulator is invoked.
type RunOptions struct {
	Dir      *string `json:"dir,omitempty" yaml:"dir,omitempty"`
	SaveXMSI *bool   `json:"save_xmsi,omitempty" yaml:"save_xmsi,omitempty"`
	SaveXMSO *bool   `json:"save_xmso,omitempty" yaml:"save_xmso,omitempty"`
	Export   *string `json:"export,omitempty" yaml:"export,omitempty"` // "none" disables the export
	Force    *bool   `json:"force,omitempty" yaml:"force,omitempty"`

	DisableMLines            *bool `json:"disable_m_lines,omitempty" yaml:"disable_m_lines,omitempty"`
	DisableAugerCascade      *bool `json:"disable_auger_cascade,omitempty" yaml:"disable_auger_cascade,omitempty"`
	DisableRadiativeCascade  *bool `json:"disable_radiative_cascade,omitempty" yaml:"disable_radiative_cascade,omitempty"`
	DisableVarianceReduction *bool `json:"disable_variance_reduction,omitempty" yaml:"disable_variance_reduction,omitempty"`
	EnablePileUp             *bool `json:"enable_pile_up,omitempty" yaml:"enable_pile_up,omitempty"`
	DisableEscapePeaks       *bool `json:"disable_escape_peaks,omitempty" yaml:"disable_escape_peaks,omitempty"`
	EnablePoisson            *bool `json:"enable_poisson,omitempty" yaml:"enable_poisson,omitempty"`
	EnableOpenCL             *bool `json:"enable_opencl,omitempty" yaml:"enable_opencl,omitempty"`
	EnableAdvancedCompton    *bool `json:"enable_advanced_compton,omitempty" yaml:"enable_advanced_compton,omitempty"`
	EnableDefaultSeeds       *bool `json:"enable_default_seeds,omitempty" yaml:"enable_default_seeds,omitempty"`

	Threads *int    `json:"threads,omitempty" yaml:"threads,omitempty"` // 0 or unset means all cores
	Binary  *string `json:"binary,omitempty" yaml:"binary,omitempty"`
	Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // duration string like "30m"
}

// Validate checks the values that are set.
func (r *RunOptions) Validate() error {
	if r.Export != nil {
		if _, err := simulator.ParseExport(*r.Export); err != nil {
			return err
		}
	}
	if r.Threads != nil && *r.Threads < 0 {
		return fmt.Errorf("threads must be non-negative, got %d", *r.Threads)
	}
	if r.Timeout != nil && *r.Timeout != "" {
		d, err := time.ParseDuration(*r.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *r.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("timeout must be non-negative, got %s", d)
		}
	}
	return nil
}

// GetDir returns the artifact directory, defaulting to "xmi".
func (r *RunOptions) GetDir() string { return deref(r.Dir, artifact.DefaultDir) }

// GetSaveXMSI reports whether the rendered input is kept after a run (default true).
func (r *RunOptions) GetSaveXMSI() bool { return deref(r.SaveXMSI, true) }

// GetSaveXMSO reports whether the simulator output is kept after a run (default false).
func (r *RunOptions) GetSaveXMSO() bool { return deref(r.SaveXMSO, false) }

func (r *RunOptions) GetForce() bool { return deref(r.Force, false) }

// GetExport returns the export format, defaulting to csv-file. An invalid
// value yields no export; Validate reports it.
func (r *RunOptions) GetExport() simulator.Export {
	if r.Export == nil {
		return simulator.DefaultExport
	}
	e, err := simulator.ParseExport(*r.Export)
	if err != nil {
		return ""
	}
	return e
}

func (r *RunOptions) GetThreads() int   { return deref(r.Threads, 0) }
func (r *RunOptions) GetBinary() string { return deref(r.Binary, "") }

// GetTimeout parses Timeout; unset or invalid means no timeout.
func (r *RunOptions) GetTimeout() time.Duration {
	if r.Timeout == nil || *r.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*r.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// SimulatorOptions collects the simulator flags.
func (r *RunOptions) SimulatorOptions() simulator.Options {
	return simulator.Options{
		DisableMLines:            deref(r.DisableMLines, false),
		DisableAugerCascade:      deref(r.DisableAugerCascade, false),
		DisableRadiativeCascade:  deref(r.DisableRadiativeCascade, false),
		DisableVarianceReduction: deref(r.DisableVarianceReduction, false),
		EnablePileUp:             deref(r.EnablePileUp, false),
		DisableEscapePeaks:       deref(r.DisableEscapePeaks, false),
		EnablePoisson:            deref(r.EnablePoisson, false),
		EnableOpenCL:             deref(r.EnableOpenCL, false),
		EnableAdvancedCompton:    deref(r.EnableAdvancedCompton, false),
		EnableDefaultSeeds:       deref(r.EnableDefaultSeeds, false),
		Threads:                  r.GetThreads(),
		Export:                   r.GetExport(),
	}
}
