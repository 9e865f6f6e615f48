package config

import "fmt"

// Parameters holds the scalar simulation settings. Every field is a pointer so a
// deck or a later SetParameters call can leave it unset; unset fields fall back
// to the Get* defaults, and required fields without a default are reported by
// Missing. Distances are in cm.
type Parameters struct {
	// General
	NPhotonsInterval        *int64 `json:"n_photons_interval,omitempty" yaml:"n_photons_interval,omitempty"`
	NPhotonsLine            *int64 `json:"n_photons_line,omitempty" yaml:"n_photons_line,omitempty"`
	NInteractionsTrajectory *int   `json:"n_interactions_trajectory,omitempty" yaml:"n_interactions_trajectory,omitempty"`

	// Composition
	ReferenceLayer *int `json:"reference_layer,omitempty" yaml:"reference_layer,omitempty"`

	// Geometry
	DSampleSource      *float64 `json:"d_sample_source,omitempty" yaml:"d_sample_source,omitempty"`
	AreaDetector       *float64 `json:"area_detector,omitempty" yaml:"area_detector,omitempty"`
	CollimatorHeight   *float64 `json:"collimator_height,omitempty" yaml:"collimator_height,omitempty"`
	CollimatorDiameter *float64 `json:"collimator_diameter,omitempty" yaml:"collimator_diameter,omitempty"`
	DSourceSlit        *float64 `json:"d_source_slit,omitempty" yaml:"d_source_slit,omitempty"`
	SlitSizeX          *float64 `json:"slit_size_x,omitempty" yaml:"slit_size_x,omitempty"`
	SlitSizeY          *float64 `json:"slit_size_y,omitempty" yaml:"slit_size_y,omitempty"`

	// Detector
	DetectorType       *string  `json:"detector_type,omitempty" yaml:"detector_type,omitempty"`
	DetectorLiveTime   *float64 `json:"detector_live_time,omitempty" yaml:"detector_live_time,omitempty"`
	DetectorPulseWidth *float64 `json:"detector_pulse_width,omitempty" yaml:"detector_pulse_width,omitempty"`
	DetectorNChannels  *int     `json:"detector_nchannels,omitempty" yaml:"detector_nchannels,omitempty"`
	DetectorGain       *float64 `json:"detector_gain,omitempty" yaml:"detector_gain,omitempty"`
	DetectorZero       *float64 `json:"detector_zero,omitempty" yaml:"detector_zero,omitempty"`
	DetectorFano       *float64 `json:"detector_fano,omitempty" yaml:"detector_fano,omitempty"`
	DetectorNoise      *float64 `json:"detector_noise,omitempty" yaml:"detector_noise,omitempty"`
}

// Helper functions to create pointers
func Float(v float64) *float64 { return &v }
func Int(v int) *int           { return &v }
func Int64(v int64) *int64     { return &v }
func Bool(v bool) *bool        { return &v }
func String(v string) *string  { return &v }

// Merge overlays every field set in other onto p.
func (p *Parameters) Merge(other Parameters) {
	mergePtr(&p.NPhotonsInterval, other.NPhotonsInterval)
	mergePtr(&p.NPhotonsLine, other.NPhotonsLine)
	mergePtr(&p.NInteractionsTrajectory, other.NInteractionsTrajectory)
	mergePtr(&p.ReferenceLayer, other.ReferenceLayer)
	mergePtr(&p.DSampleSource, other.DSampleSource)
	mergePtr(&p.AreaDetector, other.AreaDetector)
	mergePtr(&p.CollimatorHeight, other.CollimatorHeight)
	mergePtr(&p.CollimatorDiameter, other.CollimatorDiameter)
	mergePtr(&p.DSourceSlit, other.DSourceSlit)
	mergePtr(&p.SlitSizeX, other.SlitSizeX)
	mergePtr(&p.SlitSizeY, other.SlitSizeY)
	mergePtr(&p.DetectorType, other.DetectorType)
	mergePtr(&p.DetectorLiveTime, other.DetectorLiveTime)
	mergePtr(&p.DetectorPulseWidth, other.DetectorPulseWidth)
	mergePtr(&p.DetectorNChannels, other.DetectorNChannels)
	mergePtr(&p.DetectorGain, other.DetectorGain)
	mergePtr(&p.DetectorZero, other.DetectorZero)
	mergePtr(&p.DetectorFano, other.DetectorFano)
	mergePtr(&p.DetectorNoise, other.DetectorNoise)
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Missing lists the required fields that are unset, by their deck key.
func (p *Parameters) Missing() []string {
	var missing []string
	check := func(set bool, key string) {
		if !set {
			missing = append(missing, key)
		}
	}
	check(p.NPhotonsInterval != nil, "n_photons_interval")
	check(p.NPhotonsLine != nil, "n_photons_line")
	check(p.NInteractionsTrajectory != nil, "n_interactions_trajectory")
	check(p.ReferenceLayer != nil, "reference_layer")
	check(p.DSampleSource != nil, "d_sample_source")
	check(p.AreaDetector != nil, "area_detector")
	check(p.DSourceSlit != nil, "d_source_slit")
	check(p.SlitSizeX != nil, "slit_size_x")
	check(p.SlitSizeY != nil, "slit_size_y")
	check(p.DetectorType != nil, "detector_type")
	check(p.DetectorLiveTime != nil, "detector_live_time")
	check(p.DetectorPulseWidth != nil, "detector_pulse_width")
	check(p.DetectorNChannels != nil, "detector_nchannels")
	check(p.DetectorGain != nil, "detector_gain")
	check(p.DetectorFano != nil, "detector_fano")
	check(p.DetectorNoise != nil, "detector_noise")
	return missing
}

// Validate checks the values that are set. It does not require completeness;
// see Missing.
func (p *Parameters) Validate() error {
	if p.NPhotonsInterval != nil && *p.NPhotonsInterval < 1 {
		return fmt.Errorf("n_photons_interval must be positive, got %d", *p.NPhotonsInterval)
	}
	if p.NPhotonsLine != nil && *p.NPhotonsLine < 1 {
		return fmt.Errorf("n_photons_line must be positive, got %d", *p.NPhotonsLine)
	}
	if p.NInteractionsTrajectory != nil && *p.NInteractionsTrajectory < 1 {
		return fmt.Errorf("n_interactions_trajectory must be positive, got %d", *p.NInteractionsTrajectory)
	}
	if p.ReferenceLayer != nil && *p.ReferenceLayer < 1 {
		return fmt.Errorf("reference_layer is 1-based, got %d", *p.ReferenceLayer)
	}
	if p.DetectorNChannels != nil && *p.DetectorNChannels < 1 {
		return fmt.Errorf("detector_nchannels must be positive, got %d", *p.DetectorNChannels)
	}
	if p.DetectorType != nil {
		switch *p.DetectorType {
		case "SiLi", "Ge", "Si_SDD":
		default:
			return fmt.Errorf("detector_type must be one of SiLi, Ge, Si_SDD, got %q", *p.DetectorType)
		}
	}
	for key, v := range map[string]*float64{
		"d_sample_source":      p.DSampleSource,
		"area_detector":        p.AreaDetector,
		"collimator_height":    p.CollimatorHeight,
		"collimator_diameter":  p.CollimatorDiameter,
		"d_source_slit":        p.DSourceSlit,
		"slit_size_x":          p.SlitSizeX,
		"slit_size_y":          p.SlitSizeY,
		"detector_live_time":   p.DetectorLiveTime,
		"detector_pulse_width": p.DetectorPulseWidth,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %g", key, *v)
		}
	}
	return nil
}

// GetNPhotonsInterval returns the n_photons_interval value or zero.
func (p *Parameters) GetNPhotonsInterval() int64 { return deref(p.NPhotonsInterval, 0) }

// GetNPhotonsLine returns the n_photons_line value or zero.
func (p *Parameters) GetNPhotonsLine() int64 { return deref(p.NPhotonsLine, 0) }

// GetNInteractionsTrajectory returns the n_interactions_trajectory value or zero.
func (p *Parameters) GetNInteractionsTrajectory() int { return deref(p.NInteractionsTrajectory, 0) }

// GetReferenceLayer returns the reference_layer value or zero.
func (p *Parameters) GetReferenceLayer() int { return deref(p.ReferenceLayer, 0) }

func (p *Parameters) GetDSampleSource() float64 { return deref(p.DSampleSource, 0) }
func (p *Parameters) GetAreaDetector() float64  { return deref(p.AreaDetector, 0) }

// GetCollimatorHeight returns the collimator_height value or the default of 0.
func (p *Parameters) GetCollimatorHeight() float64 { return deref(p.CollimatorHeight, 0) }

// GetCollimatorDiameter returns the collimator_diameter value or the default of 0.
func (p *Parameters) GetCollimatorDiameter() float64 { return deref(p.CollimatorDiameter, 0) }

func (p *Parameters) GetDSourceSlit() float64        { return deref(p.DSourceSlit, 0) }
func (p *Parameters) GetSlitSizeX() float64          { return deref(p.SlitSizeX, 0) }
func (p *Parameters) GetSlitSizeY() float64          { return deref(p.SlitSizeY, 0) }
func (p *Parameters) GetDetectorType() string        { return deref(p.DetectorType, "") }
func (p *Parameters) GetDetectorLiveTime() float64   { return deref(p.DetectorLiveTime, 0) }
func (p *Parameters) GetDetectorPulseWidth() float64 { return deref(p.DetectorPulseWidth, 0) }
func (p *Parameters) GetDetectorNChannels() int      { return deref(p.DetectorNChannels, 0) }
func (p *Parameters) GetDetectorGain() float64       { return deref(p.DetectorGain, 0) }

// GetDetectorZero returns the detector_zero value or the default of 0.
func (p *Parameters) GetDetectorZero() float64 { return deref(p.DetectorZero, 0) }

func (p *Parameters) GetDetectorFano() float64  { return deref(p.DetectorFano, 0) }
func (p *Parameters) GetDetectorNoise() float64 { return deref(p.DetectorNoise, 0) }

func deref[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
