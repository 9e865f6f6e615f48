package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameters_Merge(t *testing.T) {
	p := Parameters{NPhotonsLine: Int64(1000), DetectorType: String("SiLi")}
	p.Merge(Parameters{NPhotonsLine: Int64(5000), DetectorGain: Float(0.02)})

	assert.Equal(t, int64(5000), p.GetNPhotonsLine())
	assert.Equal(t, "SiLi", p.GetDetectorType(), "unset fields keep earlier values")
	assert.Equal(t, 0.02, p.GetDetectorGain())
}

func TestParameters_MergeCopiesValues(t *testing.T) {
	src := Parameters{DetectorNoise: Float(0.1)}
	var p Parameters
	p.Merge(src)
	*src.DetectorNoise = 0.5
	assert.Equal(t, 0.1, p.GetDetectorNoise())
}

func TestParameters_Missing(t *testing.T) {
	var p Parameters
	missing := p.Missing()
	assert.Len(t, missing, 16)
	assert.NotContains(t, missing, "collimator_height")
	assert.NotContains(t, missing, "collimator_diameter")
	assert.NotContains(t, missing, "detector_zero")

	p.NPhotonsLine = Int64(1)
	assert.NotContains(t, p.Missing(), "n_photons_line")
}

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Parameters
		wantErr bool
	}{
		{"empty", Parameters{}, false},
		{"good", Parameters{NPhotonsLine: Int64(10), DetectorType: String("Ge"), DetectorZero: Float(-0.01)}, false},
		{"zero photons", Parameters{NPhotonsInterval: Int64(0)}, true},
		{"zero reference layer", Parameters{ReferenceLayer: Int(0)}, true},
		{"negative distance", Parameters{DSampleSource: Float(-1)}, true},
		{"no channels", Parameters{DetectorNChannels: Int(0)}, true},
		{"unknown detector", Parameters{DetectorType: String("CdTe")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunOptions_Defaults(t *testing.T) {
	var r RunOptions
	assert.Equal(t, "xmi", r.GetDir())
	assert.True(t, r.GetSaveXMSI())
	assert.False(t, r.GetSaveXMSO())
	assert.False(t, r.GetForce())
	assert.Equal(t, "csv-file", string(r.GetExport()))
	assert.Zero(t, r.GetThreads())
	assert.Zero(t, r.GetTimeout())
	assert.Empty(t, r.SimulatorOptions().Flags())
}
