package model

import (
	"testing"

	"sxfit/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSystematicKind(t *testing.T) {
	tests := []struct {
		input    string
		expected SystematicKind
		hasError bool
	}{
		{"shift", Shift, false},
		{"scale", Scale, false},
		{"resolution_scale", ResolutionScale, false},
		{" Scale ", Scale, false},
		{"smear", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		kind, err := ParseSystematicKind("energy_syst", tt.input)
		if tt.hasError {
			require.Error(t, err, tt.input)
			assert.ErrorIs(t, err, core.ErrUnknownSystematicType)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, kind)
		assert.Equal(t, tt.expected, mustParse(t, kind.String()))
	}
}

func mustParse(t *testing.T, s string) SystematicKind {
	t.Helper()
	k, err := ParseSystematicKind("roundtrip", s)
	require.NoError(t, err)
	return k
}

func TestObservableValidate(t *testing.T) {
	base := Observable{Name: "energy", Field: "energy", Bins: 10, Lower: 0, Upper: 10}
	require.NoError(t, base.ValidateBinned())

	noBins := base
	noBins.Bins = 0
	assert.ErrorIs(t, noBins.ValidateBinned(), core.ErrConfig)
	assert.NoError(t, noBins.Validate(), "cuts do not need bins")

	badWindow := base
	badWindow.Exclude = true
	badWindow.ExcludeMin, badWindow.ExcludeMax = 5, 5
	assert.ErrorIs(t, badWindow.Validate(), core.ErrConfig)

	inverted := base
	inverted.Lower, inverted.Upper = 10, 0
	assert.ErrorIs(t, inverted.Validate(), core.ErrConfig)
}

func TestObservableWindows(t *testing.T) {
	o := Observable{Name: "energy", Field: "energy", Lower: 0, Upper: 10, Exclude: true, ExcludeMin: 2, ExcludeMax: 3}

	assert.True(t, o.InRange(0))
	assert.True(t, o.InRange(10))
	assert.False(t, o.InRange(10.0001))
	assert.True(t, o.InExcluded(2))
	assert.True(t, o.InExcluded(3))
	assert.False(t, o.InExcluded(3.5))

	o.Exclude = false
	assert.False(t, o.InExcluded(2.5))
}

func TestSystematicHelpers(t *testing.T) {
	systs := []Systematic{
		{Name: "escale", ObservableField: "energy", Kind: Scale, Mean: 1.0, Sigma: 0.02},
		{Name: "eshift", ObservableField: "energy", Kind: Shift, Mean: 0.0},
	}
	assert.Equal(t, []float64{1.0, 0.0}, Means(systs))
	assert.True(t, systs[0].Constrained())
	assert.False(t, systs[1].Constrained())

	res := Systematic{Name: "eres", ObservableField: "energy", Kind: ResolutionScale}
	assert.ErrorIs(t, res.Validate(), core.ErrConfig)
	res.TruthField = "mc_energy"
	assert.NoError(t, res.Validate())
}

func TestExperimentExposure(t *testing.T) {
	e := Experiment{LiveTime: 2.5, EfficiencyCorr: 0.9}
	assert.InDelta(t, 2.25, e.Exposure(), 1e-12)
}
