package fitconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sxfit/domain/core"
	"sxfit/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ResolvesFullConfiguration(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "fit.yaml"))
	require.NoError(t, err)

	assert.Equal(t, model.Experiment{LiveTime: 2, Confidence: 0.9, EfficiencyCorr: 0.5}, cfg.Experiment)
	assert.Equal(t, FitOptions{Experiments: 10, Steps: 5000, BurninFraction: 0.1, OutputFile: "fit_spectrum"}, cfg.Fit)
	assert.False(t, cfg.Hash == "")

	// Observable fields, then cut fields, then truth fields.
	assert.Equal(t, []string{"energy", "radius", "mc_energy"}, cfg.Catalog.Names())
	assert.True(t, cfg.Catalog.Frozen())

	require.Len(t, cfg.Observables, 1)
	e := cfg.Observables[0]
	assert.Equal(t, 0, e.FieldIndex)
	assert.True(t, e.Exclude)
	assert.Equal(t, 2.3, e.ExcludeMin)
	assert.Equal(t, 2.6, e.ExcludeMax)

	require.Len(t, cfg.Cuts, 1)
	assert.Equal(t, 1, cfg.Cuts[0].FieldIndex)

	require.Len(t, cfg.Systematics, 3)
	assert.Equal(t, model.Scale, cfg.Systematics[0].Kind)
	assert.Equal(t, 0, cfg.Systematics[0].ObservableFieldIndex)
	assert.True(t, cfg.Systematics[0].Constrained())
	assert.Equal(t, model.ResolutionScale, cfg.Systematics[1].Kind)
	assert.Equal(t, 2, cfg.Systematics[1].TruthFieldIndex)
	assert.False(t, cfg.Systematics[1].Constrained())
	assert.Equal(t, 1, cfg.Systematics[2].ObservableFieldIndex)
	assert.True(t, cfg.Systematics[2].Fixed)
}

func TestLoad_SignalRequests(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "fit.yaml"))
	require.NoError(t, err)

	// Sorted by name; zeronu is not listed in fit.signals.
	require.Len(t, cfg.Signals, 3)
	names := []string{cfg.Signals[0].Name, cfg.Signals[1].Name, cfg.Signals[2].Name}
	assert.Equal(t, []string{"b8", "th232", "u238"}, names)

	b8 := cfg.Signals[0]
	assert.False(t, b8.IsGroup())
	assert.True(t, b8.HasRate)
	assert.Equal(t, 100.0, b8.NExpected) // rate * live_time * efficiency_corr
	assert.Equal(t, 10.0, b8.Sigma)
	assert.Equal(t, "solar", b8.Category)
	assert.Equal(t, []string{"b8_a.csv", "b8_b.root"}, b8.Files)

	th := cfg.Signals[1]
	assert.True(t, th.IsGroup())
	assert.False(t, th.Chain)
	require.Len(t, th.Parts, 2)
	assert.Equal(t, "bi212", th.Parts[0].Name)
	assert.Equal(t, 2.0, th.Parts[0].NExpected)
	assert.Equal(t, "internal", th.Parts[0].Category)

	u := cfg.Signals[2]
	assert.True(t, u.Chain)
	assert.False(t, u.HasRate)
	require.Len(t, u.Parts, 2)
	assert.Equal(t, "pb214", u.Parts[1].Name)
	assert.Equal(t, 60.0, u.Parts[1].NExpected)
	assert.Equal(t, 6.0, u.Parts[1].Sigma)
}

func TestParseJSON(t *testing.T) {
	doc := `{
		"experiment": {"live_time": 1.0},
		"pdfs": {
			"observables": {"energy": {"field": "energy", "bins": 10, "min": 0, "max": 5}},
			"systematics": {}
		},
		"fit": {"signals": ["bkg"], "observables": ["energy"]},
		"signals": {"bkg": {"rate": 3, "files": ["bkg.root"]}}
	}`
	cfg, err := ParseJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Experiment.EfficiencyCorr)
	require.Len(t, cfg.Signals, 1)
	assert.Equal(t, "bkg", cfg.Signals[0].Title)
	assert.Equal(t, 3.0, cfg.Signals[0].NExpected)
}

func TestParse_Errors(t *testing.T) {
	base := func(mutate func(string) string) []byte {
		data, err := os.ReadFile(filepath.Join("testdata", "fit.yaml"))
		require.NoError(t, err)
		return []byte(mutate(string(data)))
	}

	tests := []struct {
		name   string
		mutate func(string) string
		target error
	}{
		{
			name:   "missing live time",
			mutate: func(s string) string { return strings.Replace(s, "live_time: 2.0", "", 1) },
			target: core.ErrConfig,
		},
		{
			name:   "unknown systematic type",
			mutate: func(s string) string { return strings.Replace(s, "type: shift", "type: warp", 1) },
			target: core.ErrUnknownSystematicType,
		},
		{
			name: "systematic on unsampled field",
			mutate: func(s string) string {
				return strings.Replace(s, "observable_field: radius", "observable_field: time", 1)
			},
			target: core.ErrInvalidReference,
		},
		{
			name:   "undefined observable",
			mutate: func(s string) string { return strings.Replace(s, "observables: [energy]", "observables: [time]", 1) },
			target: core.ErrConfig,
		},
		{
			name:   "undefined signal",
			mutate: func(s string) string { return strings.Replace(s, "signals: [b8, u238, th232]", "signals: [b8, k40]", 1) },
			target: core.ErrConfig,
		},
		{
			name: "signal without rate",
			mutate: func(s string) string {
				return strings.Replace(s, "    rate: 100.0\n", "", 1)
			},
			target: core.ErrConfig,
		},
		{
			name:   "bad exclusion window",
			mutate: func(s string) string { return strings.Replace(s, "exclude: [2.3, 2.6]", "exclude: [2.6, 2.3]", 1) },
			target: core.ErrConfig,
		},
		{
			name:   "malformed yaml",
			mutate: func(s string) string { return s + "\n  : : [\n" },
			target: core.ErrConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(base(tt.mutate))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestSummary(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "fit.yaml"))
	require.NoError(t, err)

	var buf bytes.Buffer
	cfg.Summary(&buf)
	out := buf.String()

	assert.Contains(t, out, "Live time: 2 y")
	assert.Contains(t, out, "  energy\n")
	assert.Contains(t, out, "Excluded: [2.3, 2.6]")
	assert.Contains(t, out, "Type: resolution_scale")
	assert.Contains(t, out, "Truth: mc_energy")
	assert.Contains(t, out, "Fixed: yes")
	assert.Contains(t, out, "Chained: no")
	assert.Contains(t, out, "- pb214: expectation 60, 1 file(s)")
}
