package generator

import (
	"context"
	"math/rand/v2"
	"testing"

	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal/ingest"
	"sxfit/internal/pdf"
	"sxfit/internal/signal"
	"sxfit/internal/testkit"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	energy = model.Observable{Name: "energy", Field: "energy", FieldIndex: 0, Bins: 25, Lower: 0, Upper: 10}
	escale = model.Systematic{Name: "escale", Kind: model.Scale, ObservableField: "energy", ObservableFieldIndex: 0, Mean: 1, Sigma: 0.02}
)

func newSignal(t *testing.T, name string, nexpected, efficiency float64, mean float64, systematics []model.Systematic) *signal.Signal {
	t.Helper()
	ds := testkit.NewEventGenerator(testkit.EventGeneratorConfig{
		Events: 3000,
		Seed:   uint64(len(name)),
		Fields: []testkit.FieldShape{{Name: "energy", Uniform: true, Min: mean - 1, Max: mean + 1}},
	}).Generate()

	in, err := ingest.New(ingest.Spec{Fields: []string{"energy"}, Columns: []int{0}}, nil)
	require.NoError(t, err)
	require.NoError(t, in.Add(ds))

	hist, err := pdf.NewEvalHist(in.Buffer(), []model.Observable{energy}, nil)
	require.NoError(t, err)
	for i, sys := range systematics {
		tr, err := pdf.NewTransform(sys, i, in.Buffer())
		require.NoError(t, err)
		require.NoError(t, hist.AddSystematic(tr))
	}
	return &signal.Signal{Name: name, NExpected: nexpected, Efficiency: efficiency, Histogram: hist}
}

func TestGenerate_FixedCount(t *testing.T) {
	s := newSignal(t, "b8", 800, 0.8, 5, nil)
	g := New([]model.Observable{energy}, nil, nil)

	samples, counts, err := g.Generate(rand.New(rand.NewPCG(1, 2)), []*signal.Signal{s}, nil, false)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 800, counts[0].Observed)
	assert.InDelta(t, 800, counts[0].Expected, 1e-9)
	assert.InDelta(t, 1.0, counts[0].Efficiency, 1e-12)
	assert.Equal(t, 800, samples.Total())
	assert.Equal(t, 1, samples.Dim)
}

func TestGenerate_BuiltSignalAppliesCutEfficiencyOnce(t *testing.T) {
	// 1000 rows, the first 800 inside the radius cut.
	ds := testkit.Rows([]string{"energy", "radius"})
	for i := 0; i < 1000; i++ {
		r := 500.0
		if i >= 800 {
			r = 5000
		}
		ds.Values = append(ds.Values, 2+6*float64(i)/1000, r)
	}
	src := testkit.NewMemorySource()
	src.Put("b8.mem", ds)

	radius := model.Observable{Name: "rcut", Field: "radius", FieldIndex: 1, Lower: 0, Upper: 1000}
	b, err := signal.NewBuilder(ingest.NewSources(src), model.Experiment{LiveTime: 1, EfficiencyCorr: 1},
		[]model.Observable{energy}, []model.Observable{radius}, nil)
	require.NoError(t, err)
	s, err := b.FromFiles(context.Background(), model.Contribution{Name: "b8", NExpected: 1000, Files: []string{"b8.mem"}})
	require.NoError(t, err)
	require.InDelta(t, 0.8, s.Efficiency, 1e-12)
	require.InDelta(t, 800, s.NExpected, 1e-9)

	g := New([]model.Observable{energy}, nil, nil)
	samples, counts, err := g.Generate(rand.New(rand.NewPCG(11, 12)), []*signal.Signal{s}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 800, counts[0].Observed)
	assert.InDelta(t, 800, counts[0].Expected, 1e-9)
	assert.Equal(t, 800, samples.Total())
}

func TestGenerate_PoissonMean(t *testing.T) {
	s := newSignal(t, "b8", 800, 0.8, 5, nil)
	g := New([]model.Observable{energy}, nil, nil)
	rng := rand.New(rand.NewPCG(3, 4))

	var observed stats.Float64Data
	for i := 0; i < 300; i++ {
		_, counts, err := g.Generate(rng, []*signal.Signal{s}, nil, true)
		require.NoError(t, err)
		observed = append(observed, float64(counts[0].Observed))
	}
	mean, err := observed.Mean()
	require.NoError(t, err)
	sd, err := observed.StandardDeviationSample()
	require.NoError(t, err)

	assert.InDelta(t, 800, mean, 8)
	assert.InDelta(t, 28.3, sd, 6)
}

func TestGenerate_MultipleSignalsShareOneBuffer(t *testing.T) {
	a := newSignal(t, "low", 100, 1, 2, []model.Systematic{escale})
	b := newSignal(t, "high", 25, 0.5, 8, []model.Systematic{escale})
	g := New([]model.Observable{energy}, []model.Systematic{escale}, nil)

	samples, counts, err := g.Generate(rand.New(rand.NewPCG(5, 6)), []*signal.Signal{a, b}, nil, false)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "low", counts[0].Signal)
	assert.Equal(t, 100, counts[0].Observed)
	assert.Equal(t, 25, counts[1].Observed)
	assert.Equal(t, 125, samples.Total())

	low, high := 0, 0
	for i := 0; i < samples.Len(); i++ {
		if samples.Row(i)[0] < 5 {
			low += samples.Weights[i]
		} else {
			high += samples.Weights[i]
		}
	}
	assert.Equal(t, 100, low)
	assert.Equal(t, 25, high)
}

func TestGenerate_SystematicsMoveEventsOutOfRange(t *testing.T) {
	s := newSignal(t, "high", 100, 1, 8, []model.Systematic{escale})
	g := New([]model.Observable{energy}, []model.Systematic{escale}, nil)

	// Scaling by 1.5 puts every event above 10.5.
	_, counts, err := g.Generate(rand.New(rand.NewPCG(7, 8)), []*signal.Signal{s}, []float64{1.5}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[0].Observed)
	assert.Equal(t, 0.0, counts[0].Efficiency)

	_, _, err = g.Generate(rand.New(rand.NewPCG(7, 8)), []*signal.Signal{s}, []float64{1, 2}, false)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	assert.Equal(t, map[string]float64{"escale": 1}, g.ParameterMap(nil))
	assert.Equal(t, []string{"energy"}, g.ObservableNames())
}

func TestEnsembleSummary(t *testing.T) {
	s := newSignal(t, "b8", 200, 1, 5, nil)
	g := New([]model.Observable{energy}, nil, nil)

	stream := func(i int) *rand.Rand { return rand.New(rand.NewPCG(99, uint64(i))) }
	ens, err := g.Ensemble(context.Background(), 50, 4, stream, []*signal.Signal{s}, nil, true)
	require.NoError(t, err)
	require.Len(t, ens.Samples, 50)

	summary, err := ens.Summary()
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, "b8", summary[0].Signal)
	assert.InDelta(t, 200, summary[0].Expected, 1e-9)
	assert.InDelta(t, 200, summary[0].Mean, 10)
	assert.Greater(t, summary[0].StdDev, 0.0)
	assert.LessOrEqual(t, summary[0].Min, summary[0].Mean)
	assert.GreaterOrEqual(t, summary[0].Max, summary[0].Mean)

	again, err := g.Ensemble(context.Background(), 50, 1, stream, []*signal.Signal{s}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, ens.Counts, again.Counts)

	empty := &Ensemble{}
	summary, err = empty.Summary()
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestEnsembleCancelled(t *testing.T) {
	s := newSignal(t, "b8", 20, 1, 5, nil)
	g := New([]model.Observable{energy}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stream := func(i int) *rand.Rand { return rand.New(rand.NewPCG(1, uint64(i))) }
	_, err := g.Ensemble(ctx, 10, 1, stream, []*signal.Signal{s}, nil, false)
	assert.ErrorIs(t, err, context.Canceled)
}
