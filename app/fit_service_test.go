package app

import (
	"context"
	"math"
	"sync"
	"testing"

	"sxfit/adapters/rng"
	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal/errors"
	"sxfit/internal/fitconfig"
	"sxfit/internal/ingest"
	"sxfit/internal/testkit"
	"sxfit/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
experiment:
  live_time: 1.0
pdfs:
  observables:
    energy: {field: energy, bins: 20, min: 0, max: 10}
  systematics:
    escale: {observable_field: energy, type: scale, mean: 1.0, sigma: 0.01}
fit:
  signals: [b8, u238]
  observables: [energy]
  systematics: [escale]
signals:
  b8: {rate: 100, files: [b8.mem]}
  u238:
    pdfs:
      bi214: {rate: 40, files: [bi214.mem]}
      pb214: {rate: 60, files: [pb214.mem]}
`

type memoryRepo struct {
	mu    sync.Mutex
	saved []*model.FakeDataset
}

func (r *memoryRepo) Init(ctx context.Context) error { return nil }

func (r *memoryRepo) Save(ctx context.Context, ds *model.FakeDataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, ds)
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id core.DatasetID) (*model.FakeDataset, error) {
	return nil, nil
}

func (r *memoryRepo) ListByConfig(ctx context.Context, hash core.ConfigHash, limit int) ([]ports.DatasetSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ports.DatasetSummary
	for _, ds := range r.saved {
		if ds.ConfigHash == hash {
			out = append(out, ports.DatasetSummary{ID: ds.ID, Experiment: ds.Experiment, Observed: ds.Observed()})
		}
	}
	return out, nil
}

func (r *memoryRepo) Close() error { return nil }

func gaussianEvents(seed uint64, mean float64) *ports.RawDataset {
	return testkit.NewEventGenerator(testkit.EventGeneratorConfig{
		Events: 2000,
		Seed:   seed,
		Fields: []testkit.FieldShape{{Name: "energy", Mean: mean, Sigma: 1}},
	}).Generate()
}

func newTestService(t *testing.T, files map[string]*ports.RawDataset, opts ...ServiceOption) *FitService {
	t.Helper()
	cfg, err := fitconfig.Parse([]byte(testConfig))
	require.NoError(t, err)

	src := testkit.NewMemorySource()
	for name, ds := range files {
		src.Put(name, ds)
	}
	return NewFitService(cfg, ingest.NewSources(src), rng.NewSeeded(42), opts...)
}

func allFiles() map[string]*ports.RawDataset {
	return map[string]*ports.RawDataset{
		"b8.mem":    gaussianEvents(1, 6),
		"bi214.mem": gaussianEvents(2, 3),
		"pb214.mem": gaussianEvents(3, 4),
	}
}

func TestBuildSignals(t *testing.T) {
	svc := newTestService(t, allFiles(), WithWorkers(3))

	m, err := svc.BuildSignals(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Signals, 2)
	assert.Equal(t, "b8", m.Signals[0].Name)
	assert.Equal(t, "u238", m.Signals[1].Name)
	assert.InDelta(t, 100, m.Signals[0].NExpected, 1e-9)
	assert.InDelta(t, 100, m.Signals[1].NExpected, 1e-9)

	assert.Equal(t, 2, m.State.NSlots())
	for i := range m.Signals {
		assert.Greater(t, m.State.Norm(0, i), 0.99)
		assert.Equal(t, i, m.Signals[i].Histogram.NormalizationSlot().Index())
	}
}

func TestBuildSignals_MissingFile(t *testing.T) {
	files := allFiles()
	delete(files, "pb214.mem")
	svc := newTestService(t, files, WithWorkers(2))

	_, err := svc.BuildSignals(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
	assert.ErrorIs(t, err, core.ErrIO)
}

func TestGenerateFake(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(t, allFiles(), WithWorkers(2), WithRepository(repo), WithSeed(42))
	ctx := context.Background()

	m, err := svc.BuildSignals(ctx)
	require.NoError(t, err)

	res, err := svc.GenerateFake(ctx, m, FakeRequest{Experiments: 3, Persist: true})
	require.NoError(t, err)
	require.Len(t, res.Datasets, 3)
	require.Len(t, res.Summary, 2)
	assert.Len(t, repo.saved, 3)

	for i, ds := range res.Datasets {
		assert.Equal(t, i, ds.Experiment)
		assert.Equal(t, uint64(42), ds.Seed)
		assert.Equal(t, []string{"energy"}, ds.Observables)
		assert.Equal(t, map[string]float64{"escale": 1}, ds.Parameters)
		assert.Equal(t, core.ComputeParameterHash(ds.Parameters), ds.ParamHash)
		assert.Equal(t, res.Datasets[0].ParamHash, ds.ParamHash)
		for _, c := range ds.Counts {
			assert.Equal(t, int(math.Round(c.Expected)), c.Observed)
		}
		assert.Equal(t, ds.Observed(), ds.Samples.Total())
	}

	list, err := svc.ListDatasets(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestGenerateFake_Deterministic(t *testing.T) {
	ctx := context.Background()
	run := func(workers int) [][]model.SignalCount {
		svc := newTestService(t, allFiles(), WithWorkers(workers))
		m, err := svc.BuildSignals(ctx)
		require.NoError(t, err)
		res, err := svc.GenerateFake(ctx, m, FakeRequest{Experiments: 4, Poisson: true})
		require.NoError(t, err)
		out := make([][]model.SignalCount, len(res.Datasets))
		for i, ds := range res.Datasets {
			out[i] = ds.Counts
		}
		return out
	}
	assert.Equal(t, run(1), run(4))
}

func TestGenerateFake_Errors(t *testing.T) {
	svc := newTestService(t, allFiles())
	ctx := context.Background()
	m, err := svc.BuildSignals(ctx)
	require.NoError(t, err)

	_, err = svc.GenerateFake(ctx, m, FakeRequest{Experiments: 0})
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	_, err = svc.GenerateFake(ctx, m, FakeRequest{Experiments: 1, Persist: true})
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	_, err = svc.GenerateFake(ctx, m, FakeRequest{Experiments: 1, Parameters: []float64{1, 2}})
	assert.Equal(t, errors.CodeDimensionMismatch, errors.GetCode(err))

	_, err = svc.ListDatasets(ctx, 10)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
