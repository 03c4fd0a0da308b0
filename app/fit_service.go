package app

import (
	"context"
	"math/rand/v2"
	"time"

	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal"
	"sxfit/internal/errors"
	"sxfit/internal/fitconfig"
	"sxfit/internal/generator"
	"sxfit/internal/ingest"
	"sxfit/internal/pdf"
	"sxfit/internal/signal"
	"sxfit/ports"

	"golang.org/x/sync/errgroup"
)

// FitService builds the signal models of one fit configuration and draws
// pseudo-datasets from them
type FitService struct {
	cfg        *fitconfig.Config
	sources    *ingest.Sources
	rngPort    ports.RNGPort
	repo       ports.DatasetRepository
	workers    int
	oversample float64
	seed       uint64
	logger     *internal.Logger
}

// ServiceOption configures a FitService
type ServiceOption func(*FitService)

// WithWorkers bounds concurrent signal builds and pseudo-experiments.
func WithWorkers(n int) ServiceOption {
	return func(s *FitService) { s.workers = n }
}

// WithOversampleFactor sets the chained-signal seed multiplier.
func WithOversampleFactor(f float64) ServiceOption {
	return func(s *FitService) { s.oversample = f }
}

// WithSeed records the master seed on generated datasets.
func WithSeed(seed uint64) ServiceOption {
	return func(s *FitService) { s.seed = seed }
}

// WithRepository persists generated datasets.
func WithRepository(repo ports.DatasetRepository) ServiceOption {
	return func(s *FitService) { s.repo = repo }
}

// WithLogger sets the logger.
func WithLogger(l *internal.Logger) ServiceOption {
	return func(s *FitService) { s.logger = l }
}

// NewFitService creates a fit service
func NewFitService(cfg *fitconfig.Config, sources *ingest.Sources, rngPort ports.RNGPort, opts ...ServiceOption) *FitService {
	s := &FitService{
		cfg:        cfg,
		sources:    sources,
		rngPort:    rngPort,
		workers:    1,
		oversample: signal.DefaultOversampleFactor,
		logger:     internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	s.logger = s.logger.WithComponent("fit")
	return s
}

// Model is the set of built signals sharing one parameter/normalization state.
type Model struct {
	Signals []*signal.Signal
	State   *pdf.SharedState
}

// FakeRequest selects how pseudo-experiments are drawn
type FakeRequest struct {
	Experiments int
	Poisson     bool
	// Parameters are the systematic values; nil means the configured means.
	Parameters []float64
	Persist    bool
}

// FakeResult contains the generated datasets and count statistics
type FakeResult struct {
	Datasets  []*model.FakeDataset     `json:"datasets"`
	Summary   []generator.CountSummary `json:"summary"`
	RuntimeMs int64                    `json:"runtime_ms"`
}

// BuildSignals builds every configured signal, in configuration order, then
// attaches each to the shared state and normalizes it at the systematic means.
func (s *FitService) BuildSignals(ctx context.Context) (*Model, error) {
	start := time.Now()
	builder, err := signal.NewBuilder(s.sources, s.cfg.Experiment, s.cfg.Observables, s.cfg.Cuts, s.cfg.Systematics,
		signal.WithOversampleFactor(s.oversample), signal.WithLogger(s.logger))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signal builder")
	}

	built := make([][]*signal.Signal, len(s.cfg.Signals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, req := range s.cfg.Signals {
		g.Go(func() error {
			out, err := builder.Build(gctx, req, s.rngPort.Stream(req.Name, 0))
			if err != nil {
				return errors.Wrapf(err, "failed to build signal %s", req.Name)
			}
			built[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var signals []*signal.Signal
	for _, out := range built {
		signals = append(signals, out...)
	}

	state, err := pdf.NewSharedState(len(s.cfg.Systematics), 1, len(signals))
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate shared state")
	}
	if err := state.SetParameters(0, model.Means(s.cfg.Systematics)); err != nil {
		return nil, errors.Wrap(err, "failed to set systematic means")
	}
	for i, sig := range signals {
		sig.Histogram.SetParameterBuffer(state)
		if err := sig.Histogram.SetNormalizationSlot(i); err != nil {
			return nil, errors.Wrapf(err, "failed to claim normalization slot for %s", sig.Name)
		}
		if err := sig.Histogram.Normalize(); err != nil {
			return nil, errors.Wrapf(err, "failed to normalize %s", sig.Name)
		}
	}

	s.logger.Info("built %d signals from %d requests in %s", len(signals), len(s.cfg.Signals), time.Since(start).Round(time.Millisecond))
	return &Model{Signals: signals, State: state}, nil
}

// GenerateFake draws req.Experiments pseudo-datasets from m and optionally
// persists them.
func (s *FitService) GenerateFake(ctx context.Context, m *Model, req FakeRequest) (*FakeResult, error) {
	start := time.Now()
	if req.Experiments < 1 {
		return nil, errors.Wrap(core.NewConfigError("experiments", "must be at least 1"), "invalid fake request")
	}
	if req.Persist && s.repo == nil {
		return nil, errors.New(errors.CodeConfigInvalid, "persisting datasets requires a repository")
	}

	gen := generator.New(s.cfg.Observables, s.cfg.Systematics, s.logger)
	stream := func(i int) *rand.Rand { return s.rngPort.Stream("fake", i) }
	ens, err := gen.Ensemble(ctx, req.Experiments, s.workers, stream, m.Signals, req.Parameters, req.Poisson)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate pseudo-experiments")
	}
	summary, err := ens.Summary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to summarize pseudo-experiments")
	}

	params := gen.ParameterMap(req.Parameters)
	paramHash := core.ComputeParameterHash(params)
	result := &FakeResult{Summary: summary}
	for i := range ens.Samples {
		ds := &model.FakeDataset{
			ID:          core.NewDatasetID(),
			Experiment:  i,
			CreatedAt:   time.Now().UTC(),
			ConfigHash:  s.cfg.Hash,
			Seed:        s.seed,
			Poisson:     req.Poisson,
			Observables: gen.ObservableNames(),
			Parameters:  params,
			ParamHash:   paramHash,
			Samples:     ens.Samples[i],
			Counts:      ens.Counts[i],
		}
		if req.Persist {
			if err := s.repo.Save(ctx, ds); err != nil {
				return nil, errors.WithCode(errors.CodeStorageError, errors.Wrapf(err, "failed to save dataset %d", i))
			}
		}
		result.Datasets = append(result.Datasets, ds)
	}

	result.RuntimeMs = time.Since(start).Milliseconds()
	s.logger.Info("generated %d pseudo-experiments in %dms", req.Experiments, result.RuntimeMs)
	return result, nil
}

// ListDatasets lists persisted datasets for the loaded configuration.
func (s *FitService) ListDatasets(ctx context.Context, limit int) ([]ports.DatasetSummary, error) {
	if s.repo == nil {
		return nil, errors.New(errors.CodeConfigInvalid, "no dataset repository configured")
	}
	out, err := s.repo.ListByConfig(ctx, s.cfg.Hash, limit)
	if err != nil {
		return nil, errors.WithCode(errors.CodeStorageError, err)
	}
	return out, nil
}
