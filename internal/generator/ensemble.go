package generator

import (
	"context"
	"math/rand/v2"
	"sync"

	"sxfit/domain/model"
	"sxfit/internal/signal"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"
)

// StreamFunc returns the random stream for pseudo-experiment i.
type StreamFunc func(experiment int) *rand.Rand

// CountSummary describes the observed counts of one signal across an ensemble.
type CountSummary struct {
	Signal   string  `json:"signal"`
	Expected float64 `json:"expected"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stddev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Ensemble is a set of pseudo-experiments drawn from the same model.
type Ensemble struct {
	Samples []*model.BinnedSample
	Counts  [][]model.SignalCount
}

// Ensemble draws n pseudo-experiments, each from its own stream, running at
// most workers at a time. Results are in experiment order whatever the
// scheduling.
func (g *Generator) Ensemble(ctx context.Context, n, workers int, stream StreamFunc, signals []*signal.Signal, params []float64, poisson bool) (*Ensemble, error) {
	if workers < 1 {
		workers = 1
	}
	e := &Ensemble{
		Samples: make([]*model.BinnedSample, n),
		Counts:  make([][]model.SignalCount, n),
	}
	errs := make([]error, n)

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			e.Samples[i], e.Counts[i], errs[i] = g.Generate(stream(i), signals, params, poisson)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Summary returns per-signal statistics of the observed counts.
func (e *Ensemble) Summary() ([]CountSummary, error) {
	if len(e.Counts) == 0 {
		return nil, nil
	}
	out := make([]CountSummary, len(e.Counts[0]))
	for j := range out {
		observed := make(stats.Float64Data, len(e.Counts))
		for i, counts := range e.Counts {
			observed[i] = float64(counts[j].Observed)
		}

		mean, err := observed.Mean()
		if err != nil {
			return nil, err
		}
		sd := 0.0
		if len(observed) > 1 {
			if sd, err = observed.StandardDeviationSample(); err != nil {
				return nil, err
			}
		}
		lo, err := observed.Min()
		if err != nil {
			return nil, err
		}
		hi, err := observed.Max()
		if err != nil {
			return nil, err
		}

		out[j] = CountSummary{
			Signal:   e.Counts[0][j].Signal,
			Expected: e.Counts[0][j].Expected,
			Mean:     mean,
			StdDev:   sd,
			Min:      lo,
			Max:      hi,
		}
	}
	return out, nil
}
