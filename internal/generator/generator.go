// Package generator draws pseudo-datasets from Signal Models.
package generator

import (
	"fmt"
	"math/rand/v2"

	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal"
	"sxfit/internal/pdf"
	"sxfit/internal/signal"
)

// Generator draws fake datasets for one resolved model.
type Generator struct {
	observables []model.Observable
	systematics []model.Systematic
	logger      *internal.Logger
}

// New creates a generator over the given observables and systematics.
func New(observables []model.Observable, systematics []model.Systematic, logger *internal.Logger) *Generator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Generator{
		observables: observables,
		systematics: systematics,
		logger:      logger.WithComponent("generator"),
	}
}

// Generate draws one pseudo-dataset. For every signal the expected count is
// nexpected times its effective efficiency at params; the observed count is
// that number rounded, or a Poisson draw around it. A nil params uses the
// systematic means.
func (g *Generator) Generate(rng *rand.Rand, signals []*signal.Signal, params []float64, poisson bool) (*model.BinnedSample, []model.SignalCount, error) {
	if params == nil {
		params = model.Means(g.systematics)
	}
	if len(params) != len(g.systematics) {
		return nil, nil, core.NewDimensionMismatchError("systematic parameters", len(g.systematics), len(params))
	}

	bounds := pdf.AxesOf(g.observables)
	out := model.NewBinnedSample(len(g.observables))
	counts := make([]model.SignalCount, len(signals))
	for i, s := range signals {
		eff, err := s.EffectiveEfficiency(params)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to evaluate efficiency of %s: %w", s.Name, err)
		}
		nevents := s.NExpected * eff

		drawn, observed, err := s.Histogram.Sample(rng, nevents, params, bounds, poisson)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to sample %s: %w", s.Name, err)
		}
		if err := out.Append(drawn); err != nil {
			return nil, nil, err
		}

		counts[i] = model.SignalCount{Signal: s.Name, Expected: nevents, Efficiency: eff, Observed: observed}
		g.logger.Info("%s: %d events (%g expected, efficiency = %g)", s.Name, observed, nevents, eff)
	}
	return out, counts, nil
}

// ParameterMap names params by systematic, for recording with a dataset.
func (g *Generator) ParameterMap(params []float64) map[string]float64 {
	if params == nil {
		params = model.Means(g.systematics)
	}
	m := make(map[string]float64, len(g.systematics))
	for i, s := range g.systematics {
		if i < len(params) {
			m[s.Name] = params[i]
		}
	}
	return m
}

// ObservableNames returns the observable names in sample column order.
func (g *Generator) ObservableNames() []string {
	names := make([]string, len(g.observables))
	for i, o := range g.observables {
		names[i] = o.Name
	}
	return names
}
