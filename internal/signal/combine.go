package signal

import (
	"context"
	"fmt"
	"math/rand/v2"

	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal/pdf"
)

// BuildParts is the first phase of a chained group: every part becomes an
// independent intermediate model.
func (b *Builder) BuildParts(ctx context.Context, req model.SignalRequest) ([]*Signal, error) {
	if len(req.Parts) == 0 {
		return nil, core.NewConfigError(req.Name, "chained signal has no pdfs")
	}
	parts := make([]*Signal, 0, len(req.Parts))
	for _, c := range req.Parts {
		s, err := b.FromFiles(ctx, c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return parts, nil
}

// Seeds returns the per-part sampling expectations, expected * OversampleFactor.
func (b *Builder) Seeds(parts []*Signal) []float64 {
	seeds := make([]float64, len(parts))
	for i, p := range parts {
		seeds[i] = p.Seed(b.oversample)
	}
	return seeds
}

// CombinedEfficiency returns sum(E) / sum(E/e) over the parts.
func CombinedEfficiency(parts []*Signal) float64 {
	total, physical := 0.0, 0.0
	for _, p := range parts {
		total += p.NExpected
		if p.Efficiency > 0 {
			physical += p.NExpected / p.Efficiency
		}
	}
	if physical == 0 {
		return 0
	}
	return total / physical
}

// Combine is the second phase of a chained group: each part is
// pseudo-sampled with a Poisson count around its seed times its effective
// efficiency at params, the samples are concatenated, and one model is
// built from them. Its efficiency, expectation, sigma and physical event
// count are then corrected by the combined efficiency of the parts.
func (b *Builder) Combine(rng *rand.Rand, req model.SignalRequest, parts []*Signal, seeds []float64, params []float64) (*Signal, error) {
	if len(seeds) != len(parts) {
		return nil, core.NewDimensionMismatchError("chained signal seeds", len(parts), len(seeds))
	}
	b.logger.Info("generating combined pdf for %s", req.Name)

	samples := model.NewBinnedSample(len(b.observables))
	axes := pdf.AxesOf(b.observables)
	for i, p := range parts {
		eff, err := p.EffectiveEfficiency(params)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s: %w", p.Name, err)
		}
		drawn, n, err := p.Histogram.Sample(rng, seeds[i]*eff, params, axes, true)
		if err != nil {
			return nil, fmt.Errorf("failed to sample %s: %w", p.Name, err)
		}
		if err := samples.Append(drawn); err != nil {
			return nil, err
		}
		b.logger.Debug("%s: drew %d events from %s", req.Name, n, p.Name)
	}

	effTotal := CombinedEfficiency(parts)
	c := req.Contribution
	if !req.HasRate {
		c.NExpected = 0
		for _, p := range parts {
			c.NExpected += p.NExpected
		}
	}

	s, err := b.FromSamples(c, samples)
	if err != nil {
		return nil, fmt.Errorf("failed to build combined signal %s: %w", req.Name, err)
	}
	s.Efficiency *= effTotal
	s.NExpected *= effTotal
	s.Sigma *= effTotal
	if effTotal > 0 {
		s.NPhysical /= effTotal
	}

	b.logger.Info("%s: corrected to %g physical events, %g sampled, efficiency %g", s.Name, s.NPhysical, s.NEvents, s.Efficiency)
	if s.NExpected > 0 && b.experiment.LiveTime > 0 {
		years := s.NEvents / (s.NExpected / b.experiment.LiveTime)
		b.logger.Info("%s: using %g events (%.3g y)", s.Name, s.NEvents, years)
	}
	return s, nil
}
