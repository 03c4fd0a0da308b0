package signal

import (
	"context"
	"fmt"
	"math/rand/v2"

	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal"
	"sxfit/internal/ingest"
	"sxfit/internal/pdf"
)

// DefaultOversampleFactor multiplies each sub-signal's expectation when a
// chained group is pseudo-sampled, and seeds its normalization guess.
const DefaultOversampleFactor = 10.0

// Builder turns signal requests into Signal Models against one resolved
// set of observables, cuts and systematics.
type Builder struct {
	sources     *ingest.Sources
	experiment  model.Experiment
	observables []model.Observable
	cuts        []model.Observable
	systematics []model.Systematic

	// Sample fields: observable fields first, then fields perturbed by
	// systematics and resolution truth fields.
	fields  []string
	columns []int

	oversample float64
	logger     *internal.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithOversampleFactor overrides DefaultOversampleFactor.
func WithOversampleFactor(f float64) Option {
	return func(b *Builder) { b.oversample = f }
}

// WithLogger sets the logger used for build progress.
func WithLogger(l *internal.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder. Observables and systematics must already
// carry resolved Field Catalog indices.
func NewBuilder(sources *ingest.Sources, experiment model.Experiment, observables, cuts []model.Observable, systematics []model.Systematic, opts ...Option) (*Builder, error) {
	if len(observables) == 0 {
		return nil, core.NewConfigError("observables", "at least one observable is required")
	}
	b := &Builder{
		sources:     sources,
		experiment:  experiment,
		observables: observables,
		cuts:        cuts,
		systematics: systematics,
		oversample:  DefaultOversampleFactor,
		logger:      internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.oversample <= 0 {
		return nil, core.NewConfigError("oversample factor", fmt.Sprintf("must be positive, got %g", b.oversample))
	}
	b.logger = b.logger.WithComponent("signal")

	seen := make(map[int]bool)
	add := func(field string, index int) {
		if !seen[index] {
			seen[index] = true
			b.fields = append(b.fields, field)
			b.columns = append(b.columns, index)
		}
	}
	for _, o := range observables {
		add(o.Field, o.FieldIndex)
	}
	for _, s := range systematics {
		add(s.ObservableField, s.ObservableFieldIndex)
		if s.Kind == model.ResolutionScale {
			add(s.TruthField, s.TruthFieldIndex)
		}
	}
	return b, nil
}

// SampleFields returns the field names stored per event, in column order.
func (b *Builder) SampleFields() []string {
	return b.fields
}

// OversampleFactor returns the chained-group sampling factor.
func (b *Builder) OversampleFactor() float64 {
	return b.oversample
}

// Build produces the Signal Models for one request. A plain signal or a
// chained group yields one model; a non-chained group yields one per part.
// rng is only consumed by chained groups.
func (b *Builder) Build(ctx context.Context, req model.SignalRequest, rng *rand.Rand) ([]*Signal, error) {
	if !req.IsGroup() {
		s, err := b.FromFiles(ctx, req.Contribution)
		if err != nil {
			return nil, err
		}
		return []*Signal{s}, nil
	}

	if !req.Chain {
		out := make([]*Signal, 0, len(req.Parts))
		for _, part := range req.Parts {
			s, err := b.FromFiles(ctx, part)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}

	parts, err := b.BuildParts(ctx, req)
	if err != nil {
		return nil, err
	}
	combined, err := b.Combine(rng, req, parts, b.Seeds(parts), model.Means(b.systematics))
	if err != nil {
		return nil, err
	}
	return []*Signal{combined}, nil
}

// FromFiles ingests every file of c and builds its model. The record set
// inside multi-table files is the contribution name.
func (b *Builder) FromFiles(ctx context.Context, c model.Contribution) (*Signal, error) {
	in, err := ingest.New(ingest.Spec{
		Fields:      b.fields,
		Columns:     b.columns,
		Observables: b.observables,
		Cuts:        b.cuts,
	}, b.logger)
	if err != nil {
		return nil, err
	}
	if err := b.sources.ReadInto(ctx, in, c.Name, c.Files); err != nil {
		return nil, fmt.Errorf("failed to read events for %s: %w", c.Name, err)
	}
	return b.fromBuffer(c, in.Buffer(), b.systematics)
}

// FromSamples builds a model from weighted binned samples whose columns are
// the observables, in order. Exclusion windows still apply; cuts do not.
func (b *Builder) FromSamples(c model.Contribution, samples *model.BinnedSample) (*Signal, error) {
	if samples.Dim != len(b.observables) {
		return nil, core.NewDimensionMismatchError("sample dimensions", len(b.observables), samples.Dim)
	}
	fields := make([]string, len(b.observables))
	columns := make([]int, len(b.observables))
	for i, o := range b.observables {
		fields[i] = o.Field
		columns[i] = o.FieldIndex
	}

	in, err := ingest.New(ingest.Spec{Fields: fields, Columns: columns, Observables: b.observables}, b.logger)
	if err != nil {
		return nil, err
	}
	weights := make([]float64, len(samples.Weights))
	for i, w := range samples.Weights {
		weights[i] = float64(w)
	}
	if err := in.AddWeighted(samples.Values, weights); err != nil {
		return nil, err
	}
	return b.fromBuffer(c, in.Buffer(), b.systematics)
}

func (b *Builder) fromBuffer(c model.Contribution, buf *ingest.Buffer, systematics []model.Systematic) (*Signal, error) {
	eff := buf.Efficiency()
	if buf.Rows() == 0 {
		b.logger.Warn("%s: no events survive cuts", c.Name)
	}

	hist, err := pdf.NewEvalHist(buf, b.observables, b.logger)
	if err != nil {
		return nil, err
	}
	for i, sys := range systematics {
		t, err := pdf.NewTransform(sys, i, buf)
		if err != nil {
			return nil, fmt.Errorf("failed to attach systematic to %s: %w", c.Name, err)
		}
		if err := hist.AddSystematic(t); err != nil {
			return nil, err
		}
	}

	s := &Signal{
		Name:       c.Name,
		Title:      c.Title,
		Category:   c.Category,
		NExpected:  c.NExpected * eff,
		Sigma:      c.Sigma * eff,
		NEvents:    buf.Surviving,
		NPhysical:  buf.Total,
		Efficiency: eff,
		Histogram:  hist,
	}
	if s.Title == "" {
		s.Title = s.Name
	}
	b.logger.Debug("%s: nexpected=%g sigma=%g efficiency=%g", s.Name, s.NExpected, s.Sigma, s.Efficiency)
	return s, nil
}
