// Package pdf builds binned probability densities from sample buffers and
// evaluates, re-normalizes and samples them as systematic parameters vary.
package pdf

import (
	"math"
	"math/rand/v2"

	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal"
	"sxfit/internal/ingest"

	"gonum.org/v1/gonum/stat/distuv"
)

// Evaluator is the capability set of a parametrized density.
type Evaluator interface {
	// Normalize rebuilds the density for every parameter set in the shared
	// state and writes each set's in-range fraction to the owned slot.
	Normalize() error
	SetParameterBuffer(state *SharedState)
	SetNormalizationSlot(index int) error
	AddSystematic(t Transform) error
	// CreateHistogram materializes the density at the current parameters.
	CreateHistogram() (*Histogram, error)
	// InRangeFraction is the weight fraction of samples inside the
	// observable domain at params.
	InRangeFraction(params []float64) (float64, error)
	// Value is the probability mass of the bin holding point, for parameter set `set`.
	Value(set int, point []float64) (float64, error)
	// Sample draws count events (Poisson(count) when poisson is set) at params,
	// binned on bounds. A nil bounds uses the evaluator's own binning.
	Sample(rng *rand.Rand, count float64, params []float64, bounds []Axis, poisson bool) (*model.BinnedSample, int, error)
	Dim() int
}

var _ Evaluator = (*EvalHist)(nil)

// EvalHist is the histogram-backed Evaluator.
type EvalHist struct {
	buf        *ingest.Buffer
	obsCols    []int
	axes       []Axis
	transforms []Transform
	maxParam   int

	state *SharedState
	slot  *NormSlot
	// densities holds one normalized histogram per parameter set, built by Normalize.
	densities []*Histogram

	logger *internal.Logger
}

// NewEvalHist builds an evaluator over the observables, which must each
// resolve to a column of buf.
func NewEvalHist(buf *ingest.Buffer, observables []model.Observable, logger *internal.Logger) (*EvalHist, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if len(observables) == 0 || len(observables) > buf.NFields() {
		return nil, core.NewDimensionMismatchError("observable dimensions", buf.NFields(), len(observables))
	}

	obsCols := make([]int, len(observables))
	for i, o := range observables {
		col, err := buf.Column(o.FieldIndex)
		if err != nil {
			return nil, core.NewInvalidReferenceError(o.Field, "sample fields of observable "+o.Name)
		}
		obsCols[i] = col
	}
	axes := AxesOf(observables)
	for _, a := range axes {
		if err := a.validate(); err != nil {
			return nil, err
		}
	}

	return &EvalHist{
		buf:      buf,
		obsCols:  obsCols,
		axes:     axes,
		maxParam: -1,
		logger:   logger.WithComponent("pdf"),
	}, nil
}

// Dim returns the number of observable dimensions.
func (e *EvalHist) Dim() int {
	return len(e.axes)
}

// Axes returns the evaluator's own binning.
func (e *EvalHist) Axes() []Axis {
	return e.axes
}

// Buffer returns the sample buffer the evaluator was built from.
func (e *EvalHist) Buffer() *ingest.Buffer {
	return e.buf
}

// Transforms returns the attached systematics in application order.
func (e *EvalHist) Transforms() []Transform {
	return e.transforms
}

// SetParameterBuffer declares where live parameter values are read from.
// Any previously built densities are discarded and a claimed slot is released.
func (e *EvalHist) SetParameterBuffer(state *SharedState) {
	if e.slot != nil {
		e.slot.Release()
	}
	e.state = state
	e.slot = nil
	e.densities = nil
}

// SetNormalizationSlot claims slot index of the shared state for this evaluator.
func (e *EvalHist) SetNormalizationSlot(index int) error {
	if e.state == nil {
		return core.NewConfigError("normalization slot", "no parameter buffer set")
	}
	slot, err := e.state.Slot(index)
	if err != nil {
		return err
	}
	e.slot = slot
	return nil
}

// NormalizationSlot returns the claimed slot, or nil.
func (e *EvalHist) NormalizationSlot() *NormSlot {
	return e.slot
}

// AddSystematic attaches t; transforms apply in attachment order.
func (e *EvalHist) AddSystematic(t Transform) error {
	for _, c := range t.Columns() {
		if c < 0 || c >= e.buf.NFields() {
			return core.NewInvalidReferenceError("column", "sample buffer")
		}
	}
	if t.ParamIndex() < 0 {
		return core.NewDimensionMismatchError("systematic parameter index", 0, t.ParamIndex())
	}
	e.transforms = append(e.transforms, t)
	if t.ParamIndex() > e.maxParam {
		e.maxParam = t.ParamIndex()
	}
	e.densities = nil
	return nil
}

// fill bins every buffered row, after applying the transforms at params,
// and returns the histogram and the in-range weight fraction.
func (e *EvalHist) fill(params []float64, axes []Axis) (*Histogram, float64, error) {
	if len(axes) != len(e.axes) {
		return nil, 0, core.NewDimensionMismatchError("sampling bounds", len(e.axes), len(axes))
	}
	if e.maxParam >= len(params) {
		return nil, 0, core.NewDimensionMismatchError("parameter values", e.maxParam+1, len(params))
	}
	h, err := NewHistogram(axes)
	if err != nil {
		return nil, 0, err
	}

	scratch := make([]float64, e.buf.NFields())
	point := make([]float64, len(e.obsCols))
	total, inside := 0.0, 0.0
	for i, rows := 0, e.buf.Rows(); i < rows; i++ {
		copy(scratch, e.buf.Row(i))
		for _, t := range e.transforms {
			t.Apply(scratch, params)
		}
		for d, c := range e.obsCols {
			point[d] = scratch[c]
		}
		w := e.buf.Weight(i)
		total += w
		if h.Fill(point, w) {
			inside += w
		}
	}

	if total == 0 {
		return h, 0, nil
	}
	return h, inside / total, nil
}

// Normalize rebuilds the density for each parameter set. Without a shared
// state the density is built once with no parameters.
func (e *EvalHist) Normalize() error {
	if e.state == nil {
		h, _, err := e.fill(nil, e.axes)
		if err != nil {
			return err
		}
		h.Normalize()
		e.densities = []*Histogram{h}
		return nil
	}

	densities := make([]*Histogram, e.state.NSets())
	for set := range densities {
		h, frac, err := e.fill(e.state.Parameters(set), e.axes)
		if err != nil {
			return err
		}
		h.Normalize()
		densities[set] = h
		if e.slot != nil {
			if err := e.slot.Write(set, frac); err != nil {
				return err
			}
		}
	}
	e.densities = densities
	return nil
}

func (e *EvalHist) currentParams() []float64 {
	if e.state == nil {
		return nil
	}
	return e.state.Parameters(0)
}

// CreateHistogram materializes the normalized density at the first parameter set.
func (e *EvalHist) CreateHistogram() (*Histogram, error) {
	if d := e.Dim(); d < 1 || d > 3 {
		return nil, core.NewDimensionMismatchError("histogram dimensions (1-3)", 3, d)
	}
	if len(e.densities) > 0 {
		return e.densities[0].Clone(), nil
	}
	h, _, err := e.fill(e.currentParams(), e.axes)
	if err != nil {
		return nil, err
	}
	h.Normalize()
	return h, nil
}

// InRangeFraction returns the weight fraction of samples that land inside
// the observable domain after the transforms are applied at params.
func (e *EvalHist) InRangeFraction(params []float64) (float64, error) {
	_, frac, err := e.fill(params, e.axes)
	return frac, err
}

// Value returns the probability mass of the bin holding point for parameter
// set `set`, not a density per unit volume: contents over all bins sum to 1.
// Points outside the domain have zero mass.
func (e *EvalHist) Value(set int, point []float64) (float64, error) {
	if e.densities == nil {
		if err := e.Normalize(); err != nil {
			return 0, err
		}
	}
	if set < 0 || set >= len(e.densities) {
		return 0, core.NewDimensionMismatchError("parameter set index", len(e.densities), set)
	}
	if len(point) != e.Dim() {
		return 0, core.NewDimensionMismatchError("point dimensions", e.Dim(), len(point))
	}
	h := e.densities[set]
	flat, ok := h.Index(point)
	if !ok {
		return 0, nil
	}
	return h.Contents[flat], nil
}

// Sample draws events from the density at params. The returned sample holds
// one row per non-empty bin at the bin centre, weighted by its event count.
func (e *EvalHist) Sample(rng *rand.Rand, count float64, params []float64, bounds []Axis, poisson bool) (*model.BinnedSample, int, error) {
	if bounds == nil {
		bounds = e.axes
	}
	h, _, err := e.fill(params, bounds)
	if err != nil {
		return nil, 0, err
	}

	out := model.NewBinnedSample(e.Dim())
	n := drawCount(rng, count, poisson)
	if n == 0 {
		return out, 0, nil
	}

	// Negative weights cannot be drawn from.
	probs := make([]float64, len(h.Contents))
	sum := 0.0
	for i, w := range h.Contents {
		if w > 0 {
			probs[i] = w
			sum += w
		}
	}
	if sum == 0 {
		e.logger.Warn("no density inside sampling bounds; drew 0 of %d events", n)
		return out, 0, nil
	}

	counts := make([]int, len(probs))
	cat := distuv.NewCategorical(probs, rng)
	for i := 0; i < n; i++ {
		counts[int(cat.Rand())]++
	}

	centre := make([]float64, e.Dim())
	for flat, c := range counts {
		if c == 0 {
			continue
		}
		h.Centre(flat, centre)
		out.Add(centre, c)
	}
	return out, n, nil
}

// drawCount returns round(count), or a Poisson(count) draw.
func drawCount(rng *rand.Rand, count float64, poisson bool) int {
	if count <= 0 || math.IsNaN(count) {
		return 0
	}
	if !poisson {
		return int(math.Round(count))
	}
	return int(distuv.Poisson{Lambda: count, Src: rng}.Rand())
}
