package model

import (
	"time"

	"sxfit/domain/core"
)

// BinnedSample is a flat, row-major set of weighted points: each row holds
// one coordinate per observable (a bin centre) and Weights[row] events.
type BinnedSample struct {
	Dim     int       `json:"dim"`
	Values  []float64 `json:"values"`
	Weights []int     `json:"weights"`
}

// NewBinnedSample creates an empty sample with dim coordinates per row.
func NewBinnedSample(dim int) *BinnedSample {
	return &BinnedSample{Dim: dim}
}

// Len returns the number of rows.
func (b *BinnedSample) Len() int {
	return len(b.Weights)
}

// Row returns the coordinates of row i without copying.
func (b *BinnedSample) Row(i int) []float64 {
	return b.Values[i*b.Dim : (i+1)*b.Dim]
}

// Add appends one weighted row.
func (b *BinnedSample) Add(coords []float64, weight int) {
	b.Values = append(b.Values, coords...)
	b.Weights = append(b.Weights, weight)
}

// Append concatenates another sample of the same dimensionality.
func (b *BinnedSample) Append(other *BinnedSample) error {
	if other == nil {
		return nil
	}
	if other.Dim != b.Dim {
		return core.NewDimensionMismatchError("binned sample dimension", b.Dim, other.Dim)
	}
	b.Values = append(b.Values, other.Values...)
	b.Weights = append(b.Weights, other.Weights...)
	return nil
}

// Total returns the summed weight, i.e. the number of events represented.
func (b *BinnedSample) Total() int {
	n := 0
	for _, w := range b.Weights {
		n += w
	}
	return n
}

// SignalCount records one signal's contribution to a pseudo-dataset.
type SignalCount struct {
	Signal     string  `json:"signal" db:"signal"`
	Expected   float64 `json:"expected" db:"expected"`     // nexpected * effective efficiency
	Efficiency float64 `json:"efficiency" db:"efficiency"` // Effective efficiency at the generation parameters
	Observed   int     `json:"observed" db:"observed"`
}

// FakeDataset is one generated pseudo-experiment.
type FakeDataset struct {
	ID          core.DatasetID     `json:"id"`
	Experiment  int                `json:"experiment"` // Index within an ensemble
	CreatedAt   time.Time          `json:"created_at"`
	ConfigHash  core.ConfigHash    `json:"config_hash"`
	Seed        uint64             `json:"seed"`
	Poisson     bool               `json:"poisson"`
	Observables []string           `json:"observables"`
	Parameters  map[string]float64 `json:"parameters"` // Systematic name -> value used
	ParamHash   core.Hash          `json:"parameter_hash"`
	Samples     *BinnedSample      `json:"samples"`
	Counts      []SignalCount      `json:"counts"`
}

// Observed returns the total number of events across signals.
func (d *FakeDataset) Observed() int {
	n := 0
	for _, c := range d.Counts {
		n += c.Observed
	}
	return n
}
