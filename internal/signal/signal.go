// Package signal builds Signal Models: one physical process's expected
// rate, constraint and parametrized density, from event files or from
// already-materialized weighted samples.
package signal

import (
	"sxfit/internal/pdf"
)

// Signal is one modeled process.
type Signal struct {
	Name     string
	Title    string
	Category string

	// NExpected and Sigma are exposure-scaled and corrected for Efficiency.
	NExpected float64
	Sigma     float64

	// NEvents is the (weighted) number of sample events the density is built from;
	// NPhysical is the number before cuts.
	NEvents   float64
	NPhysical float64

	// Efficiency is the fraction of events surviving cuts and exclusions.
	Efficiency float64

	Histogram *pdf.EvalHist
}

// EffectiveEfficiency is the fraction of the density that stays inside the
// observable domain with the systematics at params. The cut efficiency is
// already folded into NExpected and is not applied again.
func (s *Signal) EffectiveEfficiency(params []float64) (float64, error) {
	return s.Histogram.InRangeFraction(params)
}

// Seed returns the initial parameter guess for this signal's normalization.
func (s *Signal) Seed(factor float64) float64 {
	return s.NExpected * factor
}
