package model

import (
	"sxfit/domain/core"
)

// RCubedName is the observable name that triggers the (r/6005)^3 volume transform.
const RCubedName = "R_CUBED"

// RCubedRadius is the normalizing radius for the R_CUBED transform.
const RCubedRadius = 6005.0

// Observable is a named, bounded, binned physical quantity used as a fit dimension.
// The same structure describes cuts, where only Field/Lower/Upper matter.
type Observable struct {
	Name       string  `json:"name"`
	Title      string  `json:"title"`                 // Display title (ROOT LaTeX)
	Field      string  `json:"field"`                 // Source field name, e.g. "energy"
	Units      string  `json:"units"`                 // Unit label for display
	FieldIndex int     `json:"field_index"`           // Resolved Field Catalog index
	Bins       int     `json:"bins"`                  // Number of bins
	Lower      float64 `json:"lower"`                 // Inclusive lower bound
	Upper      float64 `json:"upper"`                 // Inclusive upper bound
	Exclude    bool    `json:"exclude"`               // Exclude a window inside the fit range
	ExcludeMin float64 `json:"exclude_min,omitempty"` // Lower edge of excluded window
	ExcludeMax float64 `json:"exclude_max,omitempty"` // Upper edge of excluded window
}

// Validate checks the invariants of an observable definition.
func (o Observable) Validate() error {
	if o.Name == "" {
		return core.NewConfigError("observable", "name is required")
	}
	if o.Field == "" {
		return core.NewConfigError(o.Name, "field is required")
	}
	if o.Upper < o.Lower {
		return core.NewConfigError(o.Name, "max must not be below min")
	}
	if o.Exclude && !(o.ExcludeMin < o.ExcludeMax) {
		return core.NewConfigError(o.Name, "exclude window must satisfy min < max")
	}
	return nil
}

// ValidateBinned additionally requires a positive bin count, for fit dimensions.
func (o Observable) ValidateBinned() error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.Bins <= 0 {
		return core.NewConfigError(o.Name, "bins must be positive")
	}
	return nil
}

// InRange reports whether v lies in the closed interval [Lower, Upper].
func (o Observable) InRange(v float64) bool {
	return v >= o.Lower && v <= o.Upper
}

// InExcluded reports whether v lies inside the closed exclusion window.
// Always false when no window is declared.
func (o Observable) InExcluded(v float64) bool {
	return o.Exclude && v >= o.ExcludeMin && v <= o.ExcludeMax
}

// IsRCubed reports whether this observable receives the R_CUBED transform.
func (o Observable) IsRCubed() bool {
	return o.Name == RCubedName
}
