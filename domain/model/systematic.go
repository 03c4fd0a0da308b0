package model

import (
	"strings"

	"sxfit/domain/core"
)

// SystematicKind is the closed set of supported nuisance transforms.
type SystematicKind int

const (
	Shift SystematicKind = iota
	Scale
	ResolutionScale
)

// String returns the configuration spelling of the kind.
func (k SystematicKind) String() string {
	switch k {
	case Shift:
		return "shift"
	case Scale:
		return "scale"
	case ResolutionScale:
		return "resolution_scale"
	default:
		return "unknown"
	}
}

// ParseSystematicKind maps the configuration spelling to a kind.
func ParseSystematicKind(name, s string) (SystematicKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shift":
		return Shift, nil
	case "scale":
		return Scale, nil
	case "resolution_scale":
		return ResolutionScale, nil
	default:
		return 0, core.NewUnknownSystematicTypeError(name, s)
	}
}

// Systematic is a recipe for a parametrized perturbation of one observable field.
// Mean and Sigma form a Gaussian prior for the outer fit; Sigma == 0 means unconstrained.
type Systematic struct {
	Name                 string         `json:"name"`
	Title                string         `json:"title"`
	Kind                 SystematicKind `json:"kind"`
	ObservableField      string         `json:"observable_field"`
	ObservableFieldIndex int            `json:"observable_field_index"`
	TruthField           string         `json:"truth_field,omitempty"` // ResolutionScale only
	TruthFieldIndex      int            `json:"truth_field_index"`
	Mean                 float64        `json:"mean"`
	Sigma                float64        `json:"sigma"`
	Fixed                bool           `json:"fixed"` // Outer fit must not vary it
}

// Constrained reports whether the outer fit applies a Gaussian penalty.
func (s Systematic) Constrained() bool {
	return s.Sigma != 0
}

// Validate checks field presence for the declared kind.
func (s Systematic) Validate() error {
	if s.Name == "" {
		return core.NewConfigError("systematic", "name is required")
	}
	if s.ObservableField == "" {
		return core.NewConfigError(s.Name, "observable_field is required")
	}
	if s.Kind == ResolutionScale && s.TruthField == "" {
		return core.NewConfigError(s.Name, "truth_field is required for resolution_scale")
	}
	if s.Sigma < 0 {
		return core.NewConfigError(s.Name, "sigma must not be negative")
	}
	return nil
}

// Means returns the configured mean of every systematic, in order.
// This is the default parameter vector for evaluation and fake data.
func Means(systematics []Systematic) []float64 {
	out := make([]float64, len(systematics))
	for i, s := range systematics {
		out[i] = s.Mean
	}
	return out
}
