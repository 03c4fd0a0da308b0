package pdf

import (
	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal/ingest"
)

// Transform perturbs one column of an event row given the live parameters.
// Columns are row-local buffer columns resolved at construction.
type Transform interface {
	Kind() model.SystematicKind
	// ParamIndex is the position of this transform's parameter in a parameter set.
	ParamIndex() int
	// Columns lists every row-local column the transform reads.
	Columns() []int
	Apply(row []float64, params []float64)
}

// Shift adds the parameter to the observed value.
type Shift struct {
	Column int
	Param  int
}

func (t Shift) Kind() model.SystematicKind { return model.Shift }
func (t Shift) ParamIndex() int            { return t.Param }
func (t Shift) Columns() []int             { return []int{t.Column} }

func (t Shift) Apply(row []float64, params []float64) {
	row[t.Column] += params[t.Param]
}

// Scale multiplies the observed value by the parameter.
type Scale struct {
	Column int
	Param  int
}

func (t Scale) Kind() model.SystematicKind { return model.Scale }
func (t Scale) ParamIndex() int            { return t.Param }
func (t Scale) Columns() []int             { return []int{t.Column} }

func (t Scale) Apply(row []float64, params []float64) {
	row[t.Column] *= params[t.Param]
}

// ResolutionScale widens or narrows the observed value around the truth value.
type ResolutionScale struct {
	Column      int
	TruthColumn int
	Param       int
}

func (t ResolutionScale) Kind() model.SystematicKind { return model.ResolutionScale }
func (t ResolutionScale) ParamIndex() int            { return t.Param }
func (t ResolutionScale) Columns() []int             { return []int{t.Column, t.TruthColumn} }

func (t ResolutionScale) Apply(row []float64, params []float64) {
	truth := row[t.TruthColumn]
	row[t.Column] = truth + (row[t.Column]-truth)*params[t.Param]
}

// NewTransform resolves sys against the buffer's column layout. paramIndex is
// where the systematic's value lives in each parameter set.
func NewTransform(sys model.Systematic, paramIndex int, buf *ingest.Buffer) (Transform, error) {
	col, err := buf.Column(sys.ObservableFieldIndex)
	if err != nil {
		return nil, core.NewInvalidReferenceError(sys.ObservableField, "sample fields of systematic "+sys.Name)
	}

	switch sys.Kind {
	case model.Shift:
		return Shift{Column: col, Param: paramIndex}, nil
	case model.Scale:
		return Scale{Column: col, Param: paramIndex}, nil
	case model.ResolutionScale:
		truth, err := buf.Column(sys.TruthFieldIndex)
		if err != nil {
			return nil, core.NewInvalidReferenceError(sys.TruthField, "sample fields of systematic "+sys.Name)
		}
		return ResolutionScale{Column: col, TruthColumn: truth, Param: paramIndex}, nil
	default:
		return nil, core.NewUnknownSystematicTypeError(sys.Name, sys.Kind.String())
	}
}
