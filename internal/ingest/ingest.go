// Package ingest turns raw event records into a Sample Buffer: cuts and
// exclusion windows are applied, the requested sample fields are extracted
// in catalog order, and pre/post-cut event counts are recorded.
package ingest

import (
	"math"

	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/internal"
	"sxfit/ports"
)

// Spec describes what to extract from each event.
type Spec struct {
	// Fields are the sample fields, one per buffer column.
	Fields []string
	// Columns are the Field Catalog indices of Fields.
	Columns     []int
	Observables []model.Observable
	Cuts        []model.Observable
}

// Ingestor accumulates surviving events from one or more datasets.
type Ingestor struct {
	spec     Spec
	buf      *Buffer
	rcubed   []bool // per buffer column
	excludes []model.Observable
	logger   *internal.Logger
}

// New validates spec and prepares an empty buffer.
func New(spec Spec, logger *internal.Logger) (*Ingestor, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	buf, err := NewBuffer(spec.Columns, spec.Fields)
	if err != nil {
		return nil, err
	}

	in := &Ingestor{
		spec:   spec,
		buf:    buf,
		rcubed: make([]bool, len(spec.Fields)),
		logger: logger.WithComponent("ingest"),
	}

	for _, o := range spec.Observables {
		if !o.IsRCubed() {
			continue
		}
		col, err := buf.ColumnByName(o.Field)
		if err != nil {
			return nil, err
		}
		in.rcubed[col] = true
		in.logger.Info("doing R^3 transformation on %s", o.Field)
	}

	// One window per field; a later observable on the same field replaces an earlier one.
	byField := make(map[string]int)
	for _, o := range spec.Observables {
		if !o.Exclude {
			continue
		}
		if i, ok := byField[o.Field]; ok {
			in.excludes[i] = o
			continue
		}
		byField[o.Field] = len(in.excludes)
		in.excludes = append(in.excludes, o)
	}

	return in, nil
}

// RequiredFields lists every source field the ingestor reads: sample fields,
// then cut fields, then exclusion fields, without duplicates.
func (in *Ingestor) RequiredFields() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range in.spec.Fields {
		add(f)
	}
	for _, c := range in.spec.Cuts {
		add(c.Field)
	}
	for _, o := range in.excludes {
		add(o.Field)
	}
	return out
}

// Add consumes one raw dataset, appending every event that passes the cuts
// and is not inside all exclusion windows at once.
func (in *Ingestor) Add(ds *ports.RawDataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	rows, cols := ds.Rank()

	position := make(map[string]int, cols)
	for i, f := range ds.Fields {
		position[f] = i
	}
	resolve := func(field string) (int, error) {
		if i, ok := position[field]; ok {
			return i, nil
		}
		return -1, core.NewInvalidReferenceError(field, "event source")
	}

	sampleCols := make([]int, len(in.spec.Fields))
	for j, f := range in.spec.Fields {
		c, err := resolve(f)
		if err != nil {
			return err
		}
		sampleCols[j] = c
	}
	cutCols := make([]int, len(in.spec.Cuts))
	for j, c := range in.spec.Cuts {
		col, err := resolve(c.Field)
		if err != nil {
			return err
		}
		cutCols[j] = col
	}
	excludeCols := make([]int, len(in.excludes))
	for j, o := range in.excludes {
		col, err := resolve(o.Field)
		if err != nil {
			return err
		}
		excludeCols[j] = col
	}

	nfields := len(in.spec.Fields)
	kept := 0
	for i := 0; i < rows; i++ {
		event := ds.Values[i*cols : (i+1)*cols]
		if !in.passesCuts(event, cutCols) || in.excluded(event, excludeCols) {
			continue
		}
		for j := 0; j < nfields; j++ {
			v := event[sampleCols[j]]
			if in.rcubed[j] {
				v = math.Pow(v/model.RCubedRadius, 3)
			}
			in.buf.Values = append(in.buf.Values, v)
		}
		if in.buf.Weights != nil {
			in.buf.Weights = append(in.buf.Weights, 1)
		}
		kept++
	}

	in.buf.Total += float64(rows)
	in.buf.Surviving += float64(kept)
	if kept != rows {
		in.logger.Info("%d events cut", rows-kept)
	}
	return nil
}

// AddWeighted consumes rows that are already laid out in buffer column
// order, with one weight per row. Only exclusion windows are applied; cuts
// were applied when the rows were first produced.
func (in *Ingestor) AddWeighted(values []float64, weights []float64) error {
	nfields := len(in.spec.Fields)
	if len(values) != len(weights)*nfields {
		return core.NewDimensionMismatchError("weighted sample values", len(weights)*nfields, len(values))
	}
	if in.buf.Weights == nil && in.buf.Rows() > 0 {
		in.buf.Weights = make([]float64, in.buf.Rows())
		for i := range in.buf.Weights {
			in.buf.Weights[i] = 1
		}
	}

	excludeCols := make([]int, len(in.excludes))
	for j, o := range in.excludes {
		col, err := in.buf.ColumnByName(o.Field)
		if err != nil {
			return err
		}
		excludeCols[j] = col
	}

	total, kept := 0.0, 0.0
	for i, w := range weights {
		row := values[i*nfields : (i+1)*nfields]
		total += w
		if in.excluded(row, excludeCols) {
			continue
		}
		in.buf.Values = append(in.buf.Values, row...)
		in.buf.Weights = append(in.buf.Weights, w)
		kept += w
	}

	in.buf.Total += total
	in.buf.Surviving += kept
	if kept != total {
		in.logger.Info("%g weighted events excluded", total-kept)
	}
	return nil
}

// Buffer returns the accumulated sample buffer.
func (in *Ingestor) Buffer() *Buffer {
	return in.buf
}

func (in *Ingestor) passesCuts(event []float64, cutCols []int) bool {
	for j, c := range in.spec.Cuts {
		v := event[cutCols[j]]
		if v < c.Lower || v > c.Upper {
			return false
		}
	}
	return true
}

// excluded reports whether the event lies inside every exclusion window.
// An event outside the window in any excluded dimension is kept.
func (in *Ingestor) excluded(event []float64, excludeCols []int) bool {
	if len(in.excludes) == 0 {
		return false
	}
	for j, o := range in.excludes {
		if !o.InExcluded(event[excludeCols[j]]) {
			return false
		}
	}
	return true
}
