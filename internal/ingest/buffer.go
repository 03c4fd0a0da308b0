package ingest

import (
	"strconv"

	"sxfit/domain/core"
)

// Buffer is the flat, row-major sample array a density evaluator is built
// from. Columns maps each row-local column to its Field Catalog index; the
// order is fixed at construction and shared by everything that indexes rows.
type Buffer struct {
	Columns []int
	Fields  []string
	Values  []float64
	// Weights holds one weight per row; nil means every row has weight 1.
	Weights []float64

	// Total and Surviving count (weighted) events before and after cuts.
	Total     float64
	Surviving float64
}

// NewBuffer creates an empty buffer with the given column layout.
func NewBuffer(columns []int, fields []string) (*Buffer, error) {
	if len(columns) != len(fields) {
		return nil, core.NewDimensionMismatchError("buffer column names", len(columns), len(fields))
	}
	if len(columns) == 0 {
		return nil, core.NewDimensionMismatchError("buffer columns", 1, 0)
	}
	return &Buffer{
		Columns: append([]int(nil), columns...),
		Fields:  append([]string(nil), fields...),
	}, nil
}

// NFields returns the number of columns per row.
func (b *Buffer) NFields() int {
	return len(b.Columns)
}

// Rows returns the number of stored rows.
func (b *Buffer) Rows() int {
	return len(b.Values) / len(b.Columns)
}

// Row returns row i without copying.
func (b *Buffer) Row(i int) []float64 {
	n := len(b.Columns)
	return b.Values[i*n : (i+1)*n]
}

// Weight returns the weight of row i.
func (b *Buffer) Weight(i int) float64 {
	if b.Weights == nil {
		return 1
	}
	return b.Weights[i]
}

// TotalWeight returns the summed weight of the stored rows.
func (b *Buffer) TotalWeight() float64 {
	if b.Weights == nil {
		return float64(b.Rows())
	}
	sum := 0.0
	for _, w := range b.Weights {
		sum += w
	}
	return sum
}

// Column resolves a Field Catalog index to the row-local column.
func (b *Buffer) Column(catalogIndex int) (int, error) {
	for col, idx := range b.Columns {
		if idx == catalogIndex {
			return col, nil
		}
	}
	return -1, core.NewInvalidReferenceError("#"+strconv.Itoa(catalogIndex), "sample buffer")
}

// ColumnByName resolves a field name to the row-local column.
func (b *Buffer) ColumnByName(field string) (int, error) {
	for col, name := range b.Fields {
		if name == field {
			return col, nil
		}
	}
	return -1, core.NewInvalidReferenceError(field, "sample buffer")
}

// Efficiency is the surviving fraction of ingested events.
func (b *Buffer) Efficiency() float64 {
	if b.Total == 0 {
		return 0
	}
	return b.Surviving / b.Total
}
