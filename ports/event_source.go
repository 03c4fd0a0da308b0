package ports

import (
	"context"

	"sxfit/domain/core"
)

// RawDataset is a row-major block of event values read from one file.
// Fields names the columns in storage order.
type RawDataset struct {
	Fields []string
	Values []float64
}

// Rank returns the shape descriptor (rows, columns).
func (d *RawDataset) Rank() (rows, cols int) {
	cols = len(d.Fields)
	if cols == 0 {
		return 0, 0
	}
	return len(d.Values) / cols, cols
}

// Validate checks that the value count is a whole number of rows.
func (d *RawDataset) Validate() error {
	cols := len(d.Fields)
	if cols == 0 {
		return core.NewDimensionMismatchError("dataset columns", 1, 0)
	}
	if len(d.Values)%cols != 0 {
		return core.NewDimensionMismatchError("dataset values per row", cols, len(d.Values)%cols)
	}
	return nil
}

// EventSource reads raw event records from one storage format.
type EventSource interface {
	// ReadDataset returns the requested fields of every event in filename.
	// table selects the record set inside the file for formats that hold
	// several (tree name = signal name); tabular formats ignore it.
	// A nil fields slice requests every field in storage order.
	// Missing fields yield core.ErrInvalidReference; any read failure or an
	// empty result yields core.ErrIO.
	ReadDataset(ctx context.Context, filename, table string, fields []string) (*RawDataset, error)

	// Extensions lists the lower-case file extensions this source handles.
	Extensions() []string
}
