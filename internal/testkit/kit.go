// Package testkit provides in-memory event sources and synthetic event
// generators for exercising ingestion, density building and sampling
// without files on disk.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"sxfit/domain/core"
	"sxfit/ports"
)

// MemorySource implements ports.EventSource over datasets held in memory.
// Datasets are keyed by filename, and optionally by table within a file.
type MemorySource struct {
	mu    sync.Mutex
	files map[string]*ports.RawDataset
	exts  []string
	reads []string
}

// NewMemorySource creates a source answering for the given extensions (".mem" by default).
func NewMemorySource(exts ...string) *MemorySource {
	if len(exts) == 0 {
		exts = []string{".mem"}
	}
	return &MemorySource{files: make(map[string]*ports.RawDataset), exts: exts}
}

// Put registers a dataset under filename for every table.
func (m *MemorySource) Put(filename string, ds *ports.RawDataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filename] = ds
}

// PutTable registers a dataset under filename for one table only.
func (m *MemorySource) PutTable(filename, table string, ds *ports.RawDataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filename+"#"+table] = ds
}

// Reads returns the filenames read so far, in order.
func (m *MemorySource) Reads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reads...)
}

// Extensions implements ports.EventSource.
func (m *MemorySource) Extensions() []string {
	return m.exts
}

// ReadDataset implements ports.EventSource, projecting onto the requested fields.
func (m *MemorySource) ReadDataset(ctx context.Context, filename, table string, fields []string) (*ports.RawDataset, error) {
	m.mu.Lock()
	ds, ok := m.files[filename+"#"+table]
	if !ok {
		ds, ok = m.files[filename]
	}
	m.reads = append(m.reads, filename)
	m.mu.Unlock()

	if !ok {
		return nil, core.NewIOError(filename, fmt.Errorf("no such dataset"))
	}
	if fields == nil {
		return ds, nil
	}
	return Project(ds, fields)
}

// Project extracts fields from ds, in the requested order.
func Project(ds *ports.RawDataset, fields []string) (*ports.RawDataset, error) {
	rows, cols := ds.Rank()
	index := make([]int, len(fields))
	for j, f := range fields {
		index[j] = -1
		for i, name := range ds.Fields {
			if name == f {
				index[j] = i
				break
			}
		}
		if index[j] < 0 {
			return nil, core.NewInvalidReferenceError(f, "memory dataset")
		}
	}

	out := &ports.RawDataset{Fields: append([]string(nil), fields...), Values: make([]float64, 0, rows*len(fields))}
	for r := 0; r < rows; r++ {
		row := ds.Values[r*cols : (r+1)*cols]
		for _, i := range index {
			out.Values = append(out.Values, row[i])
		}
	}
	return out, nil
}

// Rows builds a RawDataset from literal rows.
func Rows(fields []string, rows ...[]float64) *ports.RawDataset {
	ds := &ports.RawDataset{Fields: fields}
	for _, r := range rows {
		ds.Values = append(ds.Values, r...)
	}
	return ds
}
