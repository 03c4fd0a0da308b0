package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"sxfit/domain/core"
	"sxfit/ports"
)

// Sources dispatches event files to a storage-format reader by extension.
type Sources struct {
	byExt map[string]ports.EventSource
}

// NewSources registers each source under every extension it declares.
// A later source wins when two declare the same extension.
func NewSources(sources ...ports.EventSource) *Sources {
	s := &Sources{byExt: make(map[string]ports.EventSource)}
	for _, src := range sources {
		for _, ext := range src.Extensions() {
			s.byExt[strings.ToLower(ext)] = src
		}
	}
	return s
}

// For returns the reader registered for filename's extension.
func (s *Sources) For(filename string) (ports.EventSource, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if src, ok := s.byExt[ext]; ok {
		return src, nil
	}
	return nil, core.NewConfigError(filename, "no event source handles extension "+ext)
}

// ReadInto reads every file in order and feeds it to the ingestor. table is
// the record-set name used by multi-table formats (the signal name).
// The first failing file aborts the whole read.
func (s *Sources) ReadInto(ctx context.Context, in *Ingestor, table string, files []string) error {
	if len(files) == 0 {
		return core.NewConfigError(table, "no event files configured")
	}
	fields := in.RequiredFields()
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := s.For(f)
		if err != nil {
			return err
		}
		ds, err := src.ReadDataset(ctx, f, table, fields)
		if err != nil {
			return err
		}
		if rows, _ := ds.Rank(); rows == 0 {
			return core.NewIOError(f, nil)
		}
		if err := in.Add(ds); err != nil {
			return err
		}
	}
	return nil
}
