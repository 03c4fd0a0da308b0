// Package rootio reads event files stored as ROOT trees. Each signal's
// events live in a tree named after the signal; files holding a single
// tree may use any name.
package rootio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"sxfit/domain/core"
	"sxfit/internal"
	"sxfit/ports"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

// Reader implements ports.EventSource for .root files.
type Reader struct {
	logger *internal.Logger
}

// NewReader creates a ROOT event reader
func NewReader(logger *internal.Logger) *Reader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{logger: logger.WithComponent("rootio")}
}

// Extensions implements ports.EventSource.
func (r *Reader) Extensions() []string {
	return []string{".root"}
}

// ReadDataset implements ports.EventSource. Leaves of any scalar numeric
// type are widened to float64.
func (r *Reader) ReadDataset(ctx context.Context, filename, table string, fields []string) (*ports.RawDataset, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, core.NewIOError(filename, err)
	}
	start := time.Now()

	f, err := groot.Open(filename)
	if err != nil {
		return nil, core.NewIOError(filename, fmt.Errorf("failed to open: %w", err))
	}
	defer f.Close()

	tree, err := findTree(f, table)
	if err != nil {
		return nil, core.NewIOError(filename, err)
	}

	all := rtree.NewReadVars(tree)
	if fields == nil {
		for _, rv := range all {
			fields = append(fields, rv.Name)
		}
	}
	rvars := make([]rtree.ReadVar, len(fields))
	for j, name := range fields {
		found := false
		for _, rv := range all {
			if rv.Name == name {
				rvars[j] = rv
				found = true
				break
			}
		}
		if !found {
			return nil, core.NewInvalidReferenceError(name, filename)
		}
	}

	reader, err := rtree.NewReader(tree, rvars)
	if err != nil {
		return nil, core.NewIOError(filename, fmt.Errorf("failed to create tree reader: %w", err))
	}
	defer reader.Close()

	ds := &ports.RawDataset{
		Fields: append([]string(nil), fields...),
		Values: make([]float64, 0, int(tree.Entries())*len(fields)),
	}
	err = reader.Read(func(rctx rtree.RCtx) error {
		if rctx.Entry%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, rv := range rvars {
			v, err := toFloat(rv.Value)
			if err != nil {
				return fmt.Errorf("entry %d: leaf %s: %w", rctx.Entry, fields[j], err)
			}
			ds.Values = append(ds.Values, v)
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, core.NewIOError(filename, err)
	}
	if len(ds.Values) == 0 {
		return nil, core.NewIOError(filename, errors.New("tree has no entries"))
	}

	r.logger.Debug("read %s:%s in %.2fms (%d entries)", filename, tree.Name(), float64(time.Since(start).Nanoseconds())/1e6, tree.Entries())
	return ds, nil
}

// findTree returns the tree named table, or the file's only tree.
func findTree(f *groot.File, table string) (rtree.Tree, error) {
	if table != "" {
		if obj, err := f.Get(table); err == nil {
			if tree, ok := obj.(rtree.Tree); ok {
				return tree, nil
			}
		}
	}

	var trees []rtree.Tree
	for _, key := range f.Keys() {
		obj, err := key.Object()
		if err != nil {
			continue
		}
		if tree, ok := obj.(rtree.Tree); ok {
			trees = append(trees, tree)
		}
	}
	switch len(trees) {
	case 0:
		return nil, errors.New("no tree in file")
	case 1:
		return trees[0], nil
	default:
		return nil, fmt.Errorf("no tree named %q among %d trees", table, len(trees))
	}
}

func toFloat(v any) (float64, error) {
	switch p := v.(type) {
	case *float64:
		return *p, nil
	case *float32:
		return float64(*p), nil
	case *int64:
		return float64(*p), nil
	case *int32:
		return float64(*p), nil
	case *int16:
		return float64(*p), nil
	case *int8:
		return float64(*p), nil
	case *uint64:
		return float64(*p), nil
	case *uint32:
		return float64(*p), nil
	case *uint16:
		return float64(*p), nil
	case *uint8:
		return float64(*p), nil
	case *bool:
		if *p {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported leaf type %T", v)
	}
}
