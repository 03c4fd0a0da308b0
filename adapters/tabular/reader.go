// Package tabular reads event files stored as CSV or XLSX tables: one row
// per event, with a header row naming the fields.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sxfit/domain/core"
	"sxfit/internal"
	"sxfit/ports"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is read from workbooks when no sheet matches the table name.
const DefaultSheet = "Sheet1"

// Reader implements ports.EventSource for .csv and .xlsx files.
type Reader struct {
	defaultFields []string
	logger        *internal.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithDefaultFields names the columns of files whose first row is data
// rather than a header.
func WithDefaultFields(fields []string) Option {
	return func(r *Reader) { r.defaultFields = fields }
}

// WithLogger sets the logger.
func WithLogger(l *internal.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// NewReader creates a tabular event reader
func NewReader(opts ...Option) *Reader {
	r := &Reader{logger: internal.DefaultLogger}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("tabular")
	return r
}

// Extensions implements ports.EventSource.
func (r *Reader) Extensions() []string {
	return []string{".csv", ".xlsx"}
}

// ReadDataset implements ports.EventSource. For workbooks, table selects the
// sheet when one of that name exists.
func (r *Reader) ReadDataset(ctx context.Context, filename, table string, fields []string) (*ports.RawDataset, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, core.NewIOError(filename, err)
	}

	start := time.Now()
	p := &rowProcessor{ctx: ctx, filename: filename, wanted: fields, defaultFields: r.defaultFields}

	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		err = r.readCSV(filename, p)
	case ".xlsx":
		err = r.readXLSX(filename, table, p)
	default:
		return nil, core.NewConfigError(filename, "not a tabular event file")
	}
	if err != nil {
		return nil, err
	}
	if p.ds == nil || len(p.ds.Values) == 0 {
		return nil, core.NewIOError(filename, errors.New("no event rows"))
	}

	rows, cols := p.ds.Rank()
	r.logger.Debug("read %s in %.2fms (%d rows, %d fields)", filename, float64(time.Since(start).Nanoseconds())/1e6, rows, cols)
	return p.ds, nil
}

func (r *Reader) readCSV(filename string, p *rowProcessor) error {
	file, err := os.Open(filename)
	if err != nil {
		return core.NewIOError(filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return core.NewIOError(filename, err)
		}
		if err := p.row(record); err != nil {
			return err
		}
	}
}

func (r *Reader) readXLSX(filename, table string, p *rowProcessor) error {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return core.NewIOError(filename, fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	sheet := pickSheet(f.GetSheetList(), table)
	if sheet == "" {
		return core.NewIOError(filename, errors.New("workbook has no sheets"))
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return core.NewIOError(filename, fmt.Errorf("failed to read %s: %w", sheet, err))
	}
	defer rows.Close()

	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return core.NewIOError(filename, err)
		}
		if err := p.row(cols); err != nil {
			return err
		}
	}
	if err := rows.Error(); err != nil {
		return core.NewIOError(filename, err)
	}
	return nil
}

// pickSheet prefers a sheet named table, then DefaultSheet, then the first sheet.
func pickSheet(sheets []string, table string) string {
	for _, want := range []string{table, DefaultSheet} {
		for _, s := range sheets {
			if want != "" && s == want {
				return s
			}
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

// rowProcessor turns string rows into a RawDataset projected onto the
// wanted fields. The first row is the header unless it is entirely numeric
// and default field names are configured.
type rowProcessor struct {
	ctx           context.Context
	filename      string
	wanted        []string
	defaultFields []string

	line    int
	columns []int
	ds      *ports.RawDataset
}

func (p *rowProcessor) row(cells []string) error {
	p.line++
	if p.line%4096 == 0 {
		if err := p.ctx.Err(); err != nil {
			return err
		}
	}
	if blank(cells) {
		return nil
	}

	if p.ds == nil {
		if len(p.defaultFields) > 0 && numeric(cells) {
			if err := p.header(p.defaultFields); err != nil {
				return err
			}
			return p.data(cells)
		}
		headers := make([]string, len(cells))
		for i, c := range cells {
			headers[i] = strings.TrimSpace(c)
		}
		return p.header(headers)
	}
	return p.data(cells)
}

func (p *rowProcessor) header(headers []string) error {
	fields := p.wanted
	if fields == nil {
		fields = headers
	}
	p.columns = make([]int, len(fields))
	for j, f := range fields {
		p.columns[j] = -1
		for i, h := range headers {
			if h == f {
				p.columns[j] = i
				break
			}
		}
		if p.columns[j] < 0 {
			return core.NewInvalidReferenceError(f, p.filename)
		}
	}
	p.ds = &ports.RawDataset{Fields: append([]string(nil), fields...)}
	return nil
}

func (p *rowProcessor) data(cells []string) error {
	for j, col := range p.columns {
		if col >= len(cells) {
			return core.NewIOError(p.filename, fmt.Errorf("line %d: missing value for %s", p.line, p.ds.Fields[j]))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cells[col]), 64)
		if err != nil {
			return core.NewIOError(p.filename, fmt.Errorf("line %d: field %s: %w", p.line, p.ds.Fields[j], err))
		}
		p.ds.Values = append(p.ds.Values, v)
	}
	return nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func numeric(cells []string) bool {
	for _, c := range cells {
		if _, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err != nil {
			return false
		}
	}
	return true
}
