// Package tabular parses header-driven delimited text into typed rows.
//
// Parsing is tolerant: blank lines and blank rows are skipped, rows with the
// wrong number of fields are kept with missing fields left nil, and lines the
// CSV reader rejects are counted and skipped. Only a failure of the
// underlying reader is returned as an error.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Table is the parsed form of a delimited document.
type Table struct {
	Header    []string
	Rows      []Row
	Malformed int // rows with the wrong field count or rejected lines
}

// Row is one record keyed by header name. A missing or blank field is nil.
type Row struct {
	Line   int
	fields map[string]any
}

// Options controls parsing.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// Parse reads delimited text with a header row.
func Parse(r io.Reader, opts Options) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	t := &Table{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				t.Malformed++
				continue
			}
			return nil, fmt.Errorf("failed to read delimited text: %w", err)
		}
		if isBlank(record) {
			continue
		}

		if t.Header == nil {
			t.Header = normalizeHeader(record)
			continue
		}

		line, _ := cr.FieldPos(0)
		if len(record) != len(t.Header) {
			t.Malformed++
		}
		t.Rows = append(t.Rows, newRow(line, t.Header, record))
	}

	return t, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(s string, opts Options) (*Table, error) {
	return Parse(strings.NewReader(s), opts)
}

func newRow(line int, header, record []string) Row {
	fields := make(map[string]any, len(header))
	for i, name := range header {
		if i < len(record) {
			fields[name] = TypeField(record[i])
		} else {
			fields[name] = nil
		}
	}
	return Row{Line: line, fields: fields}
}

func normalizeHeader(record []string) []string {
	header := make([]string, len(record))
	for i, name := range record {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		header[i] = strings.TrimSpace(name)
	}
	return header
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// TypeField converts a raw field to its scalar type: nil for blank, int64 or
// float64 for numbers, bool for true/false, otherwise the string unchanged.
func TypeField(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if strings.EqualFold(s, "true") {
		return true
	}
	if strings.EqualFold(s, "false") {
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return raw
}

// Get returns the typed value for column and whether the column exists.
func (r Row) Get(column string) (any, bool) {
	v, ok := r.fields[column]
	return v, ok
}

// IsNull reports whether column is missing or blank.
func (r Row) IsNull(column string) bool {
	return r.fields[column] == nil
}

// String returns column as a string; false when missing or blank.
func (r Row) String(column string) (string, bool) {
	v := r.fields[column]
	if v == nil {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}

// Int returns column as an int. A missing or blank field is 0; a value that
// cannot be coerced is an error.
func (r Row) Int(column string) (int, error) {
	v := r.fields[column]
	if s, ok := v.(string); ok {
		return 0, fmt.Errorf("column %s: %q is not numeric", column, s)
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	return n, nil
}
