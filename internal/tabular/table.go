// Package tabular reads uploaded delimited and spreadsheet files into a
// header-addressed table and writes tables back out for download.
package tabular

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrMissingColumn is matched by every MissingColumnError.
var ErrMissingColumn = errors.New("missing required column")

type MissingColumnError struct {
	Source string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("the uploaded file must contain a '%s' column", e.Column)
	}
	return fmt.Sprintf("%s must contain a '%s' column", e.Source, e.Column)
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// Table is a header row plus data rows. Every row has len(Columns) cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

func New(name string, columns []string, rows [][]string) *Table {
	t := &Table{Name: name, Columns: columns}
	for _, row := range rows {
		t.Rows = append(t.Rows, pad(row, len(columns)))
	}
	return t
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

func (t *Table) Has(column string) bool {
	return t.Index(column) >= 0
}

// Require fails on the first absent column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return &MissingColumnError{Source: t.Name, Column: c}
		}
	}
	return nil
}

// Column returns every cell of column in row order, or nil if absent.
func (t *Table) Column(column string) []string {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, row[idx])
	}
	return values
}

// Value returns the cell of row under column, or "" if the column is absent.
func (t *Table) Value(row []string, column string) string {
	idx := t.Index(column)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// IsMissing reports whether a cell counts as an absent value. The markers are
// the ones spreadsheet exports and pandas-style tools use for empty cells.
func IsMissing(value string) bool {
	switch strings.TrimSpace(value) {
	case "", "#N/A", "#NA", "N/A", "n/a", "NA", "<NA>", "NULL", "null", "NaN", "nan", "-NaN", "-nan", "None":
		return true
	}
	return false
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	for i := 0; i < width && i < len(row); i++ {
		out[i] = strings.TrimSpace(row[i])
	}
	return out
}
