// Package catalog reads and writes tabular catalogs (CSV or SQLite) and converts
// between raw tables and typed working-catalog records.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Table is an ordered set of named columns with string cells.
// An empty cell is a missing (masked) value.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// NewTable creates an empty table with the given columns
func NewTable(columns ...string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column, or -1 when absent
func (t *Table) ColumnIndex(name string) int {
	if t.index == nil || len(t.index) != len(t.Columns) {
		t.reindex()
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the table has the named column
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// AddColumn appends a column filled with def; existing columns are left untouched
func (t *Table) AddColumn(name, def string) {
	if t.HasColumn(name) {
		return
	}
	t.Columns = append(t.Columns, name)
	t.index[name] = len(t.Columns) - 1
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], def)
	}
}

// AppendRow appends a row; it must have one cell per column
func (t *Table) AppendRow(row []string) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Get returns the cell of row i in the named column ("" when the column is absent)
func (t *Table) Get(i int, column string) string {
	c := t.ColumnIndex(column)
	if c < 0 {
		return ""
	}
	return t.Rows[i][c]
}

// Set writes a cell; the column must exist
func (t *Table) Set(i int, column, value string) error {
	c := t.ColumnIndex(column)
	if c < 0 {
		return fmt.Errorf("column %q not found", column)
	}
	t.Rows[i][c] = value
	return nil
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns...)
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

// RequireColumns returns an error naming every missing column
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, n := range names {
		if n != "" && !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// FormatFloat renders a float the same way for every writer
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatInt renders an integer cell
func FormatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// ParseFloat parses a numeric cell, tolerating surrounding whitespace
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// ParseInt parses an integer cell; integral floats such as "4.0" are accepted
func ParseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int64(f), nil
}

// ParseBool parses the boolean spellings found in survey catalogs
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes":
		return true
	}
	return false
}
