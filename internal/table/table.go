// Package table holds the canonical flat table exchanged between the
// conversion stage and the merge stage, and its CSV encoding.
package table

import (
	"fmt"
)

// Table is an ordered grid of string cells under uniquely named columns.
// Every row has exactly len(Columns) cells. Tables are not mutated after New.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// New validates and copies columns and rows into a Table.
func New(columns []string, rows [][]string) (*Table, error) {
	seen := make(map[string]int, len(columns))
	for i, c := range columns {
		if j, dup := seen[c]; dup {
			return nil, fmt.Errorf("duplicate column name %q at positions %d and %d", c, j, i)
		}
		seen[c] = i
	}

	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, len(rows)),
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i+1, len(row), len(columns))
		}
		t.Rows[i] = append([]string(nil), row...)
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the cell at row i under the named column. The boolean is
// false when the column does not exist.
func (t *Table) Value(i int, column string) (string, bool) {
	idx := t.Index(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	return t.Rows[i][idx], true
}

// Record returns row i as a column-name keyed map.
func (t *Table) Record(i int) map[string]string {
	rec := make(map[string]string, len(t.Columns))
	for j, c := range t.Columns {
		rec[c] = t.Rows[i][j]
	}
	return rec
}
