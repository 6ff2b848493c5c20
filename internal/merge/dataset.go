package merge

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klytics/thunderbolt/internal/table"
	"github.com/klytics/thunderbolt/internal/timestamp"
)

// Record is one master row. Values holds the non-null metric cells; a column
// missing from Values is null for this row.
type Record struct {
	Time   time.Time
	Values map[string]string
}

// Value returns the cell for column and whether it is non-null.
func (r Record) Value(column string) (string, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Dataset is the merged master dataset: records sorted by Time with at most
// one record per instant. Columns[0] is the timestamp column; an empty
// dataset has no columns and no records.
type Dataset struct {
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Empty reports whether the dataset holds no records.
func (d *Dataset) Empty() bool {
	return len(d.Records) == 0
}

// Head returns a dataset sharing d's columns with at most n records.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n > len(d.Records) {
		n = len(d.Records)
	}
	return &Dataset{Columns: d.Columns, Records: d.Records[:n]}
}

// Table renders d as a flat table, formatting the timestamp column with
// format. Null cells become empty strings.
func (d *Dataset) Table(format string) (*table.Table, error) {
	if err := timestamp.CheckFormat(format); err != nil {
		return nil, err
	}
	if len(d.Columns) == 0 {
		return &table.Table{}, nil
	}

	rows := make([][]string, len(d.Records))
	for i, rec := range d.Records {
		row := make([]string, len(d.Columns))
		ts, err := timestamp.Render(format, rec.Time)
		if err != nil {
			return nil, err
		}
		row[0] = ts
		for j, col := range d.Columns[1:] {
			row[j+1] = rec.Values[col]
		}
		rows[i] = row
	}
	return table.New(d.Columns, rows)
}

// Encode writes d as canonical CSV with the timestamp column in format.
func (d *Dataset) Encode(w io.Writer, format string) error {
	t, err := d.Table(format)
	if err != nil {
		return err
	}
	if err := table.Encode(w, t); err != nil {
		return fmt.Errorf("could not encode master dataset: %w", err)
	}
	return nil
}

// Marshal returns d encoded as CSV bytes.
func (d *Dataset) Marshal(format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
