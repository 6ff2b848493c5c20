package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Extension is the file extension of a materialized table.
const Extension = ".csv"

// ErrEmpty is returned when decoding input that has no header line.
var ErrEmpty = errors.New("table has no header line")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encode writes t as UTF-8 CSV: one header line, then one line per row,
// LF line endings, minimal quoting. A table without columns writes nothing.
func Encode(w io.Writer, t *Table) error {
	if len(t.Columns) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("could not write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("could not write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Marshal encodes t into a byte slice. Equal tables give identical bytes.
func Marshal(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses CSV written by Encode, or by any tool producing a single
// header line. A leading byte order mark is ignored. Ragged rows and
// duplicate column names are errors.
func Decode(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read row: %w", err)
		}
		rows = append(rows, rec)
	}

	return New(header, rows)
}

// Unmarshal decodes a table from bytes.
func Unmarshal(data []byte) (*Table, error) {
	return Decode(bytes.NewReader(data))
}
