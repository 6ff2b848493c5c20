// Package xlsx reads daily generation report workbooks (.xlsx) into plain
// string grids and writes such grids back out as workbooks.
package xlsx

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// Sheet holds one worksheet as its displayed cell values, row by row.
// Rows may be ragged: excelize drops trailing empty cells.
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// Workbook is a parsed workbook with its sheets in tab order.
type Workbook struct {
	Name   string  `json:"name,omitempty"`
	Sheets []Sheet `json:"sheets"`
}

// ReadFile reads an .xlsx file from disk.
func ReadFile(path string) (*Workbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s — check that the path is correct", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s — is this a valid .xlsx file? %w", path, err)
	}
	defer f.Close()

	wb, err := readWorkbook(f)
	if err != nil {
		return nil, err
	}
	wb.Name = path
	return wb, nil
}

// ReadBytes reads an .xlsx workbook held in memory.
func ReadBytes(data []byte) (*Workbook, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("could not read Excel data: input is empty")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read Excel data: %w", err)
	}
	defer f.Close()

	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (*Workbook, error) {
	wb := &Workbook{}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("could not read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: rows})
	}

	return wb, nil
}

// SheetNames returns the sheet names in tab order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		names[i] = s.Name
	}
	return names
}

// GetSheet returns a specific sheet by exact name.
func (wb *Workbook) GetSheet(name string) (*Sheet, error) {
	for i := range wb.Sheets {
		if wb.Sheets[i].Name == name {
			return &wb.Sheets[i], nil
		}
	}
	return nil, fmt.Errorf("sheet %q not found — available sheets: %v", name, wb.SheetNames())
}

// RowCount returns the number of rows holding at least one non-empty cell.
func (s *Sheet) RowCount() int {
	count := 0
	for _, row := range s.Rows {
		for _, cell := range row {
			if cell != "" {
				count++
				break
			}
		}
	}
	return count
}
