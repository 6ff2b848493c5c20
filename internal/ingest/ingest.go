package ingest

import (
	"fmt"

	"github.com/klytics/thunderbolt/internal/formats/xlsx"
	"github.com/klytics/thunderbolt/internal/table"
)

// Conversion is one workbook resolved and normalized into a table.
type Conversion struct {
	Resolution
	Strategy string       `json:"strategy"`
	Level    int          `json:"level"`
	Table    *table.Table `json:"-"`
}

// Convert reads raw .xlsx bytes and normalizes the steamfield sheet.
func Convert(data []byte) (*Conversion, error) {
	wb, err := xlsx.ReadBytes(data)
	if err != nil {
		return nil, err
	}
	return ConvertWorkbook(wb)
}

// ConvertWorkbook normalizes the steamfield sheet of an already parsed workbook.
func ConvertWorkbook(wb *xlsx.Workbook) (*Conversion, error) {
	res, err := ResolveSheet(wb.SheetNames())
	if err != nil {
		return nil, err
	}

	sheet := wb.Sheets[res.Index]
	norm, err := Normalize(sheet.Name, sheet.Rows)
	if err != nil {
		return nil, err
	}

	return &Conversion{
		Resolution: res,
		Strategy:   norm.Strategy.Name,
		Level:      norm.Level,
		Table:      norm.Table,
	}, nil
}

// Materialize encodes the normalized table in the canonical CSV form.
func (c *Conversion) Materialize() ([]byte, error) {
	data, err := table.Marshal(c.Table)
	if err != nil {
		return nil, fmt.Errorf("could not materialize sheet %q: %w", c.Sheet, err)
	}
	return data, nil
}
