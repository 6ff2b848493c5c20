package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteFile saves the workbook as an .xlsx file.
func WriteFile(wb *Workbook, path string) error {
	f, err := build(wb)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return nil
}

// WriteBytes renders the workbook as .xlsx bytes.
func WriteBytes(wb *Workbook) ([]byte, error) {
	f, err := build(wb)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func build(wb *Workbook) (*excelize.File, error) {
	f := excelize.NewFile()

	for i, sheet := range wb.Sheets {
		sheetName := sheet.Name
		if sheetName == "" {
			sheetName = fmt.Sprintf("Sheet%d", i+1)
		}

		if i == 0 {
			// excelize always starts with one default sheet
			if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
				f.Close()
				return nil, fmt.Errorf("could not rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheetName); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not create sheet %q: %w", sheetName, err)
		}

		for rowIdx, row := range sheet.Rows {
			for colIdx, cell := range row {
				if cell == "" {
					continue
				}
				cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					f.Close()
					return nil, fmt.Errorf("invalid cell coordinates: %w", err)
				}
				if err := f.SetCellStr(sheetName, cellName, cell); err != nil {
					f.Close()
					return nil, fmt.Errorf("could not set cell %s: %w", cellName, err)
				}
			}
		}
	}

	return f, nil
}
