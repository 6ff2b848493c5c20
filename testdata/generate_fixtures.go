//go:build ignore

// This program generates the sample workbooks used by the benchmarks and for
// trying out thunderbolt by hand:
//
//	go run testdata/generate_fixtures.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klytics/thunderbolt/internal/formats/xlsx"
)

func main() {
	fixtures := map[string]*xlsx.Workbook{
		"testdata/sample.xlsx": titledReport(),
		// Same readings in the three header layouts convert understands.
		"testdata/excels/2024-01-01.xlsx": titledReport(),
		"testdata/excels/2024-01-02.xlsx": twoRowReport(),
		"testdata/excels/2024-01-03.xlsx": singleRowReport(),
		// No sheet matches and the first sheet has no usable header.
		"testdata/excels/broken.xlsx": {Sheets: []xlsx.Sheet{
			{Name: "Notes", Rows: [][]string{{"1", "2"}, {"3", "4"}}},
		}},
	}

	for path, wb := range fixtures {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", filepath.Dir(path), err)
			os.Exit(1)
		}
		if err := xlsx.WriteFile(wb, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Println("Test fixtures generated successfully.")
}

func cover() xlsx.Sheet {
	return xlsx.Sheet{Name: "Cover", Rows: [][]string{
		{"Daily Generation Report"},
		{"Plant", "Unit 1"},
	}}
}

func titledReport() *xlsx.Workbook {
	return &xlsx.Workbook{Sheets: []xlsx.Sheet{
		cover(),
		{Name: "Steam Field", Rows: [][]string{
			{"Steamfield readings 2024-01-01"},
			{"Timestamp", "Well A", "", "Well B", ""},
			{"", "Flow", "Pressure", "Flow", "Pressure"},
			{"2024-01-01 00:00", "120", "7.2", "98", "8.0"},
			{"2024-01-01 01:00", "121", "7.3", "", "8.1"},
			{"2024-01-01 02:00", "119", "7.1", "97", "8.0"},
		}},
	}}
}

func twoRowReport() *xlsx.Workbook {
	return &xlsx.Workbook{Sheets: []xlsx.Sheet{
		cover(),
		{Name: "SteamField", Rows: [][]string{
			{"Timestamp", "Well A", "", "Well B", ""},
			{"", "Flow", "Pressure", "Flow", "Pressure"},
			{"2024-01-02 00:00", "118", "7.0", "99", "8.2"},
			{"2024-01-02 01:00", "117", "7.0", "100", "8.3"},
		}},
	}}
}

func singleRowReport() *xlsx.Workbook {
	return &xlsx.Workbook{Sheets: []xlsx.Sheet{
		{Name: "steam_field", Rows: [][]string{
			{"Timestamp", "Well A / Flow", "Well A / Pressure", "Well C / Flow"},
			{"2024-01-02 01:00", "116", "6.9", "45"},
			{"2024-01-03 00:00", "115", "6.9", "44"},
		}},
	}}
}
