// Package ingest turns a daily generation report workbook into a canonical
// flat table: it picks the steamfield sheet, works out how many header rows
// the sheet has and flattens them into one column name per column.
package ingest

import "strings"

// SheetNames are the accepted spellings of the steamfield sheet, in order of
// preference, compared against normalized sheet names.
var SheetNames = []string{"steamfield", "steam field", "steam_field"}

// SheetCandidate pairs a sheet name with its normalized form.
type SheetCandidate struct {
	Name       string
	Normalized string
}

// NormalizeSheetName trims and lower-cases a sheet name.
func NormalizeSheetName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolution is the outcome of sheet resolution. Fallback is set when no
// sheet matched SheetNames and the first sheet was taken instead.
type Resolution struct {
	Sheet    string `json:"sheet"`
	Index    int    `json:"index"`
	Fallback bool   `json:"fallback"`
}

// ResolveSheet selects the steamfield sheet among names, falling back to the
// first sheet. It fails only when names is empty.
func ResolveSheet(names []string) (Resolution, error) {
	if len(names) == 0 {
		return Resolution{}, ErrNoSheets
	}

	candidates := make([]SheetCandidate, len(names))
	for i, n := range names {
		candidates[i] = SheetCandidate{Name: n, Normalized: NormalizeSheetName(n)}
	}

	for _, want := range SheetNames {
		for i, c := range candidates {
			if c.Normalized == want {
				return Resolution{Sheet: c.Name, Index: i}, nil
			}
		}
	}

	return Resolution{Sheet: names[0], Index: 0, Fallback: true}, nil
}
