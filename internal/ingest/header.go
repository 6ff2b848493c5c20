package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/klytics/thunderbolt/internal/table"
	"github.com/klytics/thunderbolt/internal/timestamp"
)

// Separator joins header fragments of a multi-row header.
const Separator = " / "

// Strategy is one way of reading a sheet's header: discard Skip leading rows,
// then take HeaderRows rows as the header.
type Strategy struct {
	Name       string `json:"name"`
	Skip       int    `json:"skip"`
	HeaderRows int    `json:"headerRows"`
}

// Strategies are tried in order; the first that reads the sheet wins.
var Strategies = []Strategy{
	{Name: "titled-two-row", Skip: 1, HeaderRows: 2},
	{Name: "two-row", Skip: 0, HeaderRows: 2},
	{Name: "single-row", Skip: 0, HeaderRows: 1},
}

// Normalized is a sheet read by one of the Strategies. Level is the 1-based
// position of that strategy.
type Normalized struct {
	Table    *table.Table
	Strategy Strategy
	Level    int
}

// Normalize reads rows with each strategy in turn. When all fail it returns
// a *HeaderError listing every rejection.
func Normalize(sheet string, rows [][]string) (*Normalized, error) {
	var attempts []Attempt
	for i, s := range Strategies {
		t, err := s.Apply(rows)
		if err != nil {
			attempts = append(attempts, Attempt{Strategy: s.Name, Reason: err.Error()})
			continue
		}
		return &Normalized{Table: t, Strategy: s, Level: i + 1}, nil
	}
	return nil, &HeaderError{Sheet: sheet, Attempts: attempts}
}

// Apply reads rows with this strategy. It fails when the rows it expects to
// be a title or header do not look like one, or when the first row after the
// header is label-only, which means the header is taller than this strategy
// assumes.
func (s Strategy) Apply(rows [][]string) (*table.Table, error) {
	need := s.Skip + s.HeaderRows
	if len(rows) < need {
		return nil, fmt.Errorf("needs at least %d rows, sheet has %d", need, len(rows))
	}
	for i := 0; i < s.Skip; i++ {
		if !isHeaderRow(rows[i]) {
			return nil, fmt.Errorf("row %d is not a title row", i+1)
		}
	}

	body := rows[s.Skip:]
	header := body[:s.HeaderRows]
	for i, row := range header {
		if !isHeaderRow(row) {
			return nil, fmt.Errorf("row %d is not a header row", s.Skip+i+1)
		}
	}

	for i, row := range body[s.HeaderRows:] {
		if isBlank(row) {
			continue
		}
		if isHeaderRow(row) {
			return nil, fmt.Errorf("row %d after the header is not a data row", s.Skip+s.HeaderRows+i+1)
		}
		break
	}

	width := usedWidth(body)
	names := uniqueNames(flatten(header, width))

	var data [][]string
	for _, row := range body[s.HeaderRows:] {
		if isBlank(row) {
			continue
		}
		data = append(data, pad(row, width))
	}

	return table.New(names, data)
}

// flatten produces one name per column. Upper header rows are carried
// rightwards across empty cells that sit above a non-empty lower cell, which
// is how merged group headings come out of a workbook.
func flatten(header [][]string, width int) []string {
	lowest := header[len(header)-1]
	names := make([]string, width)

	for col := 0; col < width; col++ {
		var parts []string
		for level, row := range header {
			v := cell(row, col)
			if v == "" && level < len(header)-1 && cell(lowest, col) != "" {
				v = carried(row, col)
			}
			if v == "" || (len(parts) > 0 && parts[len(parts)-1] == v) {
				continue
			}
			parts = append(parts, v)
		}
		names[col] = strings.Join(parts, Separator)
	}
	return names
}

func carried(row []string, col int) string {
	for c := col - 1; c >= 0; c-- {
		if v := cell(row, c); v != "" {
			return v
		}
	}
	return ""
}

// uniqueNames fills empty names and suffixes repeated ones with their
// 0-based column position.
func uniqueNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if n == "" {
			n = fmt.Sprintf("Unnamed_%d", i)
		}
		for seen[n] {
			n = fmt.Sprintf("%s_%d", n, i)
		}
		seen[n] = true
		out[i] = n
	}
	return out
}

// isHeaderRow reports whether row has at least one filled cell and every
// filled cell is a label. Title rows pass the same test.
func isHeaderRow(row []string) bool {
	filled := 0
	for _, c := range row {
		v := strings.TrimSpace(c)
		if v == "" {
			continue
		}
		if !isLabel(v) {
			return false
		}
		filled++
	}
	return filled > 0
}

// isLabel reports whether a non-empty cell reads as text rather than as a
// measurement or a timestamp.
func isLabel(v string) bool {
	num := strings.TrimSuffix(strings.ReplaceAll(v, ",", ""), "%")
	if _, err := strconv.ParseFloat(num, 64); err == nil {
		return false
	}
	return !timestamp.IsTimestamp(v)
}

func usedWidth(rows [][]string) int {
	width := 0
	for _, row := range rows {
		for i := len(row) - 1; i >= width; i-- {
			if strings.TrimSpace(row[i]) != "" {
				width = i + 1
				break
			}
		}
	}
	return width
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func cell(row []string, col int) string {
	if col < len(row) {
		return strings.TrimSpace(row[col])
	}
	return ""
}
