package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSheets is returned for a workbook that contains no sheets at all.
var ErrNoSheets = errors.New("workbook has no sheets")

// ErrHeaderParseExhausted is matched by every *HeaderError.
var ErrHeaderParseExhausted = errors.New("no header strategy could read the sheet")

// Attempt records why one header strategy rejected a sheet.
type Attempt struct {
	Strategy string `json:"strategy"`
	Reason   string `json:"reason"`
}

// HeaderError is returned when every header strategy failed on a sheet.
type HeaderError struct {
	Sheet    string
	Attempts []Attempt
}

func (e *HeaderError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %s", a.Strategy, a.Reason)
	}
	return fmt.Sprintf("sheet %q: %v (%s)", e.Sheet, ErrHeaderParseExhausted, strings.Join(parts, "; "))
}

func (e *HeaderError) Unwrap() error {
	return ErrHeaderParseExhausted
}
