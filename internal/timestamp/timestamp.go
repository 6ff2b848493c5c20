// Package timestamp canonicalizes the time column of generation reports and
// renders it in one of the supported display formats.
//
// Values without an offset are treated as wall-clock times in a single
// reference and carried as UTC values. A value with an explicit offset is
// converted to UTC, so every parsed instant shares one location.
package timestamp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/xuri/excelize/v2"
)

// DefaultFormat is the display format used when none is configured.
const DefaultFormat = "%d-%m-%Y %H%MH"

// Formats lists the accepted display formats, strftime style.
var Formats = []string{
	"%d-%m-%Y %H%MH",
	"%d-%m-%Y %H:%M",
	"%Y-%m-%d %H:%M",
}

// ErrUnsupportedFormat is returned for display formats outside Formats.
var ErrUnsupportedFormat = errors.New("unsupported timestamp format")

// layouts are tried in order. Day-first spellings win over month-first ones
// except for the two-digit-year forms excelize produces for the built-in
// date formats (m/d/yy h:mm and mm-dd-yy).
var layouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"02-01-2006 1504H",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"1/2/06 15:04:05",
	"1/2/06 15:04",
	"1/2/06",
	"01-02-06",
}

// Excel serials are only accepted between 1970-01-01 and 2100-01-01; smaller
// or larger numbers are measurements, not dates.
const (
	minSerial = 25569
	maxSerial = 73051
)

// CheckFormat reports whether format is one of Formats.
func CheckFormat(format string) error {
	for _, f := range Formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("%w %q — supported: %s", ErrUnsupportedFormat, format, strings.Join(Formats, ", "))
}

// Parse converts a cell's display value into a UTC instant. Accepted inputs
// are the layouts above and Excel date serial numbers in the accepted range,
// rounded to the second.
func Parse(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}

	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial >= minSerial && serial < maxSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.Round(time.Second).UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// IsTimestamp reports whether value parses as a textual timestamp. Bare
// numbers are not considered timestamps here even though Parse accepts them.
func IsTimestamp(value string) bool {
	v := strings.TrimSpace(value)
	for _, layout := range layouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// Render formats t with one of the supported display formats.
func Render(format string, t time.Time) (string, error) {
	if err := CheckFormat(format); err != nil {
		return "", err
	}
	return strftime.Format(format, t), nil
}

// ParseDisplay parses a value previously produced by Render with the same
// format.
func ParseDisplay(format, value string) (time.Time, error) {
	if err := CheckFormat(format); err != nil {
		return time.Time{}, err
	}
	return strftime.Parse(format, value)
}
