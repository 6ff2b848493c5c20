// Package merge combines materialized steamfield tables into one master
// dataset keyed and ordered by timestamp.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/klytics/thunderbolt/internal/logging"
	"github.com/klytics/thunderbolt/internal/table"
	"github.com/klytics/thunderbolt/internal/timestamp"
)

// DefaultTimestampColumn names the timestamp column of the master dataset.
const DefaultTimestampColumn = "Timestamp"

// Policy decides which row survives when two rows share a timestamp.
type Policy string

const (
	// KeepLast keeps the row from the table processed last.
	KeepLast Policy = "keep-last"
	// KeepFirst keeps the row seen first.
	KeepFirst Policy = "keep-first"
	// Reject fails the merge on the first conflicting timestamp.
	Reject Policy = "error"
)

// Policies lists the accepted duplicate policies.
var Policies = []Policy{KeepLast, KeepFirst, Reject}

// ErrDuplicateTimestamp is returned under the Reject policy.
var ErrDuplicateTimestamp = errors.New("duplicate timestamp")

// ParsePolicy converts a policy name; the empty string means KeepLast.
func ParsePolicy(s string) (Policy, error) {
	if s == "" {
		return KeepLast, nil
	}
	for _, p := range Policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown duplicate policy %q (supported: keep-last, keep-first, error)", s)
}

// Source is one materialized table as stored.
type Source struct {
	Name string
	Data []byte
}

// Options configure Merge. The zero value is usable.
type Options struct {
	TimestampColumn string
	Duplicates      Policy
	Logger          logrus.FieldLogger
}

// Skipped names an input table left out of the merge and why.
type Skipped struct {
	Table  string `json:"table"`
	Reason string `json:"reason"`
}

// Stats describes what a merge did with its inputs.
type Stats struct {
	Tables      int       `json:"tables"`
	Skipped     []Skipped `json:"skipped,omitempty"`
	RowsRead    int       `json:"rowsRead"`
	RowsDropped int       `json:"rowsDropped"`
	Duplicates  int       `json:"duplicates"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
}

// Merge parses every source, unions their columns, keys rows by canonical
// timestamp, resolves duplicate timestamps with the configured policy and
// sorts ascending. Sources are processed in name order. A source that cannot
// be parsed is recorded in Stats.Skipped and does not fail the merge. With no
// usable source the result is an empty dataset, not an error.
func Merge(sources []Source, opts Options) (*Dataset, *Stats, error) {
	if opts.TimestampColumn == "" {
		opts.TimestampColumn = DefaultTimestampColumn
	}
	if opts.Duplicates == "" {
		opts.Duplicates = KeepLast
	}
	var log logrus.FieldLogger = logging.Discard()
	if opts.Logger != nil {
		log = opts.Logger
	}

	ordered := append([]Source(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	stats := &Stats{}
	var (
		columns []string
		known   = map[string]bool{opts.TimestampColumn: true}
		records []Record
		byTime  = map[time.Time]int{}
		origin  []string
	)

	for _, src := range ordered {
		tlog := log.WithField("table", src.Name)

		t, err := table.Unmarshal(src.Data)
		if err != nil {
			stats.Skipped = append(stats.Skipped, Skipped{Table: src.Name, Reason: err.Error()})
			tlog.WithError(err).Warn("skipping unreadable table")
			continue
		}
		tsIdx := TimestampIndex(t)
		if tsIdx < 0 {
			stats.Skipped = append(stats.Skipped, Skipped{Table: src.Name, Reason: "table has no columns"})
			tlog.Warn("skipping table without columns")
			continue
		}

		parsed, dropped := parseRows(t, tsIdx)
		if t.Len() > 0 && len(parsed) == 0 {
			reason := fmt.Sprintf("no parseable timestamps in column %q", t.Columns[tsIdx])
			stats.Skipped = append(stats.Skipped, Skipped{Table: src.Name, Reason: reason})
			tlog.Warn("skipping table: " + reason)
			continue
		}

		stats.Tables++
		stats.RowsRead += t.Len()
		stats.RowsDropped += dropped

		for i, c := range t.Columns {
			if i == tsIdx || known[c] {
				continue
			}
			known[c] = true
			columns = append(columns, c)
		}

		for _, p := range parsed {
			// One location for every key, so equal instants collide.
			rec := Record{Time: p.at.UTC(), Values: make(map[string]string, len(t.Columns)-1)}
			for i, c := range t.Columns {
				if i == tsIdx || p.row[i] == "" {
					continue
				}
				rec.Values[c] = p.row[i]
			}

			idx, dup := byTime[rec.Time]
			if !dup {
				byTime[rec.Time] = len(records)
				records = append(records, rec)
				origin = append(origin, src.Name)
				continue
			}

			stats.Duplicates++
			switch opts.Duplicates {
			case KeepFirst:
			case Reject:
				return nil, stats, fmt.Errorf("%w %s in %s (already in %s)",
					ErrDuplicateTimestamp, rec.Time.Format("2006-01-02 15:04:05"), src.Name, origin[idx])
			default:
				records[idx] = rec
				origin[idx] = src.Name
			}
		}

		tlog.WithFields(logrus.Fields{"rows": t.Len(), "dropped": dropped}).Debug("merged table")
	}

	if stats.Tables == 0 {
		return &Dataset{}, stats, nil
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Time.Before(records[j].Time) })

	ds := &Dataset{
		Columns: append([]string{opts.TimestampColumn}, columns...),
		Records: records,
	}
	stats.Rows = ds.Len()
	stats.Columns = len(ds.Columns)
	return ds, stats, nil
}

type parsedRow struct {
	at  time.Time
	row []string
}

func parseRows(t *table.Table, tsIdx int) ([]parsedRow, int) {
	var out []parsedRow
	dropped := 0
	for _, row := range t.Rows {
		at, err := timestamp.Parse(row[tsIdx])
		if err != nil {
			dropped++
			continue
		}
		out = append(out, parsedRow{at: at, row: row})
	}
	return out, dropped
}

// TimestampIndex returns the position of t's timestamp column, chosen by
// its values: column 0 when most of its filled cells read as textual
// timestamps, otherwise the column with the most such cells, a time-like name
// breaking ties. When no column holds textual timestamps, the only column
// whose name reads as a date or time is used, otherwise column 0.
// It returns -1 for a table without columns.
func TimestampIndex(t *table.Table) int {
	if len(t.Columns) == 0 {
		return -1
	}

	best, bestHits := -1, 0
	for i, c := range t.Columns {
		hits, filled := 0, 0
		for _, row := range t.Rows {
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			filled++
			if timestamp.IsTimestamp(v) {
				hits++
			}
		}
		if filled == 0 || hits*2 <= filled {
			continue
		}
		if i == 0 {
			return 0
		}
		if hits > bestHits || (hits == bestHits && isTimeName(c) && !isTimeName(t.Columns[best])) {
			best, bestHits = i, hits
		}
	}
	if best >= 0 {
		return best
	}

	found := -1
	for i, c := range t.Columns {
		if !isTimeName(c) {
			continue
		}
		if found >= 0 {
			return 0
		}
		found = i
	}
	if found < 0 {
		return 0
	}
	return found
}

func isTimeName(name string) bool {
	n := strings.ToLower(name)
	for _, key := range []string{"timestamp", "date", "time"} {
		if strings.Contains(n, key) {
			return true
		}
	}
	return false
}
