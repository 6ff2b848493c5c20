// Package history keeps an append-only log of pipeline runs, one JSON object
// per line, so repeated convert and merge runs can be reviewed afterwards.
package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klytics/thunderbolt/internal/batch"
	"github.com/klytics/thunderbolt/internal/merge"
)

// Run is one recorded pipeline run.
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	Backend    string    `json:"backend,omitempty"`
	Folder     string    `json:"folder"`
	Created    int       `json:"created,omitempty"`
	Skipped    int       `json:"skipped,omitempty"`
	Failed     int       `json:"failed,omitempty"`
	Rows       int       `json:"rows,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// FromReport summarizes a convert run.
func FromReport(r *batch.Report, backend, folder string) Run {
	return Run{
		ID:         r.RunID,
		Command:    "convert",
		StartedAt:  r.StartedAt,
		DurationMs: r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
		Backend:    backend,
		Folder:     folder,
		Created:    r.Count(batch.StatusCreated),
		Skipped:    r.Count(batch.StatusSkipped),
		Failed:     r.Count(batch.StatusError),
	}
}

// FromStats summarizes a merge run over folder.
func FromStats(id string, started time.Time, s *merge.Stats, backend, folder string) Run {
	return Run{
		ID:         id,
		Command:    "merge",
		StartedAt:  started,
		DurationMs: time.Since(started).Milliseconds(),
		Backend:    backend,
		Folder:     folder,
		Created:    s.Tables,
		Skipped:    len(s.Skipped),
		Rows:       s.Rows,
	}
}

// Log appends runs to the file at Path. A disabled Log records nothing.
type Log struct {
	Path    string
	Enabled bool
}

// Append writes run as one line, creating the file and its directory as
// needed.
func (l *Log) Append(run Run) error {
	if !l.Enabled || l.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		return err
	}

	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read returns every run in the log, oldest first. A missing file holds no
// runs; malformed lines are skipped.
func Read(path string) ([]Run, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var runs []Run
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var r Run
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			continue
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// Filter keeps runs of command (any command when empty) started at or after
// since, then trims the result to the last n runs when n > 0.
func Filter(runs []Run, command string, since time.Time, n int) []Run {
	var out []Run
	for _, r := range runs {
		if command != "" && r.Command != command {
			continue
		}
		if !since.IsZero() && r.StartedAt.Before(since) {
			continue
		}
		out = append(out, r)
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// Size returns the log size in bytes, or 0 when it does not exist.
func Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Clear empties the log. Clearing a missing log is not an error.
func Clear(path string) error {
	err := os.Truncate(path, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
