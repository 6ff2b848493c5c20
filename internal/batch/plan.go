// Package batch converts every new raw workbook of a source folder into a
// materialized table in a destination folder, skipping workbooks whose table
// already exists.
package batch

import (
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/klytics/thunderbolt/internal/store"
)

// Suffix is appended to the source base name to form the destination name.
const Suffix = "_Steamfield"

// Status is the outcome of one source file in a run.
type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// DestinationName returns the materialized table name for a source workbook:
// the base name without its last extension, plus "_Steamfield.csv".
func DestinationName(source string) string {
	return strings.TrimSuffix(source, path.Ext(source)) + Suffix + ".csv"
}

// Entry is the report line for one source file.
type Entry struct {
	File     string `json:"file" yaml:"file"`
	Status   Status `json:"status" yaml:"status"`
	Output   string `json:"output,omitempty" yaml:"output,omitempty"`
	Sheet    string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Level    int    `json:"level,omitempty" yaml:"level,omitempty"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Report is the ordered outcome of one conversion run. It is rebuilt on every
// run and never persisted.
type Report struct {
	RunID      string    `json:"runId" yaml:"runId"`
	StartedAt  time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time `json:"finishedAt" yaml:"finishedAt"`
	Entries    []Entry   `json:"entries" yaml:"entries"`
}

func newReport() *Report {
	return &Report{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
}

// Count returns the number of entries with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == s {
			n++
		}
	}
	return n
}

// Summary returns the entry count per status.
func (r *Report) Summary() map[Status]int {
	return map[Status]int{
		StatusCreated: r.Count(StatusCreated),
		StatusSkipped: r.Count(StatusSkipped),
		StatusError:   r.Count(StatusError),
	}
}

// Task is one planned source file. A task with a non-empty Skip needs no
// work; Skip is the detail reported for it.
type Task struct {
	Source store.Object
	Output string
	Skip   string
}

// Plan decides, for every source in name order, whether it must be
// converted. Sources whose destination name is in existing, Office lock
// files, and sources whose destination another source of the same run
// already claims are skipped.
func Plan(sources []store.Object, existing map[string]bool) []Task {
	ordered := append([]store.Object(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	claimed := make(map[string]string, len(ordered))
	tasks := make([]Task, 0, len(ordered))
	for _, src := range ordered {
		t := Task{Source: src, Output: DestinationName(src.Name)}
		switch {
		case strings.HasPrefix(src.Name, "~$"):
			t.Skip = "lock file"
		case existing[t.Output]:
			t.Skip = "exists"
		case claimed[t.Output] != "":
			t.Skip = "same output as " + claimed[t.Output]
		default:
			claimed[t.Output] = src.Name
		}
		tasks = append(tasks, t)
	}
	return tasks
}
