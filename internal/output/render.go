package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/klytics/thunderbolt/internal/batch"
	"github.com/klytics/thunderbolt/internal/merge"
	"github.com/klytics/thunderbolt/internal/store"
	"github.com/klytics/thunderbolt/internal/table"
)

var statusColor = map[batch.Status]*color.Color{
	batch.StatusCreated: color.New(color.FgGreen),
	batch.StatusSkipped: color.New(color.FgYellow),
	batch.StatusError:   color.New(color.FgRed),
}

// Report renders a conversion report as a table followed by a summary line.
func Report(w io.Writer, r *batch.Report) error {
	if len(r.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No workbooks found in the source folder.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "FILE\tSTATUS\tOUTPUT\tDETAIL\n")
	for _, e := range r.Entries {
		detail := e.Detail
		if e.Status == batch.StatusCreated {
			detail = fmt.Sprintf("sheet %q, %s header", e.Sheet, e.Strategy)
		}
		status := string(e.Status)
		if c, ok := statusColor[e.Status]; ok {
			status = c.Sprint(status)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.File, status, e.Output, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sum := r.Summary()
	_, err := fmt.Fprintf(w, "\n%d created, %d skipped, %d failed in %s\n",
		sum[batch.StatusCreated], sum[batch.StatusSkipped], sum[batch.StatusError],
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	return err
}

// Table renders t as aligned columns. Empty cells show as a dim dash.
func Table(w io.Writer, t *table.Table) error {
	dim := color.New(color.FgHiBlack)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			if c == "" {
				c = dim.Sprint("-")
			}
			cells[i] = c
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// Objects renders a store listing with human-readable sizes and ages.
func Objects(w io.Writer, objs []store.Object, now time.Time) error {
	if len(objs) == 0 {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tSIZE\tMODIFIED\n")
	var total int64
	for _, o := range objs {
		total += o.Size
		modified := "-"
		if !o.ModifiedAt.IsZero() {
			modified = humanize.RelTime(o.ModifiedAt, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Name, humanize.Bytes(uint64(o.Size)), modified)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s in %s\n", humanize.Bytes(uint64(total)), plural(len(objs), "object"))
	return err
}

// MergeStats renders what a merge consumed and produced.
func MergeStats(w io.Writer, s *merge.Stats) error {
	fmt.Fprintf(w, "Merged %s: %s, %s",
		plural(s.Tables, "table"), plural(s.Rows, "row"), plural(s.Columns, "column"))
	if s.Duplicates > 0 {
		fmt.Fprintf(w, ", %s resolved", plural(s.Duplicates, "duplicate timestamp"))
	}
	if s.RowsDropped > 0 {
		fmt.Fprintf(w, ", %s without a timestamp dropped", plural(s.RowsDropped, "row"))
	}
	fmt.Fprintln(w)

	warn := color.New(color.FgYellow)
	for _, sk := range s.Skipped {
		if _, err := warn.Fprintf(w, "  skipped %s: %s\n", sk.Table, sk.Reason); err != nil {
			return err
		}
	}
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}
