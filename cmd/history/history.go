// Package history provides the "thunderbolt history" commands for reviewing
// past convert and merge runs.
package history

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/internal/config"
	hist "github.com/klytics/thunderbolt/internal/history"
	"github.com/klytics/thunderbolt/internal/output"
)

// NewCommand creates the "history" command with its subcommands.
func NewCommand() *cobra.Command {
	var (
		last    int
		command string
		since   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		Long: `Lists the convert and merge runs recorded in the run log
(~/.thunderbolt/runs.log unless history.path is set).`,
		Example: `  thunderbolt history
  thunderbolt history --command convert --last 5
  thunderbolt history --since 2024-01-01 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var sinceTime time.Time
			if since != "" {
				sinceTime, err = time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date: %w (use YYYY-MM-DD)", err)
				}
			}

			path := cfg.HistoryPath()
			runs, err := hist.Read(path)
			if err != nil {
				return err
			}
			runs = hist.Filter(runs, command, sinceTime, last)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				if runs == nil {
					runs = []hist.Run{}
				}
				return output.PrintJSON(os.Stdout, "history", runs)
			}

			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}
			fmt.Printf("Run History — %d runs\n", len(runs))
			fmt.Printf("File: %s\n\n", path)
			return render(os.Stdout, runs, time.Now())
		},
	}

	cmd.Flags().IntVar(&last, "last", 20, "Show the last N runs (0 for all)")
	cmd.Flags().StringVar(&command, "command", "", "Only show runs of this command (convert or merge)")
	cmd.Flags().StringVar(&since, "since", "", "Only show runs since date (YYYY-MM-DD)")

	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

func render(w io.Writer, runs []hist.Run, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tCOMMAND\tFOLDER\tRESULT\tDURATION")
	for _, r := range runs {
		var result string
		switch r.Command {
		case "merge":
			result = fmt.Sprintf("%d tables, %d rows", r.Created, r.Rows)
		default:
			result = fmt.Sprintf("%d created, %d skipped, %d failed", r.Created, r.Skipped, r.Failed)
		}
		if r.Error != "" {
			result = "error: " + r.Error
		}
		dur := fmt.Sprintf("%dms", r.DurationMs)
		if r.DurationMs >= 1000 {
			dur = fmt.Sprintf("%.1fs", float64(r.DurationMs)/1000)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", humanize.RelTime(r.StartedAt, now, "ago", "from now"), r.Command, r.Folder, result, dur)
	}
	return tw.Flush()
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path := cfg.HistoryPath()
			if err := hist.Clear(path); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return output.PrintJSON(os.Stdout, "history clear", map[string]string{"cleared": path})
			}
			fmt.Printf("Run history cleared: %s\n", path)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the run log path and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path := cfg.HistoryPath()
			size := hist.Size(path)
			runs, _ := hist.Read(path)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return output.PrintJSON(os.Stdout, "history status", map[string]any{
					"path":    path,
					"enabled": cfg.History.Enabled,
					"size":    size,
					"runs":    len(runs),
				})
			}

			fmt.Printf("Run log: %s\n", path)
			if !cfg.History.Enabled {
				fmt.Println("Status:  disabled (history.enabled=false)")
			}
			if size == 0 {
				fmt.Println("Size:    empty (no runs)")
			} else {
				fmt.Printf("Size:    %s\n", humanize.Bytes(uint64(size)))
			}
			fmt.Printf("Runs:    %d\n", len(runs))
			return nil
		},
	}
}
