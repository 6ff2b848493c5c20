// Package merge provides the "thunderbolt merge" command (Stage 2).
package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/internal/app"
	"github.com/klytics/thunderbolt/internal/history"
	mg "github.com/klytics/thunderbolt/internal/merge"
	"github.com/klytics/thunderbolt/internal/output"
	"github.com/klytics/thunderbolt/internal/progress"
	"github.com/klytics/thunderbolt/internal/store"
	"github.com/klytics/thunderbolt/internal/timestamp"
)

// NewCommand creates the "merge" command.
func NewCommand() *cobra.Command {
	var (
		folder     string
		format     string
		duplicates string
		out        string
		upload     bool
		preview    int
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge all Steamfield tables into one master dataset",
		Long: `Reads every *_Steamfield.csv table in the destination folder, aligns their
columns, removes rows that repeat a timestamp and sorts the result by time.

Timestamp formats:
  %d-%m-%Y %H%MH   (default, e.g. 15-01-2024 0630H)
  %d-%m-%Y %H:%M
  %Y-%m-%d %H:%M

Duplicate policies:
  keep-last   the table processed last wins (tables are processed by name)
  keep-first  the first row seen wins
  error       fail on the first repeated timestamp

Examples:
  thunderbolt merge --preview 50
  thunderbolt merge --format "%Y-%m-%d %H:%M" -o master.csv
  thunderbolt merge --upload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.Setup(cmd)
			if err != nil {
				return err
			}

			if folder == "" {
				folder = env.Config.Folders.Dest
			}
			if format == "" {
				format = env.Config.Merge.TimestampFormat
			}
			if err := timestamp.CheckFormat(format); err != nil {
				return err
			}
			if duplicates == "" {
				duplicates = env.Config.Merge.Duplicates
			}
			policy, err := mg.ParsePolicy(duplicates)
			if err != nil {
				return err
			}

			st, closeStore, err := env.OpenStore()
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			started := time.Now().UTC()
			spin := progress.NewSpinner("Merging " + folder)
			spin.Start()
			ds, stats, err := mg.Run(ctx, st, folder, mg.Options{Duplicates: policy, Logger: env.Log})
			if err != nil {
				spin.Stop("merge failed")
				return err
			}
			spin.Stop(fmt.Sprintf("%d row(s)", ds.Len()))
			env.Record(history.FromStats(uuid.NewString(), started, stats, env.Config.Store.Backend, folder))

			if ds.Empty() {
				msg := "No valid Steamfield CSVs found. Run convert first."
				env.Log.Warn(msg)
				if env.JSON {
					return output.PrintJSON(os.Stdout, "merge", map[string]any{"empty": true, "stats": stats})
				}
				color.New(color.FgYellow).Println(msg)
				return output.MergeStats(os.Stdout, stats)
			}

			data, err := ds.Marshal(format)
			if err != nil {
				return err
			}

			result := map[string]any{"stats": stats, "format": format}

			// With -o - stdout carries only the CSV.
			piped := out == "-"
			switch out {
			case "":
			case "-":
				if _, err := os.Stdout.Write(data); err != nil {
					return err
				}
			default:
				if err := os.WriteFile(out, data, 0644); err != nil {
					return fmt.Errorf("could not write %s: %w", out, err)
				}
				result["output"] = out
			}

			if upload {
				id, err := st.Upload(ctx, folder, data, mg.MasterName, store.MimeCSV)
				if errors.Is(err, store.ErrExists) {
					return fmt.Errorf("%s already exists in %s — remove it first to store a new master dataset", mg.MasterName, folder)
				}
				if err != nil {
					return err
				}
				result["uploaded"] = id
			}
			if piped {
				return nil
			}

			if env.JSON {
				if preview > 0 {
					head, err := ds.Head(preview).Table(format)
					if err != nil {
						return err
					}
					result["preview"] = head
				}
				return output.PrintJSON(os.Stdout, "merge", result)
			}

			if err := output.MergeStats(os.Stdout, stats); err != nil {
				return err
			}
			if preview > 0 {
				head, err := ds.Head(preview).Table(format)
				if err != nil {
					return err
				}
				fmt.Println()
				if err := output.Table(os.Stdout, head); err != nil {
					return err
				}
			}
			if p, ok := result["output"]; ok {
				fmt.Printf("Wrote %s\n", p)
			}
			if upload {
				fmt.Printf("Stored %s in %s\n", mg.MasterName, folder)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Folder holding the Steamfield tables (default from config)")
	cmd.Flags().StringVar(&format, "format", "", "Timestamp display format (default from config)")
	cmd.Flags().StringVar(&duplicates, "duplicates", "", "Duplicate timestamp policy: keep-last | keep-first | error")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the master CSV to this path (- for stdout)")
	cmd.Flags().BoolVar(&upload, "upload", false, "Store the master CSV in the folder as master.csv")
	cmd.Flags().IntVar(&preview, "preview", 0, "Show the first N rows")

	return cmd
}
