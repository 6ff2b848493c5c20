// Package convert provides the "thunderbolt convert" command (Stage 1).
package convert

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/internal/app"
	"github.com/klytics/thunderbolt/internal/batch"
	"github.com/klytics/thunderbolt/internal/history"
	"github.com/klytics/thunderbolt/internal/output"
	"github.com/klytics/thunderbolt/internal/progress"
)

// NewCommand creates the "convert" command.
func NewCommand() *cobra.Command {
	var (
		source      string
		dest        string
		concurrency int
		format      string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert new workbooks into Steamfield tables",
		Long: `Reads every workbook in the source folder whose table does not exist yet in
the destination folder, finds its Steamfield sheet, flattens the header and
stores the result as <name>_Steamfield.csv.

Files that already have a table are skipped, so re-running is safe. A file
that fails is reported and the others are still converted.

Examples:
  thunderbolt convert
  thunderbolt convert --source excels --dest steamfield_csvs --concurrency 4
  thunderbolt convert --output yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.Setup(cmd)
			if err != nil {
				return err
			}

			outFmt, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			if env.JSON {
				outFmt = output.FormatJSON
			}

			if source == "" {
				source = env.Config.Folders.Source
			}
			if dest == "" {
				dest = env.Config.Folders.Dest
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = env.Config.Convert.Concurrency
			}

			st, closeStore, err := env.OpenStore()
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			var bar *progress.Bar
			planner := &batch.Planner{
				Store:       st,
				Source:      source,
				Dest:        dest,
				Concurrency: concurrency,
				Logger:      env.Log,
				OnEntry: func(done, total int, e batch.Entry) {
					if bar == nil {
						bar = progress.New("Converting", total)
					}
					bar.Set(done, e.File)
				},
			}

			report, err := planner.Run(ctx)
			if err != nil {
				return err
			}
			env.Record(history.FromReport(report, env.Config.Store.Backend, source))
			if bar != nil {
				bar.Finish(fmt.Sprintf("%d file(s) processed", len(report.Entries)))
			}

			w := output.NewWriter(os.Stdout, outFmt)
			if outFmt == output.FormatJSON {
				return output.PrintJSON(os.Stdout, "convert", report)
			}
			if handled, err := w.WriteStructured(report); handled {
				return err
			}
			return output.Report(os.Stdout, report)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source folder of raw workbooks (default from config)")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination folder of Steamfield tables (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of workbooks converted in parallel")
	cmd.Flags().StringVar(&format, "output", "table", "Report format: table | json | yaml")

	return cmd
}
