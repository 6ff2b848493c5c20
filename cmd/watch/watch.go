// Package watch provides the "thunderbolt watch" command.
package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/cmd/files"
	"github.com/klytics/thunderbolt/internal/app"
	"github.com/klytics/thunderbolt/internal/batch"
	"github.com/klytics/thunderbolt/internal/history"
	w "github.com/klytics/thunderbolt/internal/watch"
)

// NewCommand creates the "watch" command.
func NewCommand() *cobra.Command {
	var debounce int

	cmd := &cobra.Command{
		Use:   "watch [directory]",
		Short: "Convert workbooks as soon as they appear in a directory",
		Long: `Watches a local directory for new or changed .xlsx files. Each settled file
is uploaded to the source folder (unless it is already there) and a convert
run follows, so only new workbooks are processed.

Without an argument the local store's source folder is watched.

Example:
  thunderbolt watch ./incoming --debounce 1000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.Setup(cmd)
			if err != nil {
				return err
			}
			cfg := env.Config

			dir := filepath.Join(cfg.Store.Root, filepath.FromSlash(cfg.Folders.Source))
			if len(args) == 1 {
				dir = args[0]
			} else if cfg.Store.Backend != "local" {
				return fmt.Errorf("the %s store has no local folder to watch — pass a directory", cfg.Store.Backend)
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = cfg.Watch.DebounceMS
			}

			st, closeStore, err := env.OpenStore()
			if err != nil {
				return err
			}
			defer closeStore()

			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("could not create %s: %w", dir, err)
			}

			watcher, err := w.New(w.Config{Dir: dir, Debounce: time.Duration(debounce) * time.Millisecond})
			if err != nil {
				return err
			}
			watcher.Logger = env.Log

			planner := &batch.Planner{
				Store:       st,
				Source:      cfg.Folders.Source,
				Dest:        cfg.Folders.Dest,
				Concurrency: cfg.Convert.Concurrency,
				Logger:      env.Log,
			}

			watcher.Handler = func(ctx context.Context, path string) error {
				if r := files.Put(ctx, st, cfg.Folders.Source, path); r.Status == "error" {
					return fmt.Errorf("upload failed: %s", r.Error)
				}
				report, err := planner.Run(ctx)
				if err != nil {
					return err
				}
				env.Record(history.FromReport(report, cfg.Store.Backend, cfg.Folders.Source))
				sum := report.Summary()
				env.Log.WithField("run", report.RunID).Infof("convert: %d created, %d skipped, %d failed",
					sum[batch.StatusCreated], sum[batch.StatusSkipped], sum[batch.StatusError])
				return nil
			}

			fmt.Printf("Watching %s for workbooks (Ctrl+C to stop)\n", dir)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watcher.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&debounce, "debounce", 500, "Quiet period in milliseconds before a file is processed")

	return cmd
}
