// Package files provides the "ls" and "put" commands over the configured
// blob store.
package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/internal/app"
	"github.com/klytics/thunderbolt/internal/output"
	"github.com/klytics/thunderbolt/internal/store"
)

// NewListCommand returns the "ls" command.
func NewListCommand() *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "ls [folder]",
		Short: "List the objects in a store folder",
		Long:  "Lists a folder of the configured store. Without an argument the source folder is listed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.Setup(cmd)
			if err != nil {
				return err
			}
			folder := env.Config.Folders.Source
			if len(args) == 1 {
				folder = args[0]
			}

			st, closeStore, err := env.OpenStore()
			if err != nil {
				return err
			}
			defer closeStore()

			objs, err := st.List(context.Background(), folder, mimeType)
			if err != nil {
				return err
			}

			if env.JSON {
				return output.PrintJSON(os.Stdout, "ls", objs)
			}
			color.New(color.Bold).Printf("%s/\n", folder)
			return output.Objects(os.Stdout, objs, time.Now())
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime", "", "Only list objects of this MIME type")
	return cmd
}

// PutResult is the outcome of uploading one file.
type PutResult struct {
	File   string `json:"file"`
	Name   string `json:"name"`
	ID     string `json:"id,omitempty"`
	Size   int64  `json:"size"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewPutCommand returns the "put" command.
func NewPutCommand() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "put <file.xlsx> [file.xlsx...]",
		Short: "Upload workbooks into the source folder",
		Long: `Uploads local workbooks into the source folder of the configured store.
A name that already exists in the folder is left untouched and reported as
skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.Setup(cmd)
			if err != nil {
				return err
			}
			if folder == "" {
				folder = env.Config.Folders.Source
			}

			st, closeStore, err := env.OpenStore()
			if err != nil {
				return err
			}
			defer closeStore()

			ctx := context.Background()
			results := make([]PutResult, 0, len(args))
			failed := 0
			for _, path := range args {
				r := Put(ctx, st, folder, path)
				if r.Status == "error" {
					failed++
				}
				results = append(results, r)
			}

			if env.JSON {
				if err := output.PrintJSON(os.Stdout, "put", results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					switch r.Status {
					case "uploaded":
						fmt.Printf("Uploaded %s → %s/%s (%s)\n", r.File, folder, r.Name, humanize.Bytes(uint64(r.Size)))
					case "skipped":
						color.New(color.FgYellow).Printf("Skipped %s: %s already exists in %s\n", r.File, r.Name, folder)
					default:
						color.New(color.FgRed).Printf("Failed %s: %s\n", r.File, r.Error)
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d upload(s) failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Destination folder (default: the source folder)")
	return cmd
}

// Put uploads one local file into folder under its base name.
func Put(ctx context.Context, st store.Store, folder, path string) PutResult {
	r := PutResult{File: path, Name: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		r.Status = "error"
		r.Error = err.Error()
		return r
	}
	r.Size = int64(len(data))

	id, err := st.Upload(ctx, folder, data, r.Name, store.MimeTypeOf(r.Name))
	switch {
	case errors.Is(err, store.ErrExists):
		r.Status = "skipped"
	case err != nil:
		r.Status = "error"
		r.Error = err.Error()
	default:
		r.Status = "uploaded"
		r.ID = id
	}
	return r
}
