// Package doctor provides the "thunderbolt doctor" command.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/internal/config"
	"github.com/klytics/thunderbolt/internal/store"
)

// Check represents a single health check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message"`
}

// NewCommand creates the "doctor" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and store access",
		Long:  "Validates the configuration and lists both pipeline folders of the configured store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			checks := RunChecks(ctx, cfg)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(checks)
			}

			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()

			fmt.Println("Thunderbolt Doctor")
			fmt.Println("==================")
			fmt.Println()

			okCount, warnCount, errCount := 0, 0, 0
			for _, c := range checks {
				var icon string
				switch c.Status {
				case "ok":
					icon = green("✓")
					okCount++
				case "warning":
					icon = yellow("!")
					warnCount++
				case "error":
					icon = red("✗")
					errCount++
				}
				fmt.Printf("  %s %s: %s\n", icon, c.Name, c.Message)
			}

			fmt.Println()
			fmt.Printf("  %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

			if errCount > 0 {
				return fmt.Errorf("%d check(s) failed", errCount)
			}
			return nil
		},
	}
}

// RunChecks validates cfg and, when it is usable, lists the source and
// destination folders of the configured store.
func RunChecks(ctx context.Context, cfg *config.Config) []Check {
	checks := []Check{{
		Name:    "Go Runtime",
		Status:  "ok",
		Message: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}}

	if _, err := os.Stat(config.ConfigPath()); err == nil {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: config.ConfigPath()})
	} else {
		checks = append(checks, Check{Name: "Config File", Status: "warning", Message: "Not found — using defaults and environment"})
	}

	issues := config.Validate(cfg)
	for _, issue := range issues {
		if issue.Severity == "info" {
			continue
		}
		checks = append(checks, Check{Name: "Config " + issue.Key, Status: issue.Severity, Message: issue.Message})
	}
	if config.HasErrors(issues) {
		return checks
	}

	st, closeStore, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return append(checks, Check{Name: "Store", Status: "error", Message: err.Error()})
	}
	defer closeStore()
	checks = append(checks, Check{Name: "Store", Status: "ok", Message: cfg.Store.Backend})

	for _, f := range []struct{ name, folder, mime string }{
		{"Source Folder", cfg.Folders.Source, store.MimeXLSX},
		{"Destination Folder", cfg.Folders.Dest, ""},
	} {
		objs, err := st.List(ctx, f.folder, f.mime)
		if err != nil {
			checks = append(checks, Check{Name: f.name, Status: "error", Message: err.Error()})
			continue
		}
		checks = append(checks, Check{Name: f.name, Status: "ok", Message: fmt.Sprintf("%s (%d objects)", f.folder, len(objs))})
	}
	return checks
}
