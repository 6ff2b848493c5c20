// Package cmd contains all CLI commands for the thunderbolt binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/cmd/completion"
	cmdconfig "github.com/klytics/thunderbolt/cmd/config"
	"github.com/klytics/thunderbolt/cmd/convert"
	"github.com/klytics/thunderbolt/cmd/doctor"
	"github.com/klytics/thunderbolt/cmd/files"
	"github.com/klytics/thunderbolt/cmd/history"
	"github.com/klytics/thunderbolt/cmd/inspect"
	"github.com/klytics/thunderbolt/cmd/merge"
	"github.com/klytics/thunderbolt/cmd/version"
	cmdwatch "github.com/klytics/thunderbolt/cmd/watch"
	"github.com/klytics/thunderbolt/internal/config"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
	configFile string
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "thunderbolt",
		Short: "Turn daily generation report workbooks into one master dataset",
		Long: `Thunderbolt — steamfield report pipeline.

Stage 1 (convert) finds the Steamfield sheet of every new workbook in the
source folder and stores it as a flat CSV table. Stage 2 (merge) combines all
tables into one time-ordered master dataset without repeated timestamps.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
			if configFile != "" {
				config.SetFile(configFile)
			}
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.thunderbolt/config.yaml)")

	// Register subcommands
	rootCmd.AddCommand(convert.NewCommand())
	rootCmd.AddCommand(merge.NewCommand())
	rootCmd.AddCommand(inspect.NewCommand())
	rootCmd.AddCommand(files.NewListCommand())
	rootCmd.AddCommand(files.NewPutCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(history.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(doctor.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
