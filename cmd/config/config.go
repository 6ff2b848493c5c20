// Package config provides CLI commands for configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/internal/config"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage thunderbolt configuration",
		Long: `View and modify thunderbolt settings.

Values come from, highest precedence first: THUNDERBOLT_* environment
variables (a .env file in the working directory is loaded first), the config
file, and built-in defaults.`,
	}

	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			out, err := config.ShowConfig(cfg)
			if err != nil {
				return err
			}
			if jsonFlag {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{
					"path":   config.ConfigPath(),
					"config": out,
				})
			}
			fmt.Print(out)
			return nil
		},
	}
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			if err := config.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			val := config.Get(args[0])
			if val == "" {
				fmt.Printf("%s: (not set)\n", args[0])
			} else {
				fmt.Printf("%s: %s\n", args[0], val)
			}
			return nil
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.ConfigPath())
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			issues := config.Validate(cfg)

			if jsonFlag {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(issues)
			}

			errs, warnings := 0, 0
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					errs++
				case "warning":
					warnings++
				}
			}

			if errs == 0 && warnings == 0 {
				color.New(color.FgGreen).Println("Configuration is valid")
			} else {
				fmt.Printf("Config validation: %d errors, %d warnings\n\n", errs, warnings)
			}

			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					color.New(color.FgRed).Printf("  %s\n", issue.Message)
				case "warning":
					color.New(color.FgYellow).Printf("  %s\n", issue.Message)
				case "info":
					color.New(color.FgGreen).Printf("  %s\n", issue.Message)
				}
				if issue.Fix != "" {
					fmt.Printf("   Fix: %s\n", issue.Fix)
				}
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration has %d error(s)", errs)
			}
			return nil
		},
	}
}
