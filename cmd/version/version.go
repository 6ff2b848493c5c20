// Package version provides the version command for the thunderbolt CLI.
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewCommand returns the version subcommand.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the thunderbolt version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("thunderbolt %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
