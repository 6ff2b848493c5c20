// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCommand returns the completion command.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for thunderbolt.

Install instructions:
  Bash:       thunderbolt completion bash > /etc/bash_completion.d/thunderbolt
              echo 'source <(thunderbolt completion bash)' >> ~/.bashrc
  Zsh:        thunderbolt completion zsh > ~/.zsh/completions/_thunderbolt
  Fish:       thunderbolt completion fish > ~/.config/fish/completions/thunderbolt.fish
  PowerShell: thunderbolt completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				fmt.Fprintln(out, "# thunderbolt bash completion")
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				fmt.Fprintln(out, "# thunderbolt zsh completion")
				return rootCmd.GenZshCompletion(out)
			case "fish":
				fmt.Fprintln(out, "# thunderbolt fish completion")
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				fmt.Fprintln(out, "# thunderbolt PowerShell completion")
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish, powershell)", args[0])
			}
		},
	}
	return cmd
}
