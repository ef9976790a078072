package watchman

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				return rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				return rootCmd.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
		Example: `
# Bash
trello-watchman completion bash > /etc/bash_completion.d/trello-watchman

# Zsh
trello-watchman completion zsh > "${fpath[1]}/_trello-watchman"

# Fish
trello-watchman completion fish > ~/.config/fish/completions/trello-watchman.fish

# PowerShell
trello-watchman completion powershell > $PROFILE\trello-watchman.ps1
`,
	}
	rootCmd.AddCommand(cmd)
}
