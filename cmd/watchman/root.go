package watchman

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagNoColor bool
	flagVerbose bool
	flagConfig  string

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the trello-watchman CLI.
var rootCmd = &cobra.Command{
	Use:           "trello-watchman",
	Short:         "Monitor Trello for exposed secrets",
	Long:          "trello-watchman searches recent Trello cards for secrets, credentials and sensitive attachments using a pack of YAML rules.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the trello-watchman CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log gateway retries and cooldowns to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to watchman.conf (default: XDG config dir, then home)")
}
