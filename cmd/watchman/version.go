package watchman

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("trello-watchman {{.Version}}\n")

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			v := version
			if info, ok := debug.ReadBuildInfo(); ok {
				for _, s := range info.Settings {
					if s.Key == "vcs.revision" && len(s.Value) >= 7 {
						v += " (" + s.Value[:7] + ")"
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trello-watchman %s\n", v)
		},
	}
	rootCmd.AddCommand(cmd)
}
