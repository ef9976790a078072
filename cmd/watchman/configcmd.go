package watchman

import (
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/varalys/trello-watchman/internal/config"
)

var (
	cfgOutput string
	cfgForce  bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a template watchman.conf",
		RunE:  runConfigInit,
	}
	initCmd.Flags().StringVar(&cfgOutput, "output", "", "output file path (default: $XDG_CONFIG_HOME/trello-watchman/watchman.conf)")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show where configuration is read from",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, found, _ := config.LoadGlobal()
			for _, p := range config.GlobalPaths() {
				marker := " "
				if p == found {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, p)
			}
			return nil
		},
	}
	cfgCmd.AddCommand(pathCmd)
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	out := cfgOutput
	if out == "" {
		out = filepath.Join(xdg.ConfigHome, config.AppDir, config.FileName)
	}
	if err := config.WriteTemplate(out, cfgForce); err != nil {
		return err
	}
	fmt.Println("Wrote", out)
	return nil
}
