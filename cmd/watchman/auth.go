package watchman

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/varalys/trello-watchman/internal/trello"
)

var authTimeout time.Duration

func init() {
	cmd := &cobra.Command{Use: "auth", Short: "Credential helpers"}
	rootCmd.AddCommand(cmd)

	check := &cobra.Command{
		Use:   "check",
		Short: "Verify the configured key and token against the Trello API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			key, token, err := s.Credentials()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
			defer cancel()

			client := trello.New(key, token, trello.WithLogger(diagLogger(os.Stderr)), trello.WithRetry(1, time.Second))
			me, err := client.GetMe(ctx)
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			name := me.Username
			if me.FullName != "" {
				name = fmt.Sprintf("%s (%s)", me.Username, me.FullName)
			}
			fmt.Fprintf(os.Stdout, "Authenticated as %s\n", name)
			return nil
		},
	}
	check.Flags().DurationVar(&authTimeout, "timeout", 30*time.Second, "give up after this long")
	cmd.AddCommand(check)
}
