package cmd

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if err := store.Migrate(cfg.Postgres.URL()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", cfg.Postgres.Database)
			return nil
		},
	}
}
