package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/monitor"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/store"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/redis"
	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var userID string
	c := &cobra.Command{
		Use:   "run",
		Short: "Run one monitoring pass and print its report",
		Long: "Runs a monitoring pass over every user's subreddits, or only the given user's. " +
			"When Redis is reachable the pass takes the same lock as the service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			db, err := postgres.New(cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			client, err := reddit.NewClient(cfg.Reddit)
			if err != nil {
				return err
			}
			var opts []monitor.Option
			if rdb, err := redis.NewClient(cfg.Redis); err != nil {
				slog.Warn("redis unavailable, running without a pass lock", "error", err)
			} else {
				defer rdb.Close()
				opts = append(opts, monitor.WithLocker(rdb))
			}

			svc := monitor.NewService(client, store.New(db), monitor.Config{
				PostLimit:      cfg.Monitor.PostLimit,
				SubredditDelay: cfg.Monitor.SubredditDelay,
				LockTTL:        cfg.Redis.LockTTL,
				ContextWindow:  cfg.Matcher.ContextWindow,
			}, opts...)
			report, err := svc.RunPass(cmd.Context(), userID)
			if report != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(report); encErr != nil {
					return encErr
				}
			}
			if err != nil {
				return fmt.Errorf("monitoring pass: %w", err)
			}
			return nil
		},
	}
	c.Flags().StringVar(&userID, "user", "", "only check this user's subreddits")
	return c
}
