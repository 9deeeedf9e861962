package cmd

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	"github.com/spf13/cobra"
)

func newFetchCmd(root *rootOptions) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "fetch <subreddit>",
		Short: "Fetch a subreddit's hot listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			client, err := reddit.NewClient(cfg.Reddit)
			if err != nil {
				return err
			}
			posts, err := client.Hot(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range posts {
				fmt.Fprintf(out, "%s  u/%s  %s\n", p.CreatedUTC.Format("2006-01-02 15:04"), p.Author, oneLine(p.Title))
				fmt.Fprintf(out, "    %s\n", p.URL())
			}
			fmt.Fprintf(out, "%d posts\n", len(posts))
			return nil
		},
	}
	c.Flags().IntVar(&limit, "limit", 25, "number of posts to fetch (1-100)")
	return c
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
