package cmd

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/suggest"
	"github.com/spf13/cobra"
)

type suggestOptions struct {
	industry    string
	business    string
	location    string
	catalogFile string
	max         int
}

func newSuggestCmd() *cobra.Command {
	opts := &suggestOptions{}
	c := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest keywords or subreddits for a business",
	}
	c.PersistentFlags().StringVar(&opts.industry, "industry", "", "business industry")
	c.PersistentFlags().StringVar(&opts.business, "business", "", "business name")
	c.PersistentFlags().StringVar(&opts.location, "location", "", "business location")
	c.PersistentFlags().StringVar(&opts.catalogFile, "catalog", "", "catalog file (built-in when empty)")
	c.PersistentFlags().IntVar(&opts.max, "max", suggest.DefaultMaxKeywords, "maximum number of keywords")

	c.AddCommand(
		&cobra.Command{
			Use:   "keywords",
			Short: "Suggest monitoring keywords",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := opts.suggester()
				if err != nil {
					return err
				}
				keywords, err := s.Keywords(opts.industry, opts.business, opts.location)
				if err != nil {
					return err
				}
				for _, k := range keywords {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "subreddits",
			Short: "Suggest subreddits to monitor",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := opts.suggester()
				if err != nil {
					return err
				}
				for _, name := range s.Subreddits(opts.business, opts.location, opts.industry) {
					fmt.Fprintf(cmd.OutOrStdout(), "r/%s\n", name)
				}
				return nil
			},
		},
	)
	return c
}

func (o *suggestOptions) suggester() (*suggest.Suggester, error) {
	catalog, err := suggest.LoadCatalog(o.catalogFile)
	if err != nil {
		return nil, err
	}
	return suggest.New(catalog, o.max), nil
}
