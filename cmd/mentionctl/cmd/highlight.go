package cmd

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/matcher"
	"github.com/spf13/cobra"
)

func newHighlightCmd() *cobra.Command {
	var asHTML bool
	c := &cobra.Command{
		Use:   "highlight <term> [text...]",
		Short: "Mark every occurrence of a term in text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textArg(cmd, args[1:])
			if err != nil {
				return err
			}
			if asHTML {
				fmt.Fprintln(cmd.OutOrStdout(), matcher.HighlightHTML(text, args[0]))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), matcher.Highlight(text, args[0], terminalMarker))
			return nil
		},
	}
	c.Flags().BoolVar(&asHTML, "html", false, "escape the text and use <mark> tags")
	return c
}
