package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/matcher"
	"github.com/spf13/cobra"
)

// terminalMarker brackets highlighted terms in plain-text output.
var terminalMarker = matcher.Marker{Open: "[", Close: "]"}

type matchOptions struct {
	keywords []string
	location string
	business string
	industry string
	window   int
	asJSON   bool
}

func newMatchCmd() *cobra.Command {
	opts := &matchOptions{}
	c := &cobra.Command{
		Use:   "match [text...]",
		Short: "Show the first term found in a piece of text",
		Long: "Runs the mention matcher over text given as arguments or on stdin. Keywords are " +
			"checked in the order given, then location, business name and industry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textArg(cmd, args)
			if err != nil {
				return err
			}
			return runMatch(cmd, opts, text)
		},
	}
	c.Flags().StringSliceVarP(&opts.keywords, "keyword", "k", nil, "keyword to look for (repeatable, in priority order)")
	c.Flags().StringVar(&opts.location, "location", "", "business location")
	c.Flags().StringVar(&opts.business, "business", "", "business name")
	c.Flags().StringVar(&opts.industry, "industry", "", "business industry")
	c.Flags().IntVar(&opts.window, "window", matcher.DefaultWindowSize, "context window in characters")
	c.Flags().BoolVar(&opts.asJSON, "json", false, "print the match as JSON")
	return c
}

func runMatch(cmd *cobra.Command, opts *matchOptions, text string) error {
	terms := matcher.TermSet{
		Keywords:     opts.keywords,
		Location:     opts.location,
		BusinessName: opts.business,
		Industry:     opts.industry,
	}
	if terms.IsEmpty() {
		return fmt.Errorf("no terms given: pass --keyword, --location, --business or --industry")
	}
	out := cmd.OutOrStdout()
	m, ok := matcher.NewResolver(opts.window).FindFirstMatch(text, terms)
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if !ok {
			return enc.Encode(map[string]bool{"matched": false})
		}
		return enc.Encode(m)
	}
	if !ok {
		fmt.Fprintln(out, "no match")
		return nil
	}
	fmt.Fprintf(out, "%s match %q at offset %d\n", m.Category.Label(), m.Term, m.Offset)
	fmt.Fprintln(out, matcher.Highlight(m.Context, m.Term, terminalMarker))
	return nil
}
