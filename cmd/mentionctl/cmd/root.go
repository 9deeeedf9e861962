package cmd

import (
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "mentionctl",
		Short:        "Operate the Reddit mention monitor",
		Long:         "Preview matches, suggest keywords, migrate the database and run monitoring passes.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newMatchCmd(),
		newHighlightCmd(),
		newSuggestCmd(),
		newMigrateCmd(opts),
		newFetchCmd(opts),
		newRunCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

// textArg joins the positional arguments, or reads stdin when there are none.
func textArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
