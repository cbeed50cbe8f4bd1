package main

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataDir    string
	ConfigPath string
	LogLevel   string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "engine",
		Short:         "NHS Jobs listing tracker",
		Long:          "Scrapes NHS Jobs search results and keeps a snapshot of every listing as new, updated, unchanged or closed.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory (default $JOBWATCH_DATA_DIR or .)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default $JOBWATCH_CONFIG or <data-dir>/config.yml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "trace|debug|info|warn|error")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewScrapeCommand(opts))
	cmd.AddCommand(NewJobsCommand(opts))
	cmd.AddCommand(NewSecretCommand(opts))

	return cmd
}
