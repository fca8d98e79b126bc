package main

import (
	"io"

	"scm-scheduler/src/config"
	"scm-scheduler/src/logger"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

// -----------------------------------------------------------------------------

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "scmctl",
		Short:         "scmctl: operate the production scheduling stream",
		Long:          "scmctl loads scheduling datasets into the SQL store, prints daily snapshots and checks the health of a running scheduler.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config/default.yaml", "path to config file")

	rootCmd.AddCommand(
		newImportCmd(opts),
		newSnapshotCmd(opts),
		newHealthCmd(),
	)

	return rootCmd
}

// -----------------------------------------------------------------------------

// load reads the config and builds a logger writing to w (stderr, so that
// command output stays parseable).
func (o *rootOptions) load(w io.Writer) (*config.Config, *logger.Logger, error) {
	conf, err := config.NewConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	return conf, logger.NewConsoleLogger(conf, "scmctl", w), nil
}
