package main

import (
	"encoding/json"
	"fmt"

	"scm-scheduler/src/aggregator"
	"scm-scheduler/src/config"
	datasource "scm-scheduler/src/data_source"
	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/storage"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	var date string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the scheduling snapshot of one date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := civil.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date %q: use YYYY-MM-DD", date)
			}

			conf, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if dbPath != "" {
				conf.Storage.Backend = config.BackendSQLite
				conf.Storage.DBPath = dbPath
			}

			var db interfaces.IDatabase
			if conf.Storage.Backend != config.BackendCSV {
				db, err = storage.Open(conf, log.Named("Storage"))
				if err != nil {
					return err
				}
				defer db.Close()
			}

			providers, err := datasource.NewProviderSetFromConfig(conf, db, log.Named("Providers"))
			if err != nil {
				return err
			}
			agg, err := aggregator.NewDayAggregator(conf, providers, log.Named("Aggregator"))
			if err != nil {
				return err
			}

			snapshot, err := agg.Aggregate(cmd.Context(), day)
			if err != nil {
				return fmt.Errorf("%+v", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snapshot)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date to aggregate (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to read from (overrides the configured backend)")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}
