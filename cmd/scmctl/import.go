package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"scm-scheduler/src/cache"
	"scm-scheduler/src/config"
	datasource "scm-scheduler/src/data_source"
	"scm-scheduler/src/models"
	"scm-scheduler/src/storage"

	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the CSV datasets into the SQL store",
		Long:  "import reads every dataset file from data_dir and (re)creates its table in the configured sqlite or postgres store, so the SQL backends serve the same rows as the CSV files. Cached rows of every imported dataset are dropped when the cache is enabled.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if dbPath != "" {
				conf.Storage.Backend = config.BackendSQLite
				conf.Storage.DBPath = dbPath
			}

			db, err := storage.Open(conf, log.Named("Storage"))
			if err != nil {
				return err
			}
			defer db.Close()

			var rowCache *cache.Cache
			if conf.Cache.Enabled {
				rowCache = cache.New(conf.Cache, log.Named("Cache"))
				defer rowCache.Close()
			}

			datasets := conf.Datasets()
			names := make([]string, 0, len(datasets))
			for name := range datasets {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				ds := datasets[name]
				path := filepath.Join(conf.Storage.DataDir, ds.File)
				table := datasource.NewCSVTable(name, path, ds.DateColumn, log)

				rows, err := table.Rows()
				if err != nil {
					return err
				}
				columns, err := table.Columns()
				if err != nil {
					return err
				}
				if len(columns) == 0 {
					columns = datasetColumns(ds)
				}

				n, err := db.ImportTable(cmd.Context(), ds.Table, columns, rows)
				if err != nil {
					return fmt.Errorf("import %s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d rows into %s\n", name, n, ds.Table)

				if rowCache != nil {
					if err := rowCache.InvalidateProvider(cmd.Context(), name); err != nil {
						log.Warning("Failed to drop cached rows of %s: %v", name, err)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to import into (overrides the configured backend)")

	return cmd
}

// datasetColumns are the configured columns of a dataset whose file is
// missing, so its table still exists and serves empty days.
func datasetColumns(ds models.MDatasetConfig) []string {
	return []string{ds.DateColumn, ds.ProductColumn, ds.QuantityColumn}
}
