package main

import (
	"time"

	"scm-scheduler/src/aggregator"
	"scm-scheduler/src/cache"
	"scm-scheduler/src/config"
	datasource "scm-scheduler/src/data_source"
	"scm-scheduler/src/helpers"
	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/logger"
	"scm-scheduler/src/storage"
)

// -----------------------------------------------------------------------------

// App bundles the long-lived components wired from config.
type App struct {
	DB         interfaces.IDatabase
	Cache      *cache.Cache
	Providers  *datasource.ProviderSet
	Aggregator *aggregator.DayAggregator
}

// Close releases the database and cache connections.
func (a *App) Close() {
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// -----------------------------------------------------------------------------

func setupApp(conf *config.Config, appLogger *logger.Logger) (*App, error) {
	app := &App{}

	db, err := setupDatabase(conf, appLogger)
	if err != nil {
		return nil, err
	}
	app.DB = db

	providers, err := setupProviders(conf, db, appLogger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Providers = providers

	if conf.Cache.Enabled {
		app.Cache = setupCache(conf, providers, appLogger)
	}

	agg, err := aggregator.NewDayAggregator(conf, providers, appLogger.Named("Aggregator"))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Aggregator = agg
	return app, nil
}

// -----------------------------------------------------------------------------

// setupDatabase opens the SQL store for the sqlite and postgres backends,
// retrying while the server comes up. The csv backend needs none.
func setupDatabase(conf *config.Config, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	if conf.Storage.Backend == config.BackendCSV {
		return nil, nil
	}

	dbLogger := appLogger.Named("Storage")
	var db interfaces.IDatabase
	err := helpers.RetryWithBackoff(dbLogger, "open "+conf.Storage.Backend, 5, 500*time.Millisecond, func() error {
		var err error
		db, err = storage.Open(conf, dbLogger)
		return err
	})
	if err != nil {
		return nil, &helpers.DatabaseError{SchedulerError: helpers.SchedulerError{Message: "database unavailable", Cause: err}}
	}
	return db, nil
}

// -----------------------------------------------------------------------------

func setupProviders(conf *config.Config, db interfaces.IDatabase, appLogger *logger.Logger) (*datasource.ProviderSet, error) {
	appLogger.Info("Initializing providers...")
	return datasource.NewProviderSetFromConfig(conf, db, appLogger.Named("Providers"))
}

// -----------------------------------------------------------------------------

// setupCache puts the Redis read-through layer in front of every provider.
func setupCache(conf *config.Config, providers *datasource.ProviderSet, appLogger *logger.Logger) *cache.Cache {
	c := cache.New(conf.Cache, appLogger.Named("Cache"))
	for _, p := range providers.GetAllProviders() {
		providers.ReplaceProvider(cache.NewCachedProvider(p, c))
	}
	return c
}
