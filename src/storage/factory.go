package storage

import (
	"fmt"

	"scm-scheduler/src/config"
	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/logger"
)

// Open returns the initialized database of the configured SQL backend.
func Open(cfg *config.Config, log *logger.Logger) (interfaces.IDatabase, error) {
	var (
		db  interfaces.IDatabase
		err error
	)
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err = NewSQLiteDB(cfg.MConfig, log)
	case config.BackendPostgres:
		db, err = NewPostgresDB(cfg.MConfig, log)
	default:
		return nil, fmt.Errorf("backend %q is not a database", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := db.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", cfg.Storage.Backend, err)
	}
	return db, nil
}
