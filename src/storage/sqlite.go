package storage

import (
	"context"
	"database/sql"
	"fmt"

	"scm-scheduler/src/logger"
	"scm-scheduler/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	if cfg.Storage.DBPath == "" {
		return nil, fmt.Errorf("sqlite db_path is empty")
	}
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	// Every connection to :memory: is a separate database
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	d.Logger.Info("SQLite opened (%s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) ImportTable(ctx context.Context, table string, columns []string, rows []models.MRow) (int, error) {
	if d.DB == nil {
		return 0, fmt.Errorf("sqlite not initialized")
	}
	n, err := importRows(ctx, d.DB, sqliteDialect, quoteIdent(table), columns, rows)
	if err != nil {
		return 0, err
	}
	d.Logger.Info("Imported %d rows into %s", n, table)
	return n, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) QueryRows(ctx context.Context, table string) ([]models.MRow, error) {
	if d.DB == nil {
		return nil, fmt.Errorf("sqlite not initialized")
	}
	return queryAll(ctx, d.DB, quoteIdent(table))
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
