package storage

import (
	"context"
	"database/sql"
	"fmt"

	"scm-scheduler/src/logger"
	"scm-scheduler/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	if cfg.Storage.DBConnectionString == "" {
		return nil, fmt.Errorf("postgres db_connection_string is empty")
	}
	schema := cfg.Storage.Schema
	if schema == "" {
		schema = "public"
	}

	return &PostgresDB{
		Config: cfg,
		Schema: schema,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, quoteIdent(d.Schema))); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) qualified(table string) string {
	return quoteIdent(d.Schema) + "." + quoteIdent(table)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ImportTable(ctx context.Context, table string, columns []string, rows []models.MRow) (int, error) {
	if d.DB == nil {
		return 0, fmt.Errorf("postgres not initialized")
	}
	n, err := importRows(ctx, d.DB, postgresDialect, d.qualified(table), columns, rows)
	if err != nil {
		return 0, err
	}
	d.Logger.Info("Imported %d rows into %s.%s", n, d.Schema, table)
	return n, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) QueryRows(ctx context.Context, table string) ([]models.MRow, error) {
	if d.DB == nil {
		return nil, fmt.Errorf("postgres not initialized")
	}
	return queryAll(ctx, d.DB, d.qualified(table))
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
