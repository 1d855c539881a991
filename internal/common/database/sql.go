// internal/common/database/sql.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"resume-analyzer/internal/common/config"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// SQLClient wraps the SQL connection backing the record store.
type SQLClient struct {
	DB     *sql.DB
	Driver string
}

// Open connects to the configured driver.
func Open(cfg config.DatabaseConfig) (*SQLClient, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgres(cfg.Postgres)
	case DriverSQLite:
		return NewSQLite(cfg.SQLite)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*SQLClient, error) {
	db, err := sql.Open(DriverPostgres, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLClient{DB: db, Driver: DriverPostgres}, nil
}

// NewSQLite opens an embedded database file. SQLite serialises writers, so
// the pool is capped at one connection.
func NewSQLite(cfg config.SQLiteConfig) (*SQLClient, error) {
	db, err := sql.Open(DriverSQLite, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &SQLClient{DB: db, Driver: DriverSQLite}, nil
}

// Ping tests the database connection
func (c *SQLClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *SQLClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// GetDB returns the underlying *sql.DB
func (c *SQLClient) GetDB() *sql.DB {
	return c.DB
}
