// internal/common/database/migrate.go
package database

import (
	"database/sql"
	"embed"
	"fmt"

	"resume-analyzer/internal/common/logger"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationTableName = "schema_migrations"

// gooseLogger forwards goose output to the structured logger. Fatalf does
// not exit; errors are returned to the caller.
type gooseLogger struct {
	log logger.Logger
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info(fmt.Sprintf(format, v...), nil)
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...), nil)
}

// Migrate runs a goose command ("up", "down", "status", "version", "reset")
// against the embedded migration set.
func Migrate(db *sql.DB, driver, command string, log logger.Logger) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{log: log})
	goose.SetTableName(migrationTableName)

	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.Up(db, "migrations")
	case "down":
		err = goose.Down(db, "migrations")
	case "reset":
		err = goose.Reset(db, "migrations")
	case "status":
		err = goose.Status(db, "migrations")
	case "version":
		err = goose.Version(db, "migrations")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}
