// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"time"

	"resume-analyzer/internal/models"
)

// RecordStore persists analysis work records keyed by correlation id.
type RecordStore interface {
	Create(ctx context.Context, a *models.Analysis) error
	Get(ctx context.Context, id int64) (*models.Analysis, error)
	Update(ctx context.Context, a *models.Analysis) error
	// List returns records newest first plus the total count.
	List(ctx context.Context, page, size int) ([]*models.Analysis, int64, error)
	// MarkStale moves PENDING records created before cutoff to TIMED_OUT.
	MarkStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
