// internal/store/sql_store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "resume-analyzer/internal/common/errors"
	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/models"
)

// Placeholders are numbered in first-use order so the same statements run on
// lib/pq and go-sqlite3.
const (
	insertQuery = `INSERT INTO analyses
		(id, status, label, score, summary, strengths, gaps, recommendation, job_description, resume_text, file_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	selectColumns = `id, status, label, score, summary, strengths, gaps, recommendation, job_description, resume_text, file_key, created_at, updated_at`

	getQuery = `SELECT ` + selectColumns + ` FROM analyses WHERE id = $1`

	updateQuery = `UPDATE analyses
		SET status = $1, label = $2, score = $3, summary = $4, strengths = $5, gaps = $6, recommendation = $7, updated_at = $8
		WHERE id = $9`

	listQuery = `SELECT ` + selectColumns + ` FROM analyses ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	countQuery = `SELECT COUNT(*) FROM analyses`

	markStaleQuery = `UPDATE analyses SET status = $1, updated_at = $2 WHERE status = $3 AND created_at < $4`
)

const maxPageSize = 100

// SQLStore implements RecordStore on database/sql.
type SQLStore struct {
	db     DBTX
	logger logger.Logger
	now    func() time.Time
}

var _ RecordStore = (*SQLStore)(nil)

func NewSQLStore(db DBTX, log logger.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "record-store"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLStore) Create(ctx context.Context, a *models.Analysis) error {
	strengths, gaps, err := encodeLists(a)
	if err != nil {
		return apperrors.NewStoreUnavailableError("create", err)
	}

	_, err = s.db.ExecContext(ctx, insertQuery,
		a.ID,
		string(a.Status),
		a.Label,
		nullInt(a.Score),
		a.Summary,
		strengths,
		gaps,
		nullString(a.Recommendation),
		a.JobDescription,
		a.ResumeText,
		a.FileKey,
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	if err != nil {
		s.logger.Error("Failed to insert analysis", map[string]interface{}{
			"id":    a.ID,
			"error": err,
		})
		return apperrors.NewStoreUnavailableError("create", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*models.Analysis, error) {
	a, err := scanAnalysis(s.db.QueryRowContext(ctx, getQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewRecordNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("get", err)
	}
	return a, nil
}

func (s *SQLStore) Update(ctx context.Context, a *models.Analysis) error {
	strengths, gaps, err := encodeLists(a)
	if err != nil {
		return apperrors.NewStoreUnavailableError("update", err)
	}

	a.UpdatedAt = s.now()
	result, err := s.db.ExecContext(ctx, updateQuery,
		string(a.Status),
		a.Label,
		nullInt(a.Score),
		a.Summary,
		strengths,
		gaps,
		nullString(a.Recommendation),
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		s.logger.Error("Failed to update analysis", map[string]interface{}{
			"id":    a.ID,
			"error": err,
		})
		return apperrors.NewStoreUnavailableError("update", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStoreUnavailableError("update", err)
	}
	if rows == 0 {
		return apperrors.NewRecordNotFoundError(a.ID)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, page, size int) ([]*models.Analysis, int64, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > maxPageSize {
		size = 10
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, apperrors.NewStoreUnavailableError("count", err)
	}

	rows, err := s.db.QueryContext(ctx, listQuery, size, page*size)
	if err != nil {
		return nil, 0, apperrors.NewStoreUnavailableError("list", err)
	}
	defer rows.Close()

	items := make([]*models.Analysis, 0, size)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, apperrors.NewStoreUnavailableError("list", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewStoreUnavailableError("list", err)
	}
	return items, total, nil
}

func (s *SQLStore) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, markStaleQuery,
		string(models.StatusTimedOut),
		s.now(),
		string(models.StatusPending),
		cutoff.UTC(),
	)
	if err != nil {
		return 0, apperrors.NewStoreUnavailableError("mark-stale", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStoreUnavailableError("mark-stale", err)
	}
	if rows > 0 {
		s.logger.Info("Marked stale analyses as timed out", map[string]interface{}{
			"count":  rows,
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}
	return rows, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row rowScanner) (*models.Analysis, error) {
	var (
		a              models.Analysis
		status         string
		score          sql.NullInt64
		strengths      string
		gaps           string
		recommendation sql.NullString
	)

	err := row.Scan(
		&a.ID,
		&status,
		&a.Label,
		&score,
		&a.Summary,
		&strengths,
		&gaps,
		&recommendation,
		&a.JobDescription,
		&a.ResumeText,
		&a.FileKey,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = models.Status(status)
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	if recommendation.Valid {
		v := recommendation.String
		a.Recommendation = &v
	}
	if a.Strengths, err = decodeList(strengths); err != nil {
		return nil, fmt.Errorf("decode strengths: %w", err)
	}
	if a.Gaps, err = decodeList(gaps); err != nil {
		return nil, fmt.Errorf("decode gaps: %w", err)
	}
	return &a, nil
}

func encodeLists(a *models.Analysis) (string, string, error) {
	strengths, err := encodeList(a.Strengths)
	if err != nil {
		return "", "", err
	}
	gaps, err := encodeList(a.Gaps)
	if err != nil {
		return "", "", err
	}
	return strengths, gaps, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	items := []string{}
	if raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
