// internal/store/sqlite_test.go
package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"resume-analyzer/internal/common/config"
	"resume-analyzer/internal/common/database"
	apperrors "resume-analyzer/internal/common/errors"
	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	client, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "analysis.db")})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	log := logger.NewTestLogger(t)
	require.NoError(t, database.Migrate(client.DB, client.Driver, "up", log))
	return NewSQLStore(client.DB, log)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Second)

	a := models.NewPendingAnalysis(4242, models.RequestPayload{Text: "resume text", Context: "backend role"}, "abc_cv.pdf", created)
	require.NoError(t, s.Create(ctx, a))

	got, err := s.Get(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, models.LabelPending, got.Label)
	assert.Equal(t, "backend role", got.JobDescription)
	assert.Equal(t, "abc_cv.pdf", got.FileKey)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Nil(t, got.Score)

	score := 71
	rec := "one\n\ntwo"
	got.Status = models.StatusCompleted
	got.Label = models.LabelCompleted
	got.Score = &score
	got.Strengths = []string{"Go", "Postgres"}
	got.Gaps = []string{"Kubernetes"}
	got.Recommendation = &rec
	require.NoError(t, s.Update(ctx, got))

	again, err := s.Get(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, again.Status)
	assert.Equal(t, 71, *again.Score)
	assert.Equal(t, []string{"Go", "Postgres"}, again.Strengths)
	assert.Equal(t, "one\n\ntwo", *again.Recommendation)
}

func TestSQLiteStore_ListNewestFirstAndMarkStale(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)

	for i := 1; i <= 3; i++ {
		a := models.NewPendingAnalysis(int64(i), models.RequestPayload{Text: "t", Context: "c"}, "", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.Create(ctx, a))
	}
	fresh := models.NewPendingAnalysis(4, models.RequestPayload{Text: "t", Context: "c"}, "", time.Now().UTC())
	require.NoError(t, s.Create(ctx, fresh))

	items, total, err := s.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(4), items[0].ID)
	assert.Equal(t, int64(3), items[1].ID)

	n, err := s.MarkStale(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	stale, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTimedOut, stale.Status)

	still, err := s.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, still.Status)
}

func TestSQLiteStore_UpdateUnknown(t *testing.T) {
	s := newSQLiteStore(t)
	err := s.Update(context.Background(), &models.Analysis{ID: 999, Status: models.StatusCompleted})
	assert.True(t, errors.Is(err, apperrors.ErrRecordNotFound))
}
