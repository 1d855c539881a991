// internal/search/indexer_test.go
package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndexer(t *testing.T, handler http.HandlerFunc) *Indexer {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndexer(es, "analyses", logger.NewTestLogger(t))
}

func TestIndexer_OnCompleted(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotDoc    Document
	)
	idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	score := 73
	rec := "Add metrics"
	a := &models.Analysis{
		ID:             9001,
		Status:         models.StatusCompleted,
		Score:          &score,
		Strengths:      []string{"Go"},
		Recommendation: &rec,
		JobDescription: "Platform engineer",
		CreatedAt:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, idx.OnCompleted(context.Background(), a, false))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/analyses/_doc/9001", gotPath)
	assert.Equal(t, int64(9001), gotDoc.ID)
	assert.Equal(t, 73, gotDoc.Score)
	assert.True(t, gotDoc.IsSuitable)
	assert.Equal(t, []string{"Go"}, gotDoc.MatchedSkills)
	assert.Equal(t, []string{}, gotDoc.MissingSkills)
	assert.Equal(t, "2024-05-01T00:00:00Z", gotDoc.CreatedAt)
}

func TestIndexer_OnCompleted_ErrorStatus(t *testing.T) {
	idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	err := idx.OnCompleted(context.Background(), &models.Analysis{ID: 1}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestIndexer_Search(t *testing.T) {
	var gotQuery map[string]interface{}
	idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyses/_search", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("from"))
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotQuery)
		_, _ = w.Write([]byte(`{
			"hits": {
				"total": {"value": 21},
				"hits": [{"_source": {"id": 5, "score": 88, "matchedSkills": ["Kafka"]}}]
			}
		}`))
	})

	docs, total, err := idx.Search(context.Background(), "kafka", 20, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(5), docs[0].ID)
	assert.Equal(t, []string{"Kafka"}, docs[0].MatchedSkills)

	mm := gotQuery["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "kafka", mm["query"])
}
