// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-analyzer/internal/analysis/dispatcher"
	"resume-analyzer/internal/analysis/listener"
	"resume-analyzer/internal/api"
	"resume-analyzer/internal/common/channel"
	"resume-analyzer/internal/common/config"
	"resume-analyzer/internal/common/database"
	apperrors "resume-analyzer/internal/common/errors"
	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/models"
	"resume-analyzer/internal/store"
	"resume-analyzer/pkg/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	requestTopic  = "resume-analysis-request"
	responseTopic = "resume-analysis-response"
	waitTimeout   = 400 * time.Millisecond
)

// ==========================
// Harness
// ==========================

type harness struct {
	server   *httptest.Server
	store    store.RecordStore
	registry *registry.Registry[*models.Analysis]
	worker   *fakeWorker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.NewTestLogger(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sqlClient, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "analysis.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlClient.Close() })
	require.NoError(t, database.Migrate(sqlClient.DB, sqlClient.Driver, "up", log))

	broker := channel.NewRedisBroker(rdb, 16)
	recordStore := store.NewSQLStore(sqlClient.DB, log)
	reg := registry.New[*models.Analysis]()

	ctx, cancel := context.WithCancel(context.Background())

	l, err := listener.NewListener(
		&listener.Config{ResponseTopic: responseTopic, Consumers: 2},
		broker, recordStore, reg, nil, log,
	)
	require.NoError(t, err)
	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		_ = l.Run(ctx)
	}()

	worker := &fakeWorker{broker: broker, delays: make(map[string]time.Duration)}
	sub, err := broker.Subscribe(ctx, requestTopic)
	require.NoError(t, err)
	go worker.run(ctx, sub)

	// submissions must not start before the listener is subscribed
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, responseTopic).Result()
		return err == nil && n[responseTopic] > 0
	}, 2*time.Second, 10*time.Millisecond)

	d := dispatcher.NewDispatcher(
		&dispatcher.Config{RequestTopic: requestTopic, WaitTimeout: waitTimeout},
		recordStore, reg, broker, nil, log,
	)
	handler := api.NewHandler(api.Dependencies{
		Submitter: d,
		Records:   recordStore,
		Checks: []api.ReadinessCheck{
			{Name: "database", Check: sqlClient.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
	}, apperrors.NewErrorHandler(log), log)

	srv := httptest.NewServer(api.NewRouter(handler, nil, log))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-listenerDone
		worker.wait()
		reg.Close()
	})

	return &harness{server: srv, store: recordStore, registry: reg, worker: worker}
}

// fakeWorker answers request frames the way the analysis worker does. Texts
// listed in delays are answered late.
type fakeWorker struct {
	broker channel.Broker
	mu     sync.Mutex
	delays map[string]time.Duration
	wg     sync.WaitGroup
}

func (w *fakeWorker) delay(text string, d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delays[text] = d
}

func (w *fakeWorker) run(ctx context.Context, sub channel.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub.C():
			if !ok {
				return
			}
			var frame models.RequestFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				continue
			}
			w.mu.Lock()
			d := w.delays[frame.Payload.Text]
			w.mu.Unlock()

			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				select {
				case <-time.After(d):
				case <-ctx.Done():
					return
				}
				_ = w.broker.Publish(ctx, responseTopic, answer(frame))
			}()
		}
	}
}

func (w *fakeWorker) wait() {
	w.wg.Wait()
}

func answer(frame models.RequestFrame) []byte {
	score := 35
	if strings.Contains(strings.ToLower(frame.Payload.Text), "go") {
		score = 82
	}
	body, _ := json.Marshal(map[string]interface{}{
		"correlationId": frame.CorrelationID,
		"result": map[string]interface{}{
			"score":           score,
			"summary":         "Analysed against: " + frame.Payload.Context,
			"matchedSkills":   []string{"Go", "Redis"},
			"missingSkills":   []string{"Kubernetes"},
			"recommendations": []string{"Highlight production incidents", "Add a Kubernetes project"},
		},
	})
	return body
}

func (h *harness) submit(t *testing.T, text, jobDescription string) (int, map[string]interface{}) {
	t.Helper()
	body, _ := json.Marshal(models.RequestPayload{Text: text, Context: jobDescription})
	resp, err := http.Post(h.server.URL+"/api/analyses", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (h *harness) getJSON(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(h.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// ==========================
// Scenarios
// ==========================

func TestE2E_SubmissionCompletesWithinWindow(t *testing.T) {
	h := newHarness(t)

	status, result := h.submit(t, "Senior Go engineer", "Backend platform role")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "COMPLETED", result["status"])
	assert.Equal(t, float64(82), result["suitability_score"])
	assert.Equal(t, true, result["is_suitable"])
	assert.Equal(t, []interface{}{"Go", "Redis"}, result["key_strengths"])
	assert.Equal(t, []interface{}{"Kubernetes"}, result["key_gaps"])
	assert.Equal(t, "Highlight production incidents\n\nAdd a Kubernetes project", result["recommendation"])

	id := int64(result["analysis_id"].(float64))
	status, record := h.getJSON(t, "/api/analyses/"+formatID(id))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "COMPLETED", record["status"])
	assert.Equal(t, models.LabelCompleted, record["label"])
	assert.Equal(t, "Analysed against: Backend platform role", record["summary"])

	assert.Equal(t, 0, h.registry.Len())
}

func TestE2E_LateResponseCompletesPendingRecord(t *testing.T) {
	h := newHarness(t)
	h.worker.delay("slow resume", waitTimeout+300*time.Millisecond)

	start := time.Now()
	status, result := h.submit(t, "slow resume", "Data role")
	elapsed := time.Since(start)

	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "PENDING_TIMEOUT", result["status"])
	assert.Equal(t, float64(0), result["suitability_score"])
	assert.Equal(t, false, result["is_suitable"])
	assert.Equal(t, models.DefaultTimeoutMessage, result["message"])
	assert.GreaterOrEqual(t, elapsed, waitTimeout)

	id := int64(result["analysis_id"].(float64))
	_, record := h.getJSON(t, "/api/analyses/"+formatID(id))
	assert.Equal(t, "PENDING", record["status"])
	assert.Equal(t, models.LabelPending, record["label"])

	require.Eventually(t, func() bool {
		a, err := h.store.Get(context.Background(), id)
		return err == nil && a.Status == models.StatusCompleted
	}, 3*time.Second, 20*time.Millisecond)

	a, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, a.Score)
	assert.Equal(t, 35, *a.Score)
	assert.Equal(t, models.LabelCompleted, a.Label)
	assert.Equal(t, 0, h.registry.Len())
}

func TestE2E_ConcurrentSubmissionsAreIsolated(t *testing.T) {
	h := newHarness(t)

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan float64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jd := "role-" + formatID(int64(i))
			status, result := h.submit(t, "Go and Redis", jd)
			assert.Equal(t, http.StatusOK, status)
			ids <- result["analysis_id"].(float64)

			_, record := h.getJSON(t, "/api/analyses/"+formatID(int64(result["analysis_id"].(float64))))
			assert.Equal(t, "Analysed against: "+jd, record["summary"])
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[float64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate analysis id %v", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestE2E_BadFramesDoNotStopTheListener(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	broker := h.worker.broker
	require.NoError(t, broker.Publish(ctx, responseTopic, []byte(`not json`)))
	require.NoError(t, broker.Publish(ctx, responseTopic, []byte(`{"correlationId": 987654321, "result": {"score": 10}}`)))
	require.NoError(t, broker.Publish(ctx, responseTopic, []byte(`{"correlationId": 1, "result": {"score": 250}}`)))

	status, result := h.submit(t, "Go services", "SRE")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "COMPLETED", result["status"])

	_, err := h.store.Get(ctx, 987654321)
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestE2E_HistoryNewestFirst(t *testing.T) {
	h := newHarness(t)

	for _, jd := range []string{"first", "second", "third"} {
		status, _ := h.submit(t, "Go", jd)
		require.Equal(t, http.StatusOK, status)
		time.Sleep(20 * time.Millisecond)
	}

	status, page := h.getJSON(t, "/api/analyses?page=0&size=2")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), page["totalItems"])
	assert.Equal(t, float64(2), page["totalPages"])

	items := page["analyses"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "third", items[0].(map[string]interface{})["jobDescription"])
	assert.Equal(t, "second", items[1].(map[string]interface{})["jobDescription"])

	status, ready := h.getJSON(t, "/ready")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", ready["status"])
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
