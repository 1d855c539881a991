// internal/api/ratelimit_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "resume-analyzer/internal/common/errors"
	"resume-analyzer/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerClientBudget(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, apperrors.NewErrorHandler(logger.NewTestLogger(t)))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := rl.Middleware(next)

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/analyses", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("192.0.2.1:1000"))
	assert.Equal(t, http.StatusNoContent, do("192.0.2.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("192.0.2.1:1002"))

	// other clients keep their own bucket
	assert.Equal(t, http.StatusNoContent, do("192.0.2.2:1000"))
}

func TestRateLimiter_PrunesIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, apperrors.NewErrorHandler(logger.NewNoOpLogger()))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiter("10.0.0.1")
	rl.limiter("10.0.0.2")
	assert.Len(t, rl.visitors, 2)

	now = now.Add(visitorTTL + time.Minute)
	rl.limiter("10.0.0.3")
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "10.0.0.3")
}
