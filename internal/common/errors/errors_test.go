// internal/common/errors/errors_test.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	msgs   []string
	fields []map[string]interface{}
}

func (c *captureLogger) Error(msg string, fields map[string]interface{}) {
	c.msgs = append(c.msgs, msg)
	c.fields = append(c.fields, fields)
}

func TestStandardError_IsMatchesByCode(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := fmt.Errorf("create record: %w", NewStoreUnavailableError("create", cause))

	assert.True(t, stderrors.Is(err, ErrStoreUnavailable))
	assert.False(t, stderrors.Is(err, ErrChannelUnavailable))
	assert.True(t, stderrors.Is(err, cause))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidRequest, http.StatusBadRequest},
		{ErrCodeRecordNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeStoreUnavailable, http.StatusServiceUnavailable},
		{ErrCodeChannelUnavailable, http.StatusServiceUnavailable},
		{ErrCodeObjectStoreUnavailable, http.StatusServiceUnavailable},
		{ErrCodeSearchUnavailable, http.StatusServiceUnavailable},
		{ErrCodeMalformedResponse, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestRetryAndCategory(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeChannelUnavailable))
	assert.False(t, IsRetryableErrorCode(ErrCodeMalformedResponse))
	assert.Equal(t, "PERSISTENCE", GetErrorCategory(ErrCodeRecordNotFound))
	assert.Equal(t, "MESSAGING", GetErrorCategory(ErrCodeChannelUnavailable))
	assert.Equal(t, "CORRELATION", GetErrorCategory(ErrCodeUnknownCorrelationID))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidRequest))
}

func TestErrorHandler_WritesNormalizedJSON(t *testing.T) {
	log := &captureLogger{}
	h := NewErrorHandler(log)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analyses/9", nil)
	h.HandleHTTPError(rec, req, NewRecordNotFoundError(9))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Error StandardError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeRecordNotFound, body.Error.Code)
	require.Len(t, log.msgs, 1)
	assert.Equal(t, "/api/analyses/9", log.fields[0]["path"])
}

func TestNormalize_WrapsPlainErrors(t *testing.T) {
	stdErr := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "boom", stdErr.Details)
}

func TestErrorHandler_RetryAfterOnlyForRetryableCodes(t *testing.T) {
	h := NewErrorHandler(&captureLogger{})
	cause := stderrors.New("connection reset")

	tests := []struct {
		name       string
		err        error
		status     int
		retryAfter string
	}{
		{"store unavailable", NewStoreUnavailableError("create", cause), http.StatusServiceUnavailable, "1"},
		{"channel unavailable", NewChannelUnavailableError("analysis.requests", cause), http.StatusServiceUnavailable, "1"},
		{"search unavailable", NewSearchUnavailableError("search", cause), http.StatusServiceUnavailable, ""},
		{"invalid request", NewInvalidRequestError("missing jobDescription"), http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/analyses", nil)
			h.HandleHTTPError(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))
		})
	}
}
