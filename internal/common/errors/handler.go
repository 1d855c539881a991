// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"
)

// retryAfterSeconds is advertised on responses whose backend is expected to
// recover on its own.
const retryAfterSeconds = "1"

// ErrorHandler writes standardized error responses for the HTTP API.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleHTTPError normalizes err, logs it and writes it as JSON.
func (h *ErrorHandler) HandleHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	h.logError(r, stdErr, status)

	w.Header().Set("Content-Type", "application/json")
	if IsRetryableErrorCode(stdErr.Code) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": stdErr,
	})
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) logError(r *http.Request, stdErr *StandardError, status int) {
	h.logger.Error("request failed", map[string]interface{}{
		"method":        r.Method,
		"path":          r.URL.Path,
		"status":        status,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable || IsRetryableErrorCode(stdErr.Code),
		"retries":       GetRetryCount(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
}
