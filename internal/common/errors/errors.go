// Package errors provides standardized error handling for the analysis gateway.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeStoreUnavailable       ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeRecordNotFound         ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeChannelUnavailable     ErrorCode = "CHANNEL_UNAVAILABLE"
	ErrCodeMalformedResponse      ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeUnknownCorrelationID   ErrorCode = "UNKNOWN_CORRELATION_ID"
	ErrCodeDuplicateCorrelationID ErrorCode = "DUPLICATE_CORRELATION_ID"
	ErrCodeObjectStoreUnavailable ErrorCode = "OBJECT_STORE_UNAVAILABLE"
	ErrCodeInvalidRequest         ErrorCode = "INVALID_REQUEST"
	ErrCodeSearchUnavailable      ErrorCode = "SEARCH_UNAVAILABLE"
	ErrCodeRateLimited            ErrorCode = "RATE_LIMITED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying driver/transport error, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so the sentinel values
// below work with errors.Is regardless of details or cause.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrStoreUnavailable       = &StandardError{Code: ErrCodeStoreUnavailable}
	ErrRecordNotFound         = &StandardError{Code: ErrCodeRecordNotFound}
	ErrChannelUnavailable     = &StandardError{Code: ErrCodeChannelUnavailable}
	ErrMalformedResponse      = &StandardError{Code: ErrCodeMalformedResponse}
	ErrUnknownCorrelationID   = &StandardError{Code: ErrCodeUnknownCorrelationID}
	ErrObjectStoreUnavailable = &StandardError{Code: ErrCodeObjectStoreUnavailable}
	ErrInvalidRequest         = &StandardError{Code: ErrCodeInvalidRequest}
	ErrSearchUnavailable      = &StandardError{Code: ErrCodeSearchUnavailable}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewStoreUnavailableError wraps a persistence failure. Fatal to the in-progress call.
func NewStoreUnavailableError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "Record store unavailable",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRecordNotFoundError reports a missing analysis record.
func NewRecordNotFoundError(id int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordNotFound,
		Message:   "Analysis record not found",
		Details:   fmt.Sprintf("id: %d", id),
		Retryable: false,
		Metadata:  map[string]interface{}{"id": id},
		Timestamp: time.Now().UTC(),
	}
}

// NewChannelUnavailableError wraps a publish failure. The record stays PENDING.
func NewChannelUnavailableError(topic string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelUnavailable,
		Message:   "Message channel unavailable",
		Details:   fmt.Sprintf("topic: %s, error: %v", topic, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewMalformedResponseError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedResponse,
		Message:   "Malformed response frame",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownCorrelationIDError(id int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownCorrelationID,
		Message:   "Response for unknown correlation id",
		Details:   fmt.Sprintf("correlationId: %d", id),
		Retryable: false,
		Metadata:  map[string]interface{}{"correlationId": id},
		Timestamp: time.Now().UTC(),
	}
}

func NewObjectStoreUnavailableError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeObjectStoreUnavailable,
		Message:   "Object store unavailable",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSearchUnavailableError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchUnavailable,
		Message:   "Search index unavailable",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewRateLimitedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many submissions",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for a caller-side retry.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreUnavailable,
		ErrCodeChannelUnavailable,
		ErrCodeObjectStoreUnavailable:
		return 3

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "RECORD"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "CHANNEL"):
		return "MESSAGING"
	case strings.Contains(codeStr, "CORRELATION") || strings.Contains(codeStr, "RESPONSE"):
		return "CORRELATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the status returned by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeRecordNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeStoreUnavailable,
		ErrCodeChannelUnavailable,
		ErrCodeObjectStoreUnavailable,
		ErrCodeSearchUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
