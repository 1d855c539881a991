// internal/models/result.go
package models

import "encoding/json"

// ResultStatus tags the caller-facing outcome of a submission.
type ResultStatus string

const (
	ResultCompleted      ResultStatus = "COMPLETED"
	ResultPendingTimeout ResultStatus = "PENDING_TIMEOUT"
)

// SuitabilityThreshold is the minimum score reported as suitable.
const SuitabilityThreshold = 50

// DefaultTimeoutMessage is returned when the worker has not answered in time.
const DefaultTimeoutMessage = "Analysis is still in progress. Check your history shortly for the result."

// Result is what a synchronous caller receives from a submission.
type Result struct {
	AnalysisID       int64
	Status           ResultStatus
	SuitabilityScore int
	IsSuitable       bool
	KeyStrengths     []string
	KeyGaps          []string
	Recommendation   string
	Message          string
}

// CompletedResult converts a completed record into the caller-facing shape.
func CompletedResult(a *Analysis) *Result {
	score := 0
	if a.Score != nil {
		score = *a.Score
	}
	recommendation := ""
	if a.Recommendation != nil {
		recommendation = *a.Recommendation
	}
	return &Result{
		AnalysisID:       a.ID,
		Status:           ResultCompleted,
		SuitabilityScore: score,
		IsSuitable:       score >= SuitabilityThreshold,
		KeyStrengths:     nonNil(a.Strengths),
		KeyGaps:          nonNil(a.Gaps),
		Recommendation:   recommendation,
	}
}

// TimeoutResult is the fallback returned when the wait window closes.
func TimeoutResult(id int64, message string) *Result {
	if message == "" {
		message = DefaultTimeoutMessage
	}
	return &Result{
		AnalysisID: id,
		Status:     ResultPendingTimeout,
		Message:    message,
	}
}

type completedJSON struct {
	AnalysisID       int64        `json:"analysis_id"`
	Status           ResultStatus `json:"status"`
	SuitabilityScore int          `json:"suitability_score"`
	IsSuitable       bool         `json:"is_suitable"`
	KeyStrengths     []string     `json:"key_strengths"`
	KeyGaps          []string     `json:"key_gaps"`
	Recommendation   string       `json:"recommendation"`
}

type timeoutJSON struct {
	AnalysisID       int64        `json:"analysis_id"`
	Status           ResultStatus `json:"status"`
	SuitabilityScore int          `json:"suitability_score"`
	IsSuitable       bool         `json:"is_suitable"`
	Message          string       `json:"message"`
}

// MarshalJSON emits the exact shape for each status.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r.Status == ResultPendingTimeout {
		return json.Marshal(timeoutJSON{
			AnalysisID: r.AnalysisID,
			Status:     r.Status,
			Message:    r.Message,
		})
	}
	return json.Marshal(completedJSON{
		AnalysisID:       r.AnalysisID,
		Status:           r.Status,
		SuitabilityScore: r.SuitabilityScore,
		IsSuitable:       r.IsSuitable,
		KeyStrengths:     nonNil(r.KeyStrengths),
		KeyGaps:          nonNil(r.KeyGaps),
		Recommendation:   r.Recommendation,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
