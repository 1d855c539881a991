// internal/models/notification.go
package models

// CompletionEvent is published to downstream subscribers once a response has
// been persisted.
type CompletionEvent struct {
	Type             string `json:"type"` // "analysis.completed"
	AnalysisID       int64  `json:"analysisId"`
	SuitabilityScore int    `json:"suitabilityScore"`
	IsSuitable       bool   `json:"isSuitable"`
	Late             bool   `json:"late"` // no caller was waiting any more
	CompletedAt      string `json:"completedAt"`
}

const EventAnalysisCompleted = "analysis.completed"
