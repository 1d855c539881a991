// internal/models/analysis.go
package models

import "time"

// Status is the lifecycle state of a persisted analysis.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusTimedOut  Status = "TIMED_OUT"
)

// Human-readable labels shown in history listings.
const (
	LabelPending   = "Pending Analysis"
	LabelCompleted = "Analysis Completed"
)

// Analysis is the durable work record for one submission. Its ID is the
// correlation id carried by the request and response frames.
type Analysis struct {
	ID             int64     `json:"id"`
	Status         Status    `json:"status"`
	Label          string    `json:"label"`
	Score          *int      `json:"suitabilityScore,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	Strengths      []string  `json:"matchedSkills"`
	Gaps           []string  `json:"missingSkills"`
	Recommendation *string   `json:"recommendation,omitempty"`
	JobDescription string    `json:"jobDescription,omitempty"`
	ResumeText     string    `json:"-"`
	FileKey        string    `json:"fileKey,omitempty"`
	FileURL        string    `json:"fileUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewPendingAnalysis builds the placeholder record written before a request is published.
func NewPendingAnalysis(id int64, payload RequestPayload, fileKey string, now time.Time) *Analysis {
	return &Analysis{
		ID:             id,
		Status:         StatusPending,
		Label:          LabelPending,
		Strengths:      []string{},
		Gaps:           []string{},
		JobDescription: payload.Context,
		ResumeText:     payload.Text,
		FileKey:        fileKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsCompleted reports whether a response has been applied.
func (a *Analysis) IsCompleted() bool {
	return a.Status == StatusCompleted
}

// Page is one slice of the history listing.
type Page struct {
	Items       []*Analysis `json:"analyses"`
	CurrentPage int         `json:"currentPage"`
	TotalItems  int64       `json:"totalItems"`
	TotalPages  int         `json:"totalPages"`
}

// NewPage computes the page counters for a listing.
func NewPage(items []*Analysis, page, size int, total int64) *Page {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	if items == nil {
		items = []*Analysis{}
	}
	return &Page{
		Items:       items,
		CurrentPage: page,
		TotalItems:  total,
		TotalPages:  totalPages,
	}
}
