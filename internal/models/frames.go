// internal/models/frames.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RecommendationSeparator joins array recommendations into one stored string.
const RecommendationSeparator = "\n\n"

// RequestPayload is the unit of work handed to the analysis worker.
type RequestPayload struct {
	Text    string `json:"text" validate:"required"`
	Context string `json:"context" validate:"required"`
}

// RequestFrame is published on the request topic.
type RequestFrame struct {
	CorrelationID int64          `json:"correlationId"`
	Payload       RequestPayload `json:"payload"`
}

// ResponseFrame is consumed from the response topic. Pointer fields
// distinguish "absent" from zero values.
type ResponseFrame struct {
	CorrelationID *int64          `json:"correlationId"`
	Result        *ResponseResult `json:"result"`
}

// ResponseResult carries the worker's output. Absent fields leave the
// corresponding record fields untouched.
type ResponseResult struct {
	Score           *int            `json:"score"`
	Summary         *string         `json:"summary"`
	MatchedSkills   []string        `json:"matchedSkills"`
	MissingSkills   []string        `json:"missingSkills"`
	Recommendations Recommendations `json:"recommendations"`
}

// Recommendations accepts either a JSON array of strings or a single string.
type Recommendations []string

func (r *Recommendations) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Recommendations{s}
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("recommendations must be a string or an array of strings: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	*r = Recommendations(items)
	return nil
}

// Joined returns the storage form of the recommendations.
func (r Recommendations) Joined() string {
	return strings.Join(r, RecommendationSeparator)
}

// DecodeResponseFrame parses a raw response frame and enforces the fields the
// correlation path depends on.
func DecodeResponseFrame(raw []byte) (*ResponseFrame, error) {
	var frame ResponseFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("decode response frame: %w", err)
	}
	if frame.CorrelationID == nil {
		return nil, fmt.Errorf("response frame missing correlationId")
	}
	if frame.Result == nil {
		return nil, fmt.Errorf("response frame %d missing result", *frame.CorrelationID)
	}
	return &frame, nil
}
