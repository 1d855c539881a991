// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Document is the indexed form of a completed analysis.
type Document struct {
	ID             int64    `json:"id"`
	Status         string   `json:"status"`
	Score          int      `json:"score"`
	IsSuitable     bool     `json:"isSuitable"`
	Summary        string   `json:"summary"`
	MatchedSkills  []string `json:"matchedSkills"`
	MissingSkills  []string `json:"missingSkills"`
	Recommendation string   `json:"recommendation"`
	JobDescription string   `json:"jobDescription"`
	CreatedAt      string   `json:"createdAt"`
}

// IndexMapping is the mapping the history index is created with. Skills are
// indexed both as text, for multi_match, and as keywords for exact filters.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "long"},
      "status":         {"type": "keyword"},
      "score":          {"type": "integer"},
      "isSuitable":     {"type": "boolean"},
      "summary":        {"type": "text"},
      "matchedSkills":  {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "missingSkills":  {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "recommendation": {"type": "text"},
      "jobDescription": {"type": "text"},
      "createdAt":      {"type": "date"}
    }
  }
}`

// Indexer mirrors completed analyses into Elasticsearch for history search.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.With(map[string]interface{}{"component": "search-indexer"}),
	}
}

// OnCompleted indexes a under its correlation id, so redelivered responses
// overwrite the same document.
func (i *Indexer) OnCompleted(ctx context.Context, a *models.Analysis, _ bool) error {
	result := models.CompletedResult(a)
	doc := Document{
		ID:             a.ID,
		Status:         string(a.Status),
		Score:          result.SuitabilityScore,
		IsSuitable:     result.IsSuitable,
		Summary:        a.Summary,
		MatchedSkills:  result.KeyStrengths,
		MissingSkills:  result.KeyGaps,
		Recommendation: result.Recommendation,
		JobDescription: a.JobDescription,
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal search document: %w", err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(strconv.FormatInt(a.ID, 10)),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a full-text query over indexed analyses, best match first.
func (i *Indexer) Search(ctx context.Context, text string, from, size int) ([]Document, int64, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"matchedSkills^3", "missingSkills^2", "summary", "recommendation", "jobDescription"},
				"type":   "best_fields",
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, 0, err
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &size,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, 0, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("elasticsearch search error: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, parsed.Hits.Total.Value, nil
}
