// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"resume-analyzer/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the Elasticsearch client used for the history index.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
	index  string
}

// NewElasticsearch creates a client bound to the configured history index.
func NewElasticsearch(cfg config.SearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es, index: cfg.Index}, nil
}

// Index returns the history index name.
func (c *ElasticsearchClient) Index() string {
	return c.index
}

// Ping tests the Elasticsearch connection
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// EnsureIndex creates the history index with mapping unless it already exists.
// A concurrent creator winning the race is not an error.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context, mapping string) error {
	exists, err := c.Client.Indices.Exists(
		[]string{c.index},
		c.Client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index lookup failed: %w", err)
	}
	exists.Body.Close()

	switch exists.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("elasticsearch index lookup error: %s", exists.Status())
	}

	res, err := c.Client.Indices.Create(
		c.index,
		c.Client.Indices.Create.WithBody(strings.NewReader(mapping)),
		c.Client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index create failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var body struct {
			Error struct {
				Type string `json:"type"`
			} `json:"error"`
		}
		if json.NewDecoder(res.Body).Decode(&body) == nil && body.Error.Type == "resource_already_exists_exception" {
			return nil
		}
		return fmt.Errorf("elasticsearch index create error: %s", res.Status())
	}
	return nil
}

// Health reports an error when the history index is red or unreachable.
// Yellow is accepted; single-node clusters never allocate replicas.
func (c *ElasticsearchClient) Health(ctx context.Context) error {
	res, err := c.Client.Cluster.Health(
		c.Client.Cluster.Health.WithIndex(c.index),
		c.Client.Cluster.Health.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch health failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch health error: %s", res.Status())
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("elasticsearch health decode failed: %w", err)
	}
	if body.Status == "red" {
		return fmt.Errorf("elasticsearch index %s is red", c.index)
	}
	return nil
}
