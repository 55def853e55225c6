// internal/common/database/elasticsearch.go
package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"credit-marketplace/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client used for the bank registry index.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// NewElasticsearch creates a new Elasticsearch client
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	esCfg := elasticsearch.Config{
		Addresses: addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es}, nil
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

// bankIndexMapping keeps roles and status as keywords so discovery can filter
// on them with term queries.
var bankIndexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":              map[string]interface{}{"type": "keyword"},
			"displayName":     map[string]interface{}{"type": "text"},
			"roles":           map[string]interface{}{"type": "keyword"},
			"status":          map[string]interface{}{"type": "keyword"},
			"endpoint":        map[string]interface{}{"type": "keyword", "index": false},
			"baseRate":        map[string]interface{}{"type": "double"},
			"minInterestRate": map[string]interface{}{"type": "double"},
			"maxLoanAmount":   map[string]interface{}{"type": "double"},
			"reputationScore": map[string]interface{}{"type": "integer"},
			"riskAppetite":    map[string]interface{}{"type": "keyword"},
			"esgMultiplier":   map[string]interface{}{"type": "double"},
			"tags":            map[string]interface{}{"type": "keyword"},
		},
	},
}

// EnsureBankIndex creates the bank registry index with its mapping when it
// does not exist yet. It reports whether the index was created.
func (c *ElasticsearchClient) EnsureBankIndex(ctx context.Context, index string) (bool, error) {
	res, err := c.Client.Indices.Exists([]string{index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", index, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return false, nil
	case http.StatusNotFound:
	default:
		return false, fmt.Errorf("check index %s: %s", index, res.Status())
	}

	body, err := json.Marshal(bankIndexMapping)
	if err != nil {
		return false, fmt.Errorf("marshal index mapping: %w", err)
	}
	res, err = c.Client.Indices.Create(index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return false, fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, fmt.Errorf("create index %s: %s", index, res.String())
	}
	return true, nil
}
