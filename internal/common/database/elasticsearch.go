// internal/common/database/elasticsearch.go
package database

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"agritour-certification/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
)

// ElasticsearchClient wraps the Elasticsearch client
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// NewElasticsearch creates a new Elasticsearch client
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}

	esCfg := elasticsearch.Config{Addresses: addresses}
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
func (c *ElasticsearchClient) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// ApplicationIndexMapping is the mapping of the admin dashboard index.
var ApplicationIndexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"applicationId": map[string]interface{}{"type": "keyword"},
			"applicantId":   map[string]interface{}{"type": "keyword"},
			"farmName":      map[string]interface{}{"type": "text", "fields": map[string]interface{}{"raw": map[string]interface{}{"type": "keyword"}}},
			"companyName":   map[string]interface{}{"type": "text"},
			"ownerName":     map[string]interface{}{"type": "text"},
			"city":          map[string]interface{}{"type": "keyword"},
			"category":      map[string]interface{}{"type": "keyword"},
			"addOns":        map[string]interface{}{"type": "keyword"},
			"status":        map[string]interface{}{"type": "keyword"},
			"priority":      map[string]interface{}{"type": "keyword"},
			"readiness":     map[string]interface{}{"type": "keyword"},
			"year":          map[string]interface{}{"type": "integer"},
			"totalScore":    map[string]interface{}{"type": "float"},
			"submittedAt":   map[string]interface{}{"type": "date"},
		},
	},
}

// EnsureIndex creates index with the given body when it does not exist yet.
func EnsureIndex(ctx context.Context, es *elasticsearch.Client, index string, body map[string]interface{}) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, es)
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{Index: index, Body: bytes.NewReader(payload)}.Do(ctx, es)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", index, res.String())
	}
	return nil
}

// IndexDocument upserts doc under id and refreshes so the dashboard sees it immediately.
func IndexDocument(ctx context.Context, es *elasticsearch.Client, index, id string, doc interface{}) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	res, err := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "wait_for",
	}.Do(ctx, es)
	if err != nil {
		return fmt.Errorf("index document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document %s: %s", id, res.String())
	}
	return nil
}
