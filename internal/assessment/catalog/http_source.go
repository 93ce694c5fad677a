// internal/assessment/catalog/http_source.go
package catalog

import (
	"context"
	"fmt"
	"time"

	commonhttp "agritour-certification/internal/common/http"
)

// HTTPSource reads template rows from a PostgREST-style endpoint.
type HTTPSource struct {
	client *commonhttp.Client
	url    string
}

// NewHTTPSource builds a source for url. When apiKey is set it is sent both as
// the apikey header and as a bearer token, which is what PostgREST gateways expect.
func NewHTTPSource(url, apiKey string, timeout time.Duration) *HTTPSource {
	client := commonhttp.NewClient(timeout)
	if apiKey != "" {
		client = client.WithHeader("apikey", apiKey).WithHeader("Authorization", "Bearer "+apiKey)
	}
	return &HTTPSource{client: client, url: url}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) Fetch(ctx context.Context) (Catalog, error) {
	var rows []Row
	if err := s.client.GetJSON(ctx, s.url, &rows); err != nil {
		return nil, fmt.Errorf("fetch template rows: %w", err)
	}
	return GroupRows(rows), nil
}
