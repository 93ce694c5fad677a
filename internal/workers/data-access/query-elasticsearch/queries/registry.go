// internal/workers/data-access/query-elasticsearch/queries/registry.go
package queries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

var (
	ErrUnavailable  = errors.New("elasticsearch unavailable")
	ErrSearchFailed = errors.New("search query failed")
)

type QueryResult struct {
	Data        []map[string]interface{} `json:"data"`
	TotalHits   int64                    `json:"totalHits"`
	StatusStats map[string]int64         `json:"statusStats"`
	Took        int64                    `json:"took"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		StatusStats struct {
			Buckets []struct {
				Key      string `json:"key"`
				DocCount int64  `json:"doc_count"`
			} `json:"buckets"`
		} `json:"status_stats"`
	} `json:"aggregations"`
}

// Execute runs eq and decodes hits and the status aggregation.
func Execute(ctx context.Context, esClient *elasticsearch.Client, eq ElasticsearchQuery) (*QueryResult, error) {
	req, err := BuildQuery(eq)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Do(ctx, esClient)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, fmt.Errorf("%w: %s", ErrMissingIndex, eq.Index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	result := &QueryResult{
		Data:        make([]map[string]interface{}, 0, len(r.Hits.Hits)),
		TotalHits:   r.Hits.Total.Value,
		StatusStats: map[string]int64{},
		Took:        time.Since(start).Milliseconds(),
	}
	for _, hit := range r.Hits.Hits {
		result.Data = append(result.Data, hit.Source)
	}
	for _, b := range r.Aggregations.StatusStats.Buckets {
		result.StatusStats[b.Key] = b.DocCount
	}
	return result, nil
}

// DashboardParams are the admin dashboard filters.
type DashboardParams struct {
	Year     int    `json:"year,omitempty"`
	City     string `json:"city,omitempty"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
	Search   string `json:"search,omitempty"`
	From     int    `json:"from,omitempty"`
	Size     int    `json:"size,omitempty"`
}

// Filters converts p into the generic filter map.
func (p DashboardParams) Filters() map[string]interface{} {
	f := map[string]interface{}{}
	if p.Year > 0 {
		f["year"] = p.Year
	}
	if p.City != "" {
		f["city"] = p.City
	}
	if p.Category != "" {
		f["category"] = p.Category
	}
	if p.Status != "" {
		f["status"] = p.Status
	}
	if p.Search != "" {
		f["search"] = p.Search
	}
	return f
}

// Searcher runs the dashboard query for the admin HTTP endpoint.
type Searcher struct {
	client *elasticsearch.Client
	index  string
}

func NewSearcher(client *elasticsearch.Client, index string) *Searcher {
	return &Searcher{client: client, index: index}
}

func (s *Searcher) SearchApplications(ctx context.Context, p DashboardParams) (*QueryResult, error) {
	return Execute(ctx, s.client, ElasticsearchQuery{
		Index:      s.index,
		QueryType:  QueryApplicationDashboard,
		Filters:    p.Filters(),
		Pagination: Pagination{From: p.From, Size: p.Size},
	})
}
