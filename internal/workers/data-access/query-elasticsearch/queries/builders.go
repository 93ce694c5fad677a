// internal/workers/data-access/query-elasticsearch/queries/builders.go
package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	QueryApplicationDashboard    = "application_dashboard"
	QueryApplicationsByApplicant = "applications_by_applicant"

	DefaultSize = 20
	MaxSize     = 100
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
)

// searchFields are matched by the free-text dashboard search. The farm name weighs most.
var searchFields = []string{"farmName^3", "companyName^2", "ownerName"}

// ElasticsearchQuery is one search against the applications index.
type ElasticsearchQuery struct {
	Index      string
	QueryType  string
	Filters    map[string]interface{}
	Pagination Pagination
}

type Pagination struct {
	From int `json:"from"`
	Size int `json:"size"`
}

// Normalize clamps size to (0, MaxSize] with DefaultSize for anything unset, and
// from to a non-negative offset.
func (p Pagination) Normalize() Pagination {
	if p.Size < 1 {
		p.Size = DefaultSize
	}
	if p.Size > MaxSize {
		p.Size = MaxSize
	}
	if p.From < 0 {
		p.From = 0
	}
	return p
}

// BuildQuery builds the search request for eq.
func BuildQuery(eq ElasticsearchQuery) (*esapi.SearchRequest, error) {
	if eq.Index == "" {
		return nil, ErrMissingIndex
	}

	var body map[string]interface{}
	switch eq.QueryType {
	case QueryApplicationDashboard:
		body = buildDashboardQuery(eq.Filters)
	case QueryApplicationsByApplicant:
		applicantID, _ := eq.Filters["applicantId"].(string)
		if applicantID == "" {
			return nil, fmt.Errorf("%w: applicantId filter is required", ErrUnknownQueryType)
		}
		body = map[string]interface{}{
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"filter": []interface{}{term("applicantId", applicantID)},
				},
			},
			"sort": []interface{}{map[string]interface{}{"year": "desc"}},
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, eq.QueryType)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	page := eq.Pagination.Normalize()
	return &esapi.SearchRequest{
		Index:          []string{eq.Index},
		Body:           bytes.NewReader(payload),
		From:           &page.From,
		Size:           &page.Size,
		TrackTotalHits: true,
	}, nil
}

// buildDashboardQuery filters on year, city, category and status, matches the
// search text against the name fields and aggregates the status counts.
func buildDashboardQuery(filters map[string]interface{}) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if search, ok := filters["search"].(string); ok && strings.TrimSpace(search) != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  strings.TrimSpace(search),
				"fields": searchFields,
				"type":   "best_fields",
			},
		})
	}

	switch year := filters["year"].(type) {
	case float64:
		if year > 0 {
			filter = append(filter, term("year", int(year)))
		}
	case int:
		if year > 0 {
			filter = append(filter, term("year", year))
		}
	}

	for _, field := range []string{"city", "category", "status"} {
		if v, ok := filters[field].(string); ok && v != "" && v != "all" {
			filter = append(filter, term(field, v))
		}
	}

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(must) > 0 || len(filter) > 0 {
		boolQuery := map[string]interface{}{}
		if len(must) > 0 {
			boolQuery["must"] = must
		}
		if len(filter) > 0 {
			boolQuery["filter"] = filter
		}
		query = map[string]interface{}{"bool": boolQuery}
	}

	return map[string]interface{}{
		"query": query,
		"sort": []interface{}{
			map[string]interface{}{"submittedAt": "desc"},
		},
		"aggs": map[string]interface{}{
			"status_stats": map[string]interface{}{
				"terms": map[string]interface{}{"field": "status", "size": 10},
			},
		},
	}
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}
