// internal/workers/data-access/query-elasticsearch/models.go
package queryelasticsearch

import "agritour-certification/internal/workers/data-access/query-elasticsearch/queries"

type Input struct {
	IndexName  string                 `json:"indexName,omitempty"`
	QueryType  string                 `json:"queryType"`
	Filters    map[string]interface{} `json:"filters"`
	Pagination queries.Pagination     `json:"pagination"`
}

type Output struct {
	Data        []map[string]interface{} `json:"data"`
	TotalHits   int64                    `json:"totalHits"`
	StatusStats map[string]int64         `json:"statusStats"`
	Took        int64                    `json:"took"` // milliseconds
}
