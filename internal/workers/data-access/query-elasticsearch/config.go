// internal/workers/data-access/query-elasticsearch/config.go
package queryelasticsearch

import "time"

type Config struct {
	Timeout time.Duration
	// Index is searched when a job does not name one.
	Index string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Index:   "applications",
	}
}
