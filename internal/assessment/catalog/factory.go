// internal/assessment/catalog/factory.go
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"agritour-certification/internal/common/config"
	"agritour-certification/internal/common/logger"
)

const remoteTimeout = 10 * time.Second

// NewSource builds the configured catalog source. Remote sources are cached in
// Redis when rdb is given; the built-in table never is.
func NewSource(cfg config.AssessmentConfig, db *sql.DB, rdb redis.Cmdable, log logger.Logger) (Source, error) {
	var src Source
	switch cfg.CatalogSource {
	case "", "static":
		return NewStaticSource(), nil
	case "http":
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("assessment.remote_url is required for the http catalog source")
		}
		src = NewHTTPSource(cfg.RemoteURL, cfg.RemoteKey, remoteTimeout)
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("the postgres catalog source needs a database")
		}
		src = NewPostgresSource(db)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}

	if rdb != nil && cfg.CacheTTL > 0 {
		src = NewCachedSource(src, rdb, time.Duration(cfg.CacheTTL)*time.Second, log)
	}
	return src, nil
}
