// internal/assessment/catalog/cached.go
package catalog

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"agritour-certification/internal/common/database"
	"agritour-certification/internal/common/logger"
)

const cacheKeyPrefix = "assessment_catalog:"

// CachedSource keeps the grouped catalog in Redis. Concurrent misses share one
// fetch; failures and empty catalogs are never cached.
type CachedSource struct {
	inner  Source
	rdb    redis.Cmdable
	ttl    time.Duration
	group  singleflight.Group
	logger logger.Logger
}

func NewCachedSource(inner Source, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedSource {
	return &CachedSource{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "catalog-cache", "source": inner.Name()}),
	}
}

func (c *CachedSource) Name() string { return c.inner.Name() }

func (c *CachedSource) key() string { return cacheKeyPrefix + c.inner.Name() }

func (c *CachedSource) Fetch(ctx context.Context) (Catalog, error) {
	var cached Catalog
	found, err := database.GetJSON(ctx, c.rdb, c.key(), &cached)
	if err != nil {
		// A broken cache degrades to a direct fetch.
		c.logger.Warn("Catalog cache read failed", map[string]interface{}{"error": err.Error()})
	}
	if found && cached.QuestionCount() > 0 {
		return cached, nil
	}

	v, err, _ := c.group.Do(c.key(), func() (interface{}, error) {
		cat, err := c.inner.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		if cat.QuestionCount() > 0 {
			if err := database.SetJSON(ctx, c.rdb, c.key(), cat, c.ttl); err != nil {
				c.logger.Warn("Catalog cache write failed", map[string]interface{}{"error": err.Error()})
			}
		}
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Catalog), nil
}

// Invalidate drops the cached copy so the next fetch goes to the source.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key()).Err()
}
