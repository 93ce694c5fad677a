// internal/assessment/draft/store.go
package draft

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "certification_draft:"

// Key is the single draft slot of an applicant.
func Key(applicantID string) string {
	return keyPrefix + applicantID
}

// Store is a persistence slot for serialized drafts. Writes are last-writer-wins.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisStore keeps drafts for ttl; zero keeps them until deleted.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	return s.rdb.Set(ctx, key, data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
