package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CacheStore backs the cache-aside accessor with redis SET-with-TTL / GET.
// Expiry is enforced server-side.
type CacheStore struct {
	rdb goredis.Cmdable
}

func NewCacheStore(rdb goredis.Cmdable) *CacheStore {
	return &CacheStore{rdb: rdb}
}

// Get returns the cached bytes and whether the key was present.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get failed: %w", err)
	}
	return data, true, nil
}

// Set stores value under key with the given TTL.
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}
