package infra

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates and validates a go-redis client connection.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	// Validate connectivity at startup
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

const prefijoCacheAnalisis = "analisis:"

// CacheAnalisis keeps finished narratives per lot code so repeated reads
// never reach the database or the backend.
type CacheAnalisis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCacheAnalisis(rdb *redis.Client, ttl time.Duration) *CacheAnalisis {
	return &CacheAnalisis{rdb: rdb, ttl: ttl}
}

// Get returns the cached text; ok is false on a miss or when Redis is absent.
func (c *CacheAnalisis) Get(ctx context.Context, codigo string) (texto string, ok bool, err error) {
	if c == nil || c.rdb == nil {
		return "", false, nil
	}
	texto, err = c.rdb.Get(ctx, prefijoCacheAnalisis+codigo).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return texto, true, nil
}

func (c *CacheAnalisis) Set(ctx context.Context, codigo, texto string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, prefijoCacheAnalisis+codigo, texto, c.ttl).Err()
}

// Invalidate drops the cached text; an updated lot needs a fresh narrative.
func (c *CacheAnalisis) Invalidate(ctx context.Context, codigo string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, prefijoCacheAnalisis+codigo).Err()
}
