package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// RedisCache stores bars in Redis under KeyPrefix.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache connects to addr and pings it once.
func NewRedisCache(ctx context.Context, addr string, password string, db int) (*RedisCache, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to connect to redis at %s", addr)
	}

	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client. The caller keeps ownership of the client.
func NewRedisCacheFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to read %s", key)
	}

	return value, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to write %s", key)
	}

	return nil
}

// Reset implements Cache. Only keys under KeyPrefix are removed.
func (r *RedisCache) Reset(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()

	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheFailed, "failed to scan cached bars", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheFailed, "failed to delete cached bars", err)
	}

	return nil
}

// Close closes the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
