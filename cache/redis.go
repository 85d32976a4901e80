package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Redis is a Backend storing entries in Redis. TTL uses native Redis key
// expiration, so no sweeper is needed. An optional key prefix namespaces
// multiple caches on the same instance; Clear removes only prefixed keys.
// The caller owns the redis.Client lifecycle.
type Redis struct {
	client *redis.Client
	cfg    config
}

var _ Backend = (*Redis)(nil)

// NewRedis returns a Backend backed by the given Redis client.
func NewRedis(client *redis.Client, opts ...Option) *Redis {
	return &Redis{client: client, cfg: applyOptions(opts)}
}

func (c *Redis) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *Redis) prefixKey(key string) string {
	if c.cfg.prefix == "" {
		return key
	}
	return c.cfg.prefix + ":" + key
}

func (c *Redis) Get(ctx context.Context, key string) (bool, []byte, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	data, err := c.client.Get(qctx, c.prefixKey(key)).Bytes()
	if err == redis.Nil {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, MarkBackend(errors.Wrap(err, "redis get"))
	}
	return true, data, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if ttl < 0 {
		ttl = 0 // redis: 0 = no expiration
	}
	if err := c.client.Set(qctx, c.prefixKey(key), value, ttl).Err(); err != nil {
		return MarkBackend(errors.Wrap(err, "redis set"))
	}
	return nil
}

func (c *Redis) Remove(ctx context.Context, key string) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if err := c.client.Del(qctx, c.prefixKey(key)).Err(); err != nil {
		return MarkBackend(errors.Wrap(err, "redis del"))
	}
	return nil
}

func (c *Redis) Contains(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.Exists(qctx, c.prefixKey(key)).Result()
	if err != nil {
		return false, MarkBackend(errors.Wrap(err, "redis exists"))
	}
	return n > 0, nil
}

// Clear removes every key under the configured prefix using SCAN. With no
// prefix configured it flushes the whole database.
func (c *Redis) Clear(ctx context.Context) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	if c.cfg.prefix == "" {
		if err := c.client.FlushDB(qctx).Err(); err != nil {
			return MarkBackend(errors.Wrap(err, "redis flushdb"))
		}
		return nil
	}

	var cursor uint64
	pattern := c.cfg.prefix + ":*"
	for {
		keys, next, err := c.client.Scan(qctx, cursor, pattern, 100).Result()
		if err != nil {
			return MarkBackend(errors.Wrap(err, "redis scan"))
		}
		if len(keys) > 0 {
			if err := c.client.Del(qctx, keys...).Err(); err != nil {
				return MarkBackend(errors.Wrap(err, "redis del"))
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close is a no-op; the caller owns the redis.Client lifecycle.
func (c *Redis) Close() error {
	return nil
}
