package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client but fails safe by swallowing connectivity errors.
// A nil *Client is valid and behaves as an always-empty cache.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client. An empty addr disables caching.
func New(addr, password string, db int) *Client {
	if addr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// Ping reports whether redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil or unavailable: behave like cache miss
		return nil, nil
	}
	return res, nil
}

// Set stores value with TTL, ignoring redis errors.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	_ = c.client.Set(ctx, key, value, ttl).Err()
	return nil
}

// Delete removes a key, ignoring redis errors.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	_ = c.client.Del(ctx, key).Err()
	return nil
}

const versionSuffix = ":ver"

// ErrStale is returned by SetIfVersion when the key was invalidated after
// its version was read.
var ErrStale = errors.New("cache: stale fill")

// Version returns the invalidation version of key ("" if never invalidated).
// ok is false when redis is unavailable; callers should then skip filling.
func (c *Client) Version(ctx context.Context, key string) (version string, ok bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	v, err := c.client.Get(ctx, key+versionSuffix).Result()
	if err == redis.Nil {
		return "", true
	}
	if err != nil {
		return "", false
	}
	return v, true
}

// SetIfVersion stores value only while the version of key still equals
// version. The check and the write run under WATCH, so an Invalidate that
// lands in between makes the write fail with ErrStale.
func (c *Client) SetIfVersion(ctx context.Context, key, version string, value []byte, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	verKey := key + versionSuffix
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, verKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != version {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, ttl)
			return nil
		})
		return err
	}, verKey)
	if err == redis.TxFailedErr {
		return ErrStale
	}
	return err
}

// Invalidate bumps the version of key and removes it, so in-flight fills
// that read the old version are rejected. Redis errors are ignored.
func (c *Client) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, _ = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key+versionSuffix)
		pipe.Del(ctx, key)
		return nil
	})
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
