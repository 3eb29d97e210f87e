package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plotvista/plotvista-backend/pkg/config"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
)

const keyPrefix = "pv"

// cmdable is the subset of redis commands the client depends on. Kept
// narrow so tests can swap in a fake without a running server.
type cmdable interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Client wraps a redis connection with namespaced keys and typed errors.
type Client struct {
	rdb   cmdable
	close func() error
	logg  *logger.Logger
}

// New builds a redis client from configuration and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid redis url")
	}
	if cfg.Address != "" {
		opts.Addr = cfg.Address
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	rdb := redis.NewClient(opts)

	client := &Client{
		rdb:   rdb,
		close: rdb.Close,
		logg:  logg,
	}
	if err := client.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return client, nil
}

// Key builds a namespaced redis key from the given parts.
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

// IdempotencyKey builds the key guarding one idempotent request replay.
func IdempotencyKey(userID, method, path, token string) string {
	return Key("idem", userID, method, path, token)
}

// WebhookEventKey builds the dedup key for a delivered webhook event id.
func WebhookEventKey(source, eventID string) string {
	return Key("webhook", source, eventID)
}

// Set stores a value with a TTL.
func (c *Client) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis set failed")
	}
	return nil
}

// SetNX stores a value only if the key does not exist. Returns true when the
// value was stored by this call.
func (c *Client) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis setnx failed")
	}
	return ok, nil
}

// Get fetches a value. The second return is false when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis get failed")
	}
	return val, true, nil
}

// Del removes the given keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis del failed")
	}
	return nil
}

// IncrWithTTL increments a counter, setting the TTL when the counter is new.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis incr failed")
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
				"key":   key,
				"error": err.Error(),
			}), "failed to set counter ttl")
		}
	}
	return count, nil
}

// FixedWindowAllow applies a fixed-window rate limit. It returns whether the
// call is allowed and how many calls the window has seen including this one.
func (c *Client) FixedWindowAllow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	count, err := c.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

// Ping verifies connectivity to the redis server.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("redis ping failed: %v", err))
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}
