// Package cache wraps the shared Redis instance used for pipeline state
// blobs and cross-process locks. All coordination between workers goes
// through this client; there is no in-process fallback.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes a lock key only when its value matches the caller's
// token. Run server-side so check and delete are atomic.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Client is a thin wrapper over go-redis for blob storage and locking.
type Client struct {
	rdb    redis.UniversalClient
	logger *slog.Logger
}

// Config configures a cache client.
type Config struct {
	// URL is a redis:// connection string.
	URL string

	// Logger for connection events. Defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a cache client from a redis URL.
func New(cfg Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		rdb:    redis.NewClient(opt),
		logger: logger.With("component", "cache"),
	}, nil
}

// NewFromClient wraps an existing redis client. Used by tests to point at
// miniredis.
func NewFromClient(rdb redis.UniversalClient, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{rdb: rdb, logger: logger.With("component", "cache")}
}

// WaitReady pings the server until it responds or the timeout elapses.
// Called once at worker startup; a worker without Redis cannot coordinate.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	return retry.Do(
		func() error {
			return c.rdb.Ping(ctx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(uint(timeout.Seconds())),
		retry.Delay(1*time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("waiting for redis", "attempt", n+1, "error", err)
		}),
	)
}

// GetBytes fetches a blob. A missing key returns (nil, nil), not an error.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return data, nil
}

// SetBytes writes a blob. A zero ttl means no expiry.
func (c *Client) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// AcquireLock atomically creates key=token with the given ttl if the key is
// absent. Returns whether this call obtained ownership. Expiry is enforced
// by the Redis server's clock, not the caller's.
func (c *Client) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache lock %s: %w", key, err)
	}
	return ok, nil
}

// ReleaseLock deletes key only if it still holds token. Releasing a lock
// that expired and was re-acquired by another worker is a silent no-op.
func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	if err := c.rdb.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("cache unlock %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
