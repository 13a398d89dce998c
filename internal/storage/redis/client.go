package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/barbershop/internal/storage"
)

const keyPrefix = "chat_rate:"

// Скользящее окно на sorted set: score — время отправки в мс. Всё в одном скрипте, чтобы
// параллельные запросы одной сессии не проскочили между проверкой и записью.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local n = redis.call('ZCARD', key)
if n >= max then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

type Client struct {
	cli    *redis.Client
	window time.Duration
	max    int
	now    func() time.Time
}

func New(ctx context.Context, url string, window time.Duration, max int) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewFromClient(cli, window, max), nil
}

// NewFromClient оборачивает готовый клиент go-redis.
func NewFromClient(cli *redis.Client, window time.Duration, max int) *Client {
	if window <= 0 {
		window = storage.DefaultRateWindow
	}
	if max <= 0 {
		max = storage.DefaultRateMax
	}
	return &Client{cli: cli, window: window, max: max, now: time.Now}
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// Allow проверяет chat_rate:{session}: макс. max отправок за окно. При превышении — HTTP 429.
func (c *Client) Allow(ctx context.Context, sessionID string) (bool, error) {
	now := c.now().UnixMilli()
	res, err := allowScript.Run(ctx, c.cli, []string{keyPrefix + sessionID},
		now, c.window.Milliseconds(), c.max, ulid.Make().String(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return res == 1, nil
}

func (c *Client) Reset(ctx context.Context, sessionID string) error {
	return c.cli.Del(ctx, keyPrefix+sessionID).Err()
}

var _ storage.RateLimitStore = (*Client)(nil)
