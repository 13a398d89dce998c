package memory

import (
	"context"
	"sync"
	"time"

	"github.com/barbershop/internal/storage"
)

// Client хранит отметки отправок в памяти процесса: map сессия → времена в окне.
type Client struct {
	mu     sync.Mutex
	limit  map[string][]time.Time
	window time.Duration
	max    int
	now    func() time.Time
}

// Option настраивает Client.
type Option func(*Client)

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New создаёт хранилище с окном window и лимитом max; нулевые значения — значения по умолчанию.
func New(window time.Duration, max int, opts ...Option) *Client {
	if window <= 0 {
		window = storage.DefaultRateWindow
	}
	if max <= 0 {
		max = storage.DefaultRateMax
	}
	c := &Client{
		limit:  make(map[string][]time.Time),
		window: window,
		max:    max,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Close() error { return nil }

func (c *Client) Allow(ctx context.Context, sessionID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	cut := now.Add(-c.window)
	slice := c.limit[sessionID]
	i := 0
	for _, t := range slice {
		if t.After(cut) {
			slice[i] = t
			i++
		}
	}
	slice = slice[:i]
	if len(slice) >= c.max {
		c.limit[sessionID] = slice
		return false, nil
	}
	c.limit[sessionID] = append(slice, now)
	return true, nil
}

func (c *Client) Reset(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.limit, sessionID)
	return nil
}

// Prune удаляет сессии, у которых все отметки вышли из окна; возвращает число удалённых.
func (c *Client) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cut := c.now().Add(-c.window)
	n := 0
	for k, slice := range c.limit {
		if len(slice) == 0 || !slice[len(slice)-1].After(cut) {
			delete(c.limit, k)
			n++
		}
	}
	return n
}

// RunJanitor вызывает Prune каждые every до отмены ctx.
func (c *Client) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Prune()
		}
	}
}

// Sessions возвращает число сессий с состоянием (для тестов и отладки).
func (c *Client) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limit)
}

var _ storage.RateLimitStore = (*Client)(nil)
