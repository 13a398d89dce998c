package startup

import (
	"context"
	"time"

	"github.com/barbershop/internal/logger"
	"github.com/barbershop/internal/storage"
	"github.com/barbershop/internal/storage/memory"
	redisstorage "github.com/barbershop/internal/storage/redis"
)

// RateLimitStore выбирает хранилище ограничителя: пустой redisURL — память процесса,
// иначе Redis (общий для всех реплик) с повторами подключения.
func RateLimitStore(ctx context.Context, redisURL string, window time.Duration, max int, maxWait time.Duration) (storage.RateLimitStore, error) {
	if redisURL == "" {
		logger.Info("rate limiter: in-memory store")
		return memory.New(window, max), nil
	}
	var client *redisstorage.Client
	err := withRetry(ctx, maxWait, "redis connect", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		c, err := redisstorage.New(cctx, redisURL, window, max)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("rate limiter: redis store")
	return client, nil
}
