package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barbershop/internal/logger"
)

var (
	retryBackoff    = 2 * time.Second
	retryMaxBackoff = 30 * time.Second
)

// withRetry повторяет fn с растущей паузой, пока не истечёт maxWait или ctx.
func withRetry(ctx context.Context, maxWait time.Duration, what string, fn func(context.Context) error) error {
	deadline := time.Now().Add(maxWait)
	backoff := retryBackoff
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s (gave up after %v): %w", what, maxWait, err)
		}
		logger.Errorf("%s failed, retry in %v: %v", what, backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < retryMaxBackoff {
			backoff *= 2
		}
	}
}

// ConnectDB подключается к Postgres с повторами (connect + ping) в пределах maxWait.
func ConnectDB(ctx context.Context, databaseURL string, maxConns int, maxWait time.Duration) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	var pool *pgxpool.Pool
	err = withRetry(ctx, maxWait, "db connect", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		p, err := pgxpool.NewWithConfig(cctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(cctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}
