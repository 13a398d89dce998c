package storage

import (
	"context"
	"time"
)

// Значения по умолчанию для ограничения отправки сообщений в чат.
const (
	DefaultRateWindow = 10 * time.Second
	DefaultRateMax    = 5
)

// RateLimitStore — состояние ограничителя отправки, привязанное к сессии.
// Реализации: memory.Client (один процесс), redis.Client (несколько экземпляров API).
type RateLimitStore interface {
	// Allow отбрасывает отметки старше окна; если осталось >= max — отказ, иначе записывает текущую.
	Allow(ctx context.Context, sessionID string) (allowed bool, err error)
	// Reset удаляет состояние сессии (сессия завершена).
	Reset(ctx context.Context, sessionID string) error
	Close() error
}
