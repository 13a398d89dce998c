package middleware

import (
	"net"
	"net/http"

	"github.com/barbershop/internal/chat"
	"github.com/barbershop/internal/logger"
	"github.com/barbershop/internal/storage"
)

// RateLimitIP — грубая защита /api/* по IP до авторизации (отдельно от лимита отправки по сессии).
// 429 при превышении; ошибка хранилища запрос не блокирует.
func RateLimitIP(store storage.RateLimitStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := store.Allow(r.Context(), "ip:"+clientIP(r))
			if err != nil {
				logger.Errorf("ip rate limit: %v", err)
			} else if !ok {
				writeCodeError(w, http.StatusTooManyRequests, chat.CodeRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP — RemoteAddr без порта (chi RealIP уже подставил X-Real-Ip/X-Forwarded-For).
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
