package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/barbershop/internal/logger"
	"github.com/barbershop/internal/metrics"
)

// RequestLog логирует каждый HTTP-запрос (method, path, status, длительность) и пишет метрики.
// Путь в метриках — шаблон маршрута chi, чтобы id каналов не раздували кардинальность.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, slot := withActorSlot(r.Context())
		r = r.WithContext(ctx)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			logger.Z().Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("latency", elapsed).
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("user_id", slotUserID(slot)).
				Msg("request completed")
		}()
		next.ServeHTTP(ww, r)
	})
}

func slotUserID(s *actorSlot) string {
	if s.actor == nil {
		return ""
	}
	return s.actor.UserID
}
