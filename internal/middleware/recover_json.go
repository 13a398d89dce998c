package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/barbershop/internal/chat"
	"github.com/barbershop/internal/logger"
)

// RecoverJSON при панике в handler логирует её и отдаёт клиенту JSON 500 (если ответ ещё не отправлен).
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrap := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.Errorf("panic recovered %s %s: %v", r.Method, r.URL.Path, err)
				if wrap.Status() == 0 {
					writeCodeError(w, http.StatusInternalServerError, chat.CodeInternal)
				}
			}
		}()
		next.ServeHTTP(wrap, r)
	})
}
