package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/barbershop/internal/config"
	"github.com/barbershop/internal/middleware"
	"github.com/barbershop/internal/model"
	"github.com/barbershop/internal/repository"
	"github.com/barbershop/internal/service"
	"github.com/barbershop/internal/storage/memory"
)

// fakeAuth пускает запрос с X-Session-Id как покупателя и отклоняет остальные.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := r.Header.Get("X-Session-Id")
		if sid == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		a := &model.Actor{UserID: "u-" + sid, SessionID: sid, Role: "customer"}
		next.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), a)))
	})
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		RateLimitWindow: 10 * time.Second,
		RateLimitMax:    5,
		PollInterval:    3 * time.Second,
		InternalSecret:  "s3cret",
	}
	svc := service.NewChatService(
		repository.NewMessageRepository(dir),
		repository.NewConversationIndexRepository(dir),
		memory.New(cfg.RateLimitWindow, cfg.RateLimitMax),
	)
	return newRouter(routerDeps{cfg: cfg, svc: svc, ipLimiter: memory.New(time.Minute, 100), auth: fakeAuth})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	h := testRouter(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/chat/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"poll_interval_ms":3000`)
}

func TestRouter_ChatRoutesRequireAuth(t *testing.T) {
	h := testRouter(t)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/chat/fetch?channel=bk_abcdef", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/send", strings.NewReader(`{"channel":"bk_abcdef","body":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-Id", "s1")
	rec = serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/chat/fetch?channel=bk_abcdef", nil)
	req.Header.Set("X-Session-Id", "s2")
	rec = serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"body":"hi"`)
}

func TestRouter_InternalRoutes(t *testing.T) {
	h := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	require.Equal(t, http.StatusForbidden, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "chat_http_requests_total")

	req = httptest.NewRequest(http.MethodPost, "/internal/sessions/s1/end", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("X-Internal-Secret", "s3cret")
	require.Equal(t, http.StatusOK, serve(h, req).Code)
}
