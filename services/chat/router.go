package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/barbershop/internal/config"
	"github.com/barbershop/internal/handler"
	"github.com/barbershop/internal/middleware"
	"github.com/barbershop/internal/service"
	"github.com/barbershop/internal/storage"
)

type routerDeps struct {
	cfg       *config.Config
	svc       *service.ChatService
	ipLimiter storage.RateLimitStore
	auth      func(http.Handler) http.Handler
}

func newRouter(d routerDeps) http.Handler {
	chatH := handler.NewChatHandler(d.svc, d.cfg.RateLimitWindow)
	configH := handler.NewConfigHandler(d.cfg)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.RequestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Session-Id", "X-Timestamp", "X-Signature"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.InternalOnly(d.cfg.InternalSecret))
		r.Handle("/metrics", promhttp.Handler())
		r.Post("/internal/sessions/{sessionId}/end", chatH.EndSession)
	})

	r.Route("/api/chat", func(r chi.Router) {
		if d.ipLimiter != nil {
			r.Use(middleware.RateLimitIP(d.ipLimiter))
		}
		r.Get("/config", configH.GetChatConfig)
		r.Group(func(r chi.Router) {
			r.Use(d.auth)
			r.Post("/send", chatH.Send)
			r.Get("/fetch", chatH.Fetch)
			r.Get("/conversations", chatH.Conversations)
		})
	})
	return r
}
