package handler

import (
	"net/http"

	"github.com/barbershop/internal/config"
	"github.com/barbershop/internal/service"
)

// ConfigHandler отдаёт публичные параметры чата для клиента (интервал опроса, лимиты).
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

type chatConfigResponse struct {
	OK                 bool  `json:"ok"`
	PollIntervalMS     int64 `json:"poll_interval_ms"`
	RateLimitWindowSec int64 `json:"rate_limit_window_sec"`
	RateLimitMax       int   `json:"rate_limit_max"`
	MaxMessageLength   int   `json:"max_message_length"`
}

// GetChatConfig — GET /api/chat/config (без авторизации).
func (h *ConfigHandler) GetChatConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chatConfigResponse{
		OK:                 true,
		PollIntervalMS:     h.cfg.PollInterval.Milliseconds(),
		RateLimitWindowSec: int64(h.cfg.RateLimitWindow.Seconds()),
		RateLimitMax:       h.cfg.RateLimitMax,
		MaxMessageLength:   service.MaxBodyRunes,
	})
}
