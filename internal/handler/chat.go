package handler

import (
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/barbershop/internal/chat"
	"github.com/barbershop/internal/logger"
	"github.com/barbershop/internal/middleware"
	"github.com/barbershop/internal/model"
	"github.com/barbershop/internal/service"
)

type ChatHandler struct {
	svc        *service.ChatService
	retryAfter time.Duration
}

// NewChatHandler создаёт обработчик чата; retryAfter уходит клиенту в Retry-After при 429.
func NewChatHandler(svc *service.ChatService, retryAfter time.Duration) *ChatHandler {
	return &ChatHandler{svc: svc, retryAfter: retryAfter}
}

type SendMessageRequest struct {
	Channel string `json:"channel" validate:"required,chat_channel"`
	Body    string `json:"body"`
}

type FetchQuery struct {
	Channel string `validate:"required,chat_channel"`
}

type sendResponse struct {
	OK      bool          `json:"ok"`
	Message model.Message `json:"message"`
}

type fetchResponse struct {
	OK         bool            `json:"ok"`
	Messages   []model.Message `json:"messages"`
	ServerTime int64           `json:"server_time"`
}

type conversationsResponse struct {
	OK            bool                      `json:"ok"`
	Conversations []model.ConversationEntry `json:"conversations"`
}

// actor возвращает участника из контекста, если его роль допускается в чат.
func actor(r *http.Request) (*model.Actor, error) {
	a := middleware.GetActor(r.Context())
	if a == nil {
		return nil, chat.NewError(chat.CodeUnauthorized, "no authenticated actor", nil)
	}
	if _, err := chat.Authorize(a.Role); err != nil {
		return nil, err
	}
	return a, nil
}

// decodeSend читает JSON {channel, body} или форму (channel, message|body).
func decodeSend(r *http.Request) (SendMessageRequest, error) {
	var req SendMessageRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(middleware.MaxRequestBody); err != nil && err != http.ErrNotMultipart {
			return req, chat.NewError(chat.CodeBadRequest, "invalid form", err)
		}
		req.Channel = r.FormValue("channel")
		req.Body = r.FormValue("message")
		if req.Body == "" {
			req.Body = r.FormValue("body")
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, chat.NewError(chat.CodeBadRequest, "invalid body", err)
		}
	}
	return req, nil
}

// Send — POST /api/chat/send.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeChatError(w, err, 0)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, middleware.MaxRequestBody)
	req, err := decodeSend(r)
	if err != nil {
		writeChatError(w, err, 0)
		return
	}
	if err := validateDTO(&req); err != nil {
		writeChatError(w, err, 0)
		return
	}
	msg, err := h.svc.Send(r.Context(), a, service.SendRequest{Channel: req.Channel, Body: req.Body})
	if err != nil {
		writeChatError(w, err, h.retryAfter)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{OK: true, Message: msg})
}

// Fetch — GET /api/chat/fetch?channel=…&since=…; некорректный since игнорируется.
func (h *ChatHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeChatError(w, err, 0)
		return
	}
	q := FetchQuery{Channel: r.URL.Query().Get("channel")}
	if err := validateDTO(&q); err != nil {
		writeChatError(w, err, 0)
		return
	}
	req := service.FetchRequest{Channel: q.Channel}
	if since, ok := queryInt64(r, "since"); ok {
		req.Since = &since
	}
	res, err := h.svc.Fetch(r.Context(), a, req)
	if err != nil {
		writeChatError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, fetchResponse{OK: true, Messages: res.Messages, ServerTime: res.ServerTime})
}

// Conversations — GET /api/chat/conversations?shop_id=N, только для владельца салона.
func (h *ChatHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeChatError(w, err, 0)
		return
	}
	if a.Role != string(model.RoleOwner) {
		writeError(w, http.StatusForbidden, chat.CodeForbidden)
		return
	}
	shopID, ok := queryInt64(r, "shop_id")
	if !ok || shopID <= 0 {
		writeError(w, http.StatusBadRequest, chat.CodeBadRequest)
		return
	}
	list, err := h.svc.Conversations(r.Context(), a, shopID)
	if err != nil {
		writeChatError(w, err, 0)
		return
	}
	if list == nil {
		list = []model.ConversationEntry{}
	}
	writeJSON(w, http.StatusOK, conversationsResponse{OK: true, Conversations: list})
}

// EndSession — POST /internal/sessions/{sessionId}/end, вызывается сервисом авторизации при выходе.
func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, chat.CodeBadRequest)
		return
	}
	if err := h.svc.EndSession(r.Context(), sessionID); err != nil {
		logger.Errorf("chat end session=%s: %v", middleware.MaskSessionID(sessionID), err)
		writeError(w, http.StatusServiceUnavailable, chat.CodeStorageUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
