package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/barbershop/internal/chat"
	"github.com/barbershop/internal/logger"
	"github.com/barbershop/internal/model"
)

// MaxRequestBody — транспортный предел тела запроса к API чата. Текст сообщения длиннее
// 800 символов сервис обрезает сам; этот предел только отсекает заведомо мусорные запросы.
const MaxRequestBody = 1 << 20

// AuthServiceValidate вызывает сервис авторизации маркетплейса для проверки сессии
// (X-Session-Id, X-Timestamp, X-Signature) и кладёт участника (id, роль, имя) в контекст.
func AuthServiceValidate(authServiceURL string, client *http.Client) func(http.Handler) http.Handler {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	validateURL := strings.TrimSuffix(authServiceURL, "/") + "/internal/validate"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := headerOrQuery(r, "X-Session-Id", "session_id")
			timestamp := headerOrQuery(r, "X-Timestamp", "timestamp")
			signature := headerOrQuery(r, "X-Signature", "signature")
			if sessionID == "" || timestamp == "" || signature == "" {
				writeCodeError(w, http.StatusUnauthorized, chat.CodeUnauthorized)
				return
			}
			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, MaxRequestBody+1))
				if err != nil {
					writeCodeError(w, http.StatusBadRequest, chat.CodeBadRequest)
					return
				}
				if len(body) > MaxRequestBody {
					writeCodeError(w, http.StatusRequestEntityTooLarge, chat.CodeBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}
			bodyForSignature := string(body)
			// Клиент подписывает multipart-запросы с пустым телом.
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				bodyForSignature = ""
			}
			reqBody := map[string]string{
				"session_id": sessionID,
				"timestamp":  timestamp,
				"signature":  signature,
				"method":     r.Method,
				"path":       r.URL.Path,
				"body":       bodyForSignature,
			}
			jsonBody, _ := json.Marshal(reqBody)
			req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, validateURL, bytes.NewReader(jsonBody))
			if err != nil {
				writeCodeError(w, http.StatusInternalServerError, chat.CodeInternal)
				return
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := client.Do(req)
			if err != nil {
				logger.Errorf("auth validate session_id=%s: %v", MaskSessionID(sessionID), err)
				writeCodeError(w, http.StatusUnauthorized, chat.CodeUnauthorized)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				writeCodeError(w, http.StatusUnauthorized, chat.CodeUnauthorized)
				return
			}
			var result struct {
				UserID      string `json:"user_id"`
				Role        string `json:"role"`
				DisplayName string `json:"display_name"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.UserID == "" {
				writeCodeError(w, http.StatusUnauthorized, chat.CodeUnauthorized)
				return
			}
			ctx := WithActor(r.Context(), &model.Actor{
				UserID:      result.UserID,
				SessionID:   sessionID,
				Role:        result.Role,
				DisplayName: result.DisplayName,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func headerOrQuery(r *http.Request, header, query string) string {
	if v := r.Header.Get(header); v != "" {
		return v
	}
	return r.URL.Query().Get(query)
}

// MaskSessionID маскирует session_id в логах.
func MaskSessionID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}
