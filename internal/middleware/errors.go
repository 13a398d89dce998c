package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/barbershop/internal/chat"
)

// writeCodeError отдаёт ошибку в формате API чата: {"ok":false,"error":"<code>"}.
func writeCodeError(w http.ResponseWriter, status int, code chat.Code) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": code})
}
