package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/barbershop/internal/chat"
	"github.com/barbershop/internal/logger"
)

type errorResponse struct {
	OK    bool      `json:"ok"`
	Error chat.Code `json:"error"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("chat_channel", func(fl validator.FieldLevel) bool {
		_, err := chat.Validate(fl.Field().String())
		return err == nil
	})
	return v
}

// validateDTO проверяет тэги validate; ошибка поля Channel — invalid_channel, прочие — bad_request.
func validateDTO(dto any) error {
	err := validate.Struct(dto)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		first := vErrs[0]
		code := chat.CodeBadRequest
		if first.StructField() == "Channel" {
			code = chat.CodeInvalidChannel
		}
		return chat.NewError(code, fmt.Sprintf("field [%s] failed rule [%s]", first.Field(), first.Tag()), err)
	}
	return chat.NewError(chat.CodeBadRequest, "validation", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code chat.Code) {
	writeJSON(w, status, errorResponse{OK: false, Error: code})
}

// statusFor переводит код ошибки чата в HTTP-статус.
func statusFor(code chat.Code) int {
	switch code {
	case chat.CodeUnauthorized:
		return http.StatusUnauthorized
	case chat.CodeForbidden:
		return http.StatusForbidden
	case chat.CodeInvalidChannel, chat.CodeEmptyMessage, chat.CodeBadRequest:
		return http.StatusBadRequest
	case chat.CodeRateLimited:
		return http.StatusTooManyRequests
	case chat.CodeWriteFailed, chat.CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeChatError отдаёт {"ok":false,"error":code}; для 429 добавляет Retry-After.
func writeChatError(w http.ResponseWriter, err error, retryAfter time.Duration) {
	code := chat.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		logger.Errorf("chat handler: %v", err)
	}
	if code == chat.CodeRateLimited && retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int((retryAfter+time.Second-1)/time.Second)))
	}
	writeError(w, status, code)
}

// queryInt64 возвращает (n, true) для корректного целого параметра.
func queryInt64(r *http.Request, key string) (int64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
