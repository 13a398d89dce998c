package chat

import (
	"errors"
	"fmt"
)

// Code — короткий код ошибки, который уходит клиенту в поле "error".
type Code string

const (
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInvalidChannel     Code = "invalid_channel"
	CodeEmptyMessage       Code = "empty_message"
	CodeRateLimited        Code = "rate_limited"
	CodeWriteFailed        Code = "write_failed"
	CodeStorageUnavailable Code = "storage_unavailable"
	CodeBadRequest         Code = "bad_request"
	CodeInternal           Code = "internal"
)

type Error struct {
	Code   Code
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("chat: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("chat: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError создаёт ошибку с кодом; err может быть nil.
func NewError(code Code, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf возвращает код ошибки чата; для прочих ошибок — CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}

// IsCode сообщает, несёт ли err ошибку чата с данным кодом.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
