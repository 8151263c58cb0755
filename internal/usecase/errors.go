package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// 機械可読のエラー種別。HTTPステータスへの変換はhandler側。
type ErrorCode string

const (
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeBadRequest   ErrorCode = "BAD_REQUEST"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeInternal     ErrorCode = "INTERNAL"
)

// usecaseの返すエラーは全部これ。握りつぶし禁止、必ず型付きで上へ。
type AppError struct {
	Code    ErrorCode
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) error {
	return &AppError{Code: code, Message: message}
}

func NewNotFound(message string) error     { return NewAppError(CodeNotFound, message) }
func NewBadRequest(message string) error   { return NewAppError(CodeBadRequest, message) }
func NewUnauthorized(message string) error { return NewAppError(CodeUnauthorized, message) }
func NewForbidden(message string) error    { return NewAppError(CodeForbidden, message) }
func NewConflict(message string) error     { return NewAppError(CodeConflict, message) }
func NewInternal(message string) error     { return NewAppError(CodeInternal, message) }

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

// handlerのwriteErrorで使う変換表
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
