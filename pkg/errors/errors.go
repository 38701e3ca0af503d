// Package errors carries application errors that know their HTTP status.
// Each constructor wraps one of the sentinels below so callers can test
// with Is regardless of the message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("resource conflict")
	ErrInternal     = errors.New("internal server error")
	ErrValidation   = errors.New("validation error")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrUnavailable  = errors.New("service unavailable")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

func newError(sentinel error, code string, status int, message string) *AppError {
	return &AppError{Err: sentinel, Code: code, Message: message, StatusCode: status}
}

func NotFound(resource string) *AppError {
	return newError(ErrNotFound, "NOT_FOUND", http.StatusNotFound, resource+" not found")
}

// RowNotFound reports a missing sheet row.
func RowNotFound(table string, row int) *AppError {
	return NotFound(fmt.Sprintf("%s row %d", table, row)).
		WithDetails(map[string]string{"table": table, "row": fmt.Sprint(row)})
}

func Unauthorized(message string) *AppError {
	return newError(ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, message)
}

func BadRequest(message string) *AppError {
	return newError(ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest, message)
}

func Conflict(message string) *AppError {
	return newError(ErrConflict, "CONFLICT", http.StatusConflict, message)
}

func Internal(message string) *AppError {
	return newError(ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, message)
}

// Unavailable reports a dependency that is busy or down, such as the sheet
// lock. The caller may retry.
func Unavailable(message string) *AppError {
	return newError(ErrUnavailable, "UNAVAILABLE", http.StatusServiceUnavailable, message)
}

func Validation(details map[string]string) *AppError {
	return newError(ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest, "validation failed").
		WithDetails(details)
}

func TokenExpired() *AppError {
	return newError(ErrTokenExpired, "TOKEN_EXPIRED", http.StatusUnauthorized, "token has expired")
}

func TokenInvalid() *AppError {
	return newError(ErrTokenInvalid, "TOKEN_INVALID", http.StatusUnauthorized, "invalid token")
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
