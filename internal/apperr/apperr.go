// Package apperr defines the operational error taxonomy. Every business-rule
// or validation failure is raised as an *AppError at the point of detection
// and propagates unmodified to the handler boundary, where it is mapped to
// the response envelope.
package apperr

import (
	"errors"
	"net/http"
)

type AppError struct {
	StatusCode int
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func New(statusCode int, message string) *AppError {
	return &AppError{StatusCode: statusCode, Message: message}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, message)
}

// As extracts an *AppError from err, if it is one.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsStatus(err error, statusCode int) bool {
	appErr, ok := As(err)
	return ok && appErr.StatusCode == statusCode
}
