package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries a machine-readable code alongside an HTTP status so
// handlers can map domain failures onto the wire format consistently.
type AppError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError constructs an AppError wrapping an optional cause.
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

// NotFound is a convenience constructor for 404 responses.
func NotFound(code, message string) *AppError {
	return NewAppError(http.StatusNotFound, code, message, nil)
}

// BadRequest is a convenience constructor for 400 responses.
func BadRequest(code, message string) *AppError {
	return NewAppError(http.StatusBadRequest, code, message, nil)
}

// Conflict is a convenience constructor for 409 responses.
func Conflict(code, message string) *AppError {
	return NewAppError(http.StatusConflict, code, message, nil)
}

// WriteError renders err; AppErrors keep their status and code, everything
// else becomes an opaque 500.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONError(w, appErr.Status, appErr.Code, appErr.Message, nil)
		return
	}
	JSONError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
}
