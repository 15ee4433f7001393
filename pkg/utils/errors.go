// Package utils provides shared helpers for the modsentry service.
package utils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Common error types for reuse.
var (
	ErrBadRequest          = NewError(fiber.StatusBadRequest, "Invalid request")
	ErrUnauthorized        = NewError(fiber.StatusUnauthorized, "Unauthorized")
	ErrNotFound            = NewError(fiber.StatusNotFound, "Resource not found")
	ErrInternalServerError = NewError(fiber.StatusInternalServerError, "Internal server error")
)

// CustomError represents a structured error for the web app.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewError creates a new CustomError with a status code, message, and optional details.
func NewError(code int, message string, details ...string) *CustomError {
	e := &CustomError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// WithCause attaches underlying details to the error.
func (e *CustomError) WithCause(err error) *CustomError {
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// WrapError wraps an existing error with a custom status and message.
func WrapError(err error, code int, message string) *CustomError {
	return NewError(code, message, err.Error())
}

// As unwraps a CustomError out of err, if there is one.
func As(err error, target **CustomError) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*CustomError); ok {
		*target = e
		return true
	}
	return false
}
