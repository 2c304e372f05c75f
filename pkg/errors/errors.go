// Package errors holds the sentinel errors shared by the indexer and the
// lookup path and maps them to HTTP status codes.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrDomainNotFound = errors.New("search domain not found")
	ErrConfiguration  = errors.New("configuration error")
	ErrMissingTitle   = errors.New("node has no title")
	ErrInLimbo        = errors.New("field accessed before its pipeline stage populated it")
	ErrMissingAdapter = errors.New("no query adapter registered for storage dialect")
	ErrInternal       = errors.New("internal error")
	ErrTimeout        = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Invalid builds a bad-request error for lookup option validation.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

// Configf builds a setup-time configuration error.
func Configf(format string, args ...any) *AppError {
	return Newf(ErrConfiguration, http.StatusInternalServerError, format, args...)
}

// HTTPStatusCode maps err to a response status. A lookup cut short by the
// request deadline or a disconnecting client reports 503.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrDomainNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMissingAdapter):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
