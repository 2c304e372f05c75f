package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid option", Invalid("maxItems must be positive"), http.StatusBadRequest},
		{"unknown domain", fmt.Errorf("build: %w", ErrDomainNotFound), http.StatusBadRequest},
		{"missing adapter", Newf(ErrMissingAdapter, http.StatusNotImplemented, "no processor"), http.StatusNotImplemented},
		{"configuration", Configf("domain %q has no record indexers", "docs"), http.StatusInternalServerError},
		{"deadline", fmt.Errorf("candidates: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"canceled", context.Canceled, http.StatusServiceUnavailable},
		{"anything else", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrapsAndFormats(t *testing.T) {
	err := fmt.Errorf("search lookup: %w", Invalid("offset must not be negative"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "search lookup: invalid input: offset must not be negative", err.Error())
	assert.Equal(t, "internal error", New(ErrInternal, http.StatusInternalServerError, "").Error())
}
