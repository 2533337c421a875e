package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/hydra-router/internal/routing"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "routing decision not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: routing decision not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same error type", NewDomainError(ErrorTypeNotFound, "not found", nil), ErrDecisionNotFound, true},
		{"different error type", NewDomainError(ErrorTypeValidation, "validation", nil), ErrDecisionNotFound, false},
		{"not a domain error", NewDomainError(ErrorTypeNotFound, "not found", nil), errors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("field", "prompt").WithDetail("value", "")

	assert.Equal(t, "prompt", err.Details["field"])
	assert.Equal(t, "", err.Details["value"])
}

func TestErrorTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		check func(error) bool
		yes   []error
		no    []error
	}{
		{
			name:  "not found",
			check: IsNotFoundError,
			yes:   []error{ErrDecisionNotFound, fmt.Errorf("wrapped: %w", ErrDecisionNotFound)},
			no:    []error{ErrInvalidInput, errors.New("regular"), nil},
		},
		{
			name:  "validation",
			check: IsValidationError,
			yes:   []error{ErrInvalidInput, ErrInvalidTier, ErrInvalidPagination},
			no:    []error{ErrDecisionNotFound, errors.New("regular")},
		},
		{
			name:  "unauthorized",
			check: IsUnauthorizedError,
			yes:   []error{ErrUnauthorized, ErrInvalidToken, ErrTokenExpired},
			no:    []error{ErrForbidden},
		},
		{
			name:  "forbidden",
			check: IsForbiddenError,
			yes:   []error{ErrForbidden},
			no:    []error{ErrUnauthorized},
		},
		{
			name:  "unavailable",
			check: IsUnavailableError,
			yes:   []error{ErrNoAvailableModel, ErrDecisionLogMissing},
			no:    []error{ErrCatalogUnavailable, ErrInternal},
		},
		{
			name:  "internal",
			check: IsInternalError,
			yes:   []error{ErrInternal, ErrDatabaseError},
			no:    []error{ErrCatalogUnavailable},
		},
		{
			name:  "external",
			check: IsExternalError,
			yes:   []error{ErrCatalogUnavailable},
			no:    []error{ErrInternal},
		},
		{
			name:  "conflict",
			check: IsConflictError,
			yes:   []error{NewDomainError(ErrorTypeConflict, "duplicate decision id", nil)},
			no:    []error{ErrInvalidInput},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, err := range tt.yes {
				assert.True(t, tt.check(err), "%v", err)
			}
			for _, err := range tt.no {
				assert.False(t, tt.check(err), "%v", err)
			}
		})
	}
}

func TestNewNoAvailableModelError(t *testing.T) {
	_, routeErr := routing.RouteWithFallback(routing.RoutingRequest{Prompt: "Hello!"}, routing.NewModelSet())
	require.Error(t, routeErr)

	err := NewNoAvailableModelError(routeErr)

	assert.True(t, IsUnavailableError(err))
	assert.True(t, errors.Is(err, routing.ErrNoAvailableModel))
	assert.Equal(t, "FAST", err.Details["attempted_tier"])
	assert.Equal(t, "qwen2.5-7b", err.Details["attempted_model"])
	assert.NotEmpty(t, err.Details["tried"])
}

func TestNewNoAvailableModelError_PlainError(t *testing.T) {
	err := NewNoAvailableModelError(errors.New("boom"))

	assert.True(t, IsUnavailableError(err))
	assert.Empty(t, err.Details)
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeNotFound, GetErrorType(ErrDecisionNotFound))
	assert.Equal(t, ErrorTypeUnavailable, GetErrorType(ErrNoAvailableModel))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("regular")))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)
	err.WithDetail("field", "limit").WithDetail("reason", "must be positive")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "limit", details["field"])
	assert.Equal(t, "must be positive", details["reason"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapHelpers(t *testing.T) {
	baseErr := errors.New("connection refused")

	wrapped := WrapError(ErrorTypeInternal, "wrapped message", baseErr)
	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeInternal, domainErr.Type)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))

	assert.True(t, IsInternalError(WrapInternal("failed to query", baseErr)))
	assert.True(t, IsExternalError(WrapExternal("catalog request failed", baseErr)))
}
