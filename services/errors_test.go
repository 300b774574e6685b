package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Prot0type/portfolio-website/cognito"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
				Message: "project not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: project not found (db error)",
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

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error type",
			err:    NewDomainError(ErrorTypeNotFound, "not found", nil),
			target: ErrProjectNotFound,
			want:   true,
		},
		{
			name:   "different error type",
			err:    NewDomainError(ErrorTypeValidation, "validation", nil),
			target: ErrProjectNotFound,
			want:   false,
		},
		{
			name:   "not a domain error",
			err:    NewDomainError(ErrorTypeNotFound, "not found", nil),
			target: errors.New("regular error"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_UnwrapReachesVerifierError(t *testing.T) {
	err := NewDomainError(ErrorTypeUnauthorized, "authentication failed", fmt.Errorf("%w: kid rotated", cognito.ErrUnknownKey))

	assert.True(t, IsUnauthorizedError(err))
	assert.ErrorIs(t, err, cognito.ErrUnknownKey)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("field", "tags").WithDetail("reason", "min")

	assert.Equal(t, "tags", err.Details["field"])
	assert.Equal(t, "min", err.Details["reason"])
}

func TestErrorTypePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", ErrProjectNotFound, IsNotFoundError, true},
		{"wrapped not found", fmt.Errorf("wrapped: %w", ErrProjectNotFound), IsNotFoundError, true},
		{"validation is not not found", ErrInvalidInput, IsNotFoundError, false},
		{"nil is not not found", nil, IsNotFoundError, false},
		{"primary tag", ErrPrimaryTagRequired, IsValidationError, true},
		{"status filter", ErrInvalidStatusFilter, IsValidationError, true},
		{"regular error is not validation", errors.New("regular"), IsValidationError, false},
		{"unauthorized", ErrUnauthorized, IsUnauthorizedError, true},
		{"duplicate", ErrDuplicateProject, IsConflictError, true},
		{"concurrent update", ErrConcurrentUpdate, IsConflictError, true},
		{"media not configured", ErrMediaNotConfigured, IsInternalError, true},
		{"identity provider", ErrIdentityProviderUnavailable, IsExternalError, true},
		{"internal is not external", ErrInternal, IsExternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", ErrProjectNotFound, ErrorTypeNotFound},
		{"validation", ErrInvalidInput, ErrorTypeValidation},
		{"conflict", ErrDuplicateProject, ErrorTypeConflict},
		{"regular error", errors.New("regular"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)
	err.WithDetail("field", "title").WithDetail("reason", "too short")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "title", details["field"])
	assert.Equal(t, "too short", details["reason"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapHelpers(t *testing.T) {
	baseErr := errors.New("connection reset")

	wrapped := WrapError(ErrorTypeConflict, "wrapped message", baseErr)
	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeConflict, domainErr.Type)
	assert.Equal(t, "wrapped message", domainErr.Message)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))

	assert.True(t, IsInternalError(WrapInternal("store failed", baseErr)))
	assert.True(t, IsExternalError(WrapExternal("jwks unavailable", baseErr)))
}
