package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Prot0type/portfolio-website/cognito"
	"github.com/Prot0type/portfolio-website/services"
	"github.com/Prot0type/portfolio-website/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "not found error",
			err:             services.ErrProjectNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "project not found",
		},
		{
			name:            "validation error",
			err:             services.ErrInvalidInput,
			expectedStatus:  http.StatusUnprocessableEntity,
			expectedError:   "validation_failed",
			expectedMessage: "invalid input",
		},
		{
			name: "unauthorized error hides the verifier reason",
			err: services.NewDomainError(services.ErrorTypeUnauthorized, "invalid bearer token",
				fmt.Errorf("%w: expected a, got b", cognito.ErrIssuerMismatch)),
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "invalid bearer token",
		},
		{
			name:            "conflict error",
			err:             services.ErrDuplicateProject,
			expectedStatus:  http.StatusConflict,
			expectedError:   "conflict",
			expectedMessage: "project id already exists",
		},
		{
			name:            "external error",
			err:             services.WrapExternal("failed to presign upload", errors.New("no credentials")),
			expectedStatus:  http.StatusBadGateway,
			expectedError:   "bad_gateway",
			expectedMessage: "failed to presign upload",
		},
		{
			name:            "internal error",
			err:             services.WrapInternal("failed to list projects", errors.New("connection reset")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:            "plain error",
			err:             errors.New("unexpected"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestHandleServiceError_Details(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypeValidation, "Validation failed", nil).
		WithDetail("title", "title must be at least 2 characters")

	w := httptest.NewRecorder()
	HandleServiceError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "title must be at least 2 characters", response.Details["title"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleDecodeError(t *testing.T) {
	w := httptest.NewRecorder()
	HandleDecodeError(w, errors.New("request body must not be empty"), zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "bad_request", response.Error)
	assert.Equal(t, "request body must not be empty", response.Details["body"])
}
