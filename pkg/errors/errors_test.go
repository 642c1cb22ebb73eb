package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "validation failed: password - passwords do not match",
		NewValidationError("password", "passwords do not match").Error())
	assert.Equal(t, "validation failed: bad input", NewValidationError("", "bad input").Error())
	assert.Equal(t, "user not found", NewNotFoundError("user", "").Error())
	assert.Equal(t, "role ADMIN not found", NewNotFoundError("role", "role ADMIN not found").Error())
	assert.Equal(t, "user already exists", NewAlreadyExistsError("user", "").Error())
	assert.Equal(t, "failed to save user: boom", NewInternalError("failed to save user", fmt.Errorf("boom")).Error())
}

func TestHTTPStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("username", "required"), http.StatusBadRequest},
		{"not found", NewNotFoundError("user", ""), http.StatusNotFound},
		{"conflict", NewAlreadyExistsError("role", ""), http.StatusConflict},
		{"internal", NewInternalError("db down", nil), http.StatusInternalServerError},
		{"wrapped conflict", fmt.Errorf("save: %w", NewAlreadyExistsError("user", "")), http.StatusConflict},
		{"plain error", fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusOf(tt.err))
		})
	}
}

func TestGRPCStatus(t *testing.T) {
	st, ok := status.FromError(NewNotFoundError("user", "user bob not found"))
	assert.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "user bob not found", st.Message())

	st, _ = status.FromError(NewInternalError("failed to load user", fmt.Errorf("connection refused")))
	assert.Equal(t, codes.Internal, st.Code())
	assert.NotContains(t, st.Message(), "connection refused")
}

func TestKindHelpers(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NewNotFoundError("user", ""))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsAlreadyExists(wrapped))
	assert.True(t, IsAlreadyExists(NewAlreadyExistsError("role", "")))
	assert.True(t, IsValidation(NewValidationError("", "x")))
	assert.False(t, IsValidation(nil))
}
