package domain_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dom/accounts-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   domain.Kind
		wantStatus int
	}{
		{
			name:       "validation",
			err:        domain.Validation("All fields are required"),
			wantKind:   domain.KindValidation,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "conflict wrapped",
			err:        fmt.Errorf("register: %w", domain.Conflict("taken")),
			wantKind:   domain.KindConflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unauthorized",
			err:        domain.Unauthorized("Invalid refresh token"),
			wantKind:   domain.KindUnauthorized,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not found",
			err:        domain.NotFound("User does not exist"),
			wantKind:   domain.KindNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "plain error is internal",
			err:        errors.New("connection reset"),
			wantKind:   domain.KindInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := domain.KindOf(tt.err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantStatus, kind.StatusCode())
		})
	}
}

func TestMessageOf_HidesInternalCause(t *testing.T) {
	cause := errors.New("pq: password authentication failed")
	err := domain.Internal("Something went wrong while generating tokens", cause)

	assert.Equal(t, "Something went wrong while generating tokens", domain.MessageOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Something went wrong", domain.MessageOf(cause))
}

func TestNewErrorResponse(t *testing.T) {
	resp := domain.NewErrorResponse(domain.Conflict("User with this email or username already exists"))
	assert.Equal(t, "User with this email or username already exists", resp.Message)
	assert.False(t, resp.Success)

	resp = domain.NewErrorResponse(fmt.Errorf("wrapped: %w", domain.Internal("Failed to log out", errors.New("db down"))))
	assert.Equal(t, "Failed to log out", resp.Message)
}

func TestUser_Sanitized(t *testing.T) {
	u := &domain.User{Username: "alice", PasswordHash: "$2a$10$x", RefreshToken: "rt"}

	clean := u.Sanitized()
	assert.Equal(t, "alice", clean.Username)
	assert.Empty(t, clean.PasswordHash)
	assert.Empty(t, clean.RefreshToken)
	assert.Equal(t, "$2a$10$x", u.PasswordHash, "original must be untouched")

	var nilUser *domain.User
	assert.Nil(t, nilUser.Sanitized())
}
