package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "redirect blocked", err: ErrRedirectBlocked, retryable: false},
		{name: "auth failure", err: ErrAuthFailed, retryable: false},
		{name: "duplicate listing", err: ErrDuplicateListing, retryable: false},
		{name: "invalid input", err: ErrInvalidInput, retryable: false},
		{name: "rate limit", err: ErrRateLimit, retryable: true},
		{name: "deadline", err: context.DeadlineExceeded, retryable: true},
		{name: "wrapped rate limit", err: fmt.Errorf("call: %w", ErrRateLimit), retryable: true},
		{
			name:      "server error marked retryable",
			err:       &RetryableError{Err: errors.New("status 503"), Retryable: true},
			retryable: true,
		},
		{
			name:      "client error marked permanent",
			err:       &RetryableError{Err: errors.New("status 422"), Retryable: false},
			retryable: false,
		},
		{name: "plain error", err: errors.New("boom"), retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestUserError(t *testing.T) {
	t.Run("wraps the cause", func(t *testing.T) {
		err := NewUserError("check makro credentials", ErrAuthFailed)
		assert.ErrorIs(t, err, ErrAuthFailed)
		assert.Equal(t, "check makro credentials: authentication failed", err.Error())
	})

	t.Run("message only", func(t *testing.T) {
		err := NewUserError("no candidate source configured", nil)
		assert.Equal(t, "no candidate source configured", err.Error())
	})
}
