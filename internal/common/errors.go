// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid state transition")

	// Candidate errors.
	ErrInvalidInput = errors.New("invalid source data")

	// Marketplace errors.
	ErrAuthFailed       = errors.New("authentication failed")
	ErrRedirectBlocked  = errors.New("unexpected redirect from destination")
	ErrDuplicateListing = errors.New("listing already exists on destination")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the operator.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry. Redirect blocks
// and auth failures are never retryable; they signal a broken integration.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRedirectBlocked) ||
		errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrDuplicateListing) ||
		errors.Is(err, ErrInvalidInput) {
		return false
	}

	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
