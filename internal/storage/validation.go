// Package storage provides the SQLite persistence layer for candidates.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"relist/internal/model"
	"relist/internal/service"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidCandidate = errors.New("invalid candidate")
	ErrInvalidApproval  = errors.New("invalid approval")
	ErrInvalidState     = errors.New("invalid candidate state")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCandidates validates a slice of candidates before persistence.
func validateCandidates(candidates []model.Candidate) error {
	if candidates == nil {
		return fmt.Errorf("%w: candidates", ErrNilParameter)
	}
	for i, c := range candidates {
		if err := validateCandidate(&c); err != nil {
			return fmt.Errorf("candidate at index %d: %w", i, err)
		}
	}
	return nil
}

// validateCandidate checks the structural fields a row cannot be stored
// without. An empty state is allowed here; the upsert defaults it to
// DISCOVERED. Content problems such as a missing title are judged per
// candidate by the pricing phase, so one bad item never sinks a batch.
func validateCandidate(c *model.Candidate) error {
	if c == nil {
		return fmt.Errorf("%w: candidate", ErrNilParameter)
	}
	if c.SourceID == "" {
		return fmt.Errorf("%w: missing source ID", ErrInvalidCandidate)
	}
	if c.State != "" && !model.ValidState(c.State) {
		return fmt.Errorf("%w: %s", ErrInvalidState, c.State)
	}
	return nil
}

// validateApproval validates an approval signal.
func validateApproval(a *service.Approval) error {
	if a == nil {
		return fmt.Errorf("%w: approval", ErrNilParameter)
	}
	if strings.TrimSpace(a.SourceID) == "" {
		return fmt.Errorf("%w: missing source ID", ErrInvalidApproval)
	}
	return nil
}

// validateRunSummary validates a run summary before persistence.
func validateRunSummary(s *service.RunSummary) error {
	if s == nil {
		return fmt.Errorf("%w: summary", ErrNilParameter)
	}
	if strings.TrimSpace(s.RunID) == "" {
		return fmt.Errorf("%w: run ID", ErrEmptyString)
	}
	return nil
}
