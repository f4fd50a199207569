package sheets

import (
	"context"

	"relist/internal/model"
	"relist/internal/service"
)

// MockWriter is a mock implementation of service.ReportWriter for testing.
type MockWriter struct {
	// WriteFn can be set by tests to control behavior.
	WriteFn func(ctx context.Context, summary *service.RunSummary, listed []model.Candidate) error

	// Call tracking
	Summaries []*service.RunSummary
	Listed    [][]model.Candidate
}

// NewMockWriter creates a new mock report writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write implements service.ReportWriter.
func (m *MockWriter) Write(ctx context.Context, summary *service.RunSummary, listed []model.Candidate) error {
	m.Summaries = append(m.Summaries, summary)
	m.Listed = append(m.Listed, listed)
	if m.WriteFn != nil {
		return m.WriteFn(ctx, summary, listed)
	}
	return nil
}

// Reset clears all call tracking.
func (m *MockWriter) Reset() {
	m.Summaries = nil
	m.Listed = nil
}

// Ensure MockWriter implements the report writer contract.
var _ service.ReportWriter = (*MockWriter)(nil)
