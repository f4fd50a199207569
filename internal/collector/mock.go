package collector

import (
	"context"

	"relist/internal/model"
	"relist/internal/service"
)

// MockCollector is a mock implementation of service.Collector for testing.
type MockCollector struct {
	// CollectFn can be set by tests to control behavior.
	CollectFn func(ctx context.Context, maxItems int) ([]model.Candidate, error)

	// Candidates is returned when CollectFn is unset, truncated to maxItems.
	Candidates []model.Candidate

	// CollectCalls tracks the maxItems of each call.
	CollectCalls []int
}

// NewMockCollector creates a mock collector returning the given candidates.
func NewMockCollector(candidates ...model.Candidate) *MockCollector {
	return &MockCollector{Candidates: candidates}
}

// Collect implements service.Collector.
func (m *MockCollector) Collect(ctx context.Context, maxItems int) ([]model.Candidate, error) {
	m.CollectCalls = append(m.CollectCalls, maxItems)
	if m.CollectFn != nil {
		return m.CollectFn(ctx, maxItems)
	}

	candidates := m.Candidates
	if maxItems > 0 && len(candidates) > maxItems {
		candidates = candidates[:maxItems]
	}
	return candidates, nil
}

// Ensure MockCollector satisfies the collector contract.
var _ service.Collector = (*MockCollector)(nil)
