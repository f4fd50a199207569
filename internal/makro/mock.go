package makro

import (
	"context"

	"relist/internal/model"
	"relist/internal/service"
)

// MockClient is a mock implementation of service.Marketplace for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	FindExistingFn  func(ctx context.Context, candidate *model.Candidate) (*service.Listing, error)
	CreateListingFn func(ctx context.Context, candidate *model.Candidate) (*service.ListingResult, error)
	UpdateListingFn func(ctx context.Context, listingID string, candidate *model.Candidate) (*service.ListingResult, error)
	UpdateStockFn   func(ctx context.Context, listingID string, quantity int) error
	UploadImagesFn  func(ctx context.Context, listingID string, mediaRefs []string) error

	// Call tracking
	FindExistingCalls  []string
	CreateListingCalls []string
	UpdateListingCalls []string
	UpdateStockCalls   []UpdateStockCall
	UploadImagesCalls  []UploadImagesCall
}

// UpdateStockCall records the parameters of an UpdateStock call.
type UpdateStockCall struct {
	ListingID string
	Quantity  int
}

// UploadImagesCall records the parameters of an UploadImages call.
type UploadImagesCall struct {
	ListingID string
	MediaRefs []string
}

// NewMockClient creates a new mock marketplace client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// FindExisting implements service.Marketplace.
func (m *MockClient) FindExisting(ctx context.Context, candidate *model.Candidate) (*service.Listing, error) {
	m.FindExistingCalls = append(m.FindExistingCalls, candidate.SourceID)
	if m.FindExistingFn != nil {
		return m.FindExistingFn(ctx, candidate)
	}
	return nil, nil
}

// CreateListing implements service.Marketplace.
func (m *MockClient) CreateListing(ctx context.Context, candidate *model.Candidate) (*service.ListingResult, error) {
	m.CreateListingCalls = append(m.CreateListingCalls, candidate.SourceID)
	if m.CreateListingFn != nil {
		return m.CreateListingFn(ctx, candidate)
	}
	return &service.ListingResult{ListingID: "mock-" + candidate.SKU()}, nil
}

// UpdateListing implements service.Marketplace.
func (m *MockClient) UpdateListing(ctx context.Context, listingID string, candidate *model.Candidate) (*service.ListingResult, error) {
	m.UpdateListingCalls = append(m.UpdateListingCalls, listingID)
	if m.UpdateListingFn != nil {
		return m.UpdateListingFn(ctx, listingID, candidate)
	}
	return &service.ListingResult{ListingID: listingID}, nil
}

// UpdateStock implements service.Marketplace.
func (m *MockClient) UpdateStock(ctx context.Context, listingID string, quantity int) error {
	m.UpdateStockCalls = append(m.UpdateStockCalls, UpdateStockCall{ListingID: listingID, Quantity: quantity})
	if m.UpdateStockFn != nil {
		return m.UpdateStockFn(ctx, listingID, quantity)
	}
	return nil
}

// UploadImages implements service.Marketplace.
func (m *MockClient) UploadImages(ctx context.Context, listingID string, mediaRefs []string) error {
	m.UploadImagesCalls = append(m.UploadImagesCalls, UploadImagesCall{ListingID: listingID, MediaRefs: mediaRefs})
	if m.UploadImagesFn != nil {
		return m.UploadImagesFn(ctx, listingID, mediaRefs)
	}
	return nil
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.FindExistingCalls = nil
	m.CreateListingCalls = nil
	m.UpdateListingCalls = nil
	m.UpdateStockCalls = nil
	m.UploadImagesCalls = nil
}

// Ensure MockClient implements the marketplace contract.
var _ service.Marketplace = (*MockClient)(nil)
