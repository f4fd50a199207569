// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"relist/internal/model"
)

// CandidateFilter defines filtering options for candidate queries.
type CandidateFilter struct {
	States []model.CandidateState
	Limit  int
}

// TransitionFields carries the optional fields written alongside a state change.
// Nil pointers leave the stored value untouched.
type TransitionFields struct {
	ComputedPrice        *float64
	MarginActual         *float64
	MarginNotGuaranteed  *bool
	Reason               *model.ReasonCode
	DestinationListingID *string
	LastError            *string
	IncrementAttempt     bool
}

// Approval is an out-of-band review signal keyed by source ID.
type Approval struct {
	DecidedAt time.Time
	SourceID  string
	Reviewer  string
	Approved  bool
}

// Storage defines the contract for the candidate store.
type Storage interface {
	// Candidate operations. UpsertCandidates never duplicates a source ID and
	// never touches a LISTED record.
	UpsertCandidates(ctx context.Context, candidates []model.Candidate) error
	GetCandidate(ctx context.Context, sourceID string) (*model.Candidate, error)
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.Candidate, error)
	Transition(ctx context.Context, sourceID string, newState model.CandidateState, fields TransitionFields) error

	// Approval signals, written by an external reviewer between runs.
	SetApproval(ctx context.Context, approval Approval) error
	GetApproval(ctx context.Context, sourceID string) (*Approval, error)

	// Run bookkeeping.
	SaveRunSummary(ctx context.Context, summary *RunSummary) error

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// Collector supplies raw candidates from the source marketplace. Implementations
// must return an empty slice rather than an error on transient scrape failure.
type Collector interface {
	Collect(ctx context.Context, maxItems int) ([]model.Candidate, error)
}

// ListingResult is the outcome of a create or update call against the
// destination marketplace.
type ListingResult struct {
	ListingID string
	DryRun    bool
}

// Marketplace is the authenticated destination API used by the publisher.
type Marketplace interface {
	// FindExisting looks up a listing by stable external key. A nil result with
	// a nil error means no duplicate was found (or lookup degraded gracefully).
	FindExisting(ctx context.Context, candidate *model.Candidate) (*Listing, error)
	CreateListing(ctx context.Context, candidate *model.Candidate) (*ListingResult, error)
	UpdateListing(ctx context.Context, listingID string, candidate *model.Candidate) (*ListingResult, error)
	UpdateStock(ctx context.Context, listingID string, quantity int) error
	UploadImages(ctx context.Context, listingID string, mediaRefs []string) error
}

// Listing is a destination-marketplace listing as returned by lookup.
type Listing struct {
	ID    string
	Title string
	SKU   string
}

// Gate decides whether a priced candidate may be published.
type Gate interface {
	Evaluate(ctx context.Context, candidate *model.Candidate) (model.CandidateState, model.ReasonCode, error)
}

// RunSummary is the externally observable result of one pipeline pass.
type RunSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	RunID      string
	Flagged    []string
	Margins    []float64
	Discovered int
	Priced     int
	Approved   int
	Rejected   int
	Pending    int
	Listed     int
	Failed     int
	Skipped    int
	DryRun     bool
}

// Duration returns the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// ReportWriter exports a run summary and its listed candidates for audit.
type ReportWriter interface {
	Write(ctx context.Context, summary *RunSummary, listed []model.Candidate) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
