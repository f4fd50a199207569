// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// CandidateState tracks where a candidate sits in the listing lifecycle.
type CandidateState string

// Candidate lifecycle states. Transitions only move forward; see CanTransition.
const (
	StateDiscovered    CandidateState = "DISCOVERED"
	StatePriced        CandidateState = "PRICED"
	StatePendingReview CandidateState = "PENDING_REVIEW"
	StateApproved      CandidateState = "APPROVED"
	StateRejected      CandidateState = "REJECTED"
	StateListed        CandidateState = "LISTED"
	StateFailed        CandidateState = "FAILED"
)

// ReasonCode explains why a candidate was rejected or failed.
type ReasonCode string

// Rejection and failure reason codes.
const (
	ReasonLowMargin    ReasonCode = "LOW_MARGIN"
	ReasonLowRating    ReasonCode = "LOW_RATING"
	ReasonInvalidPrice ReasonCode = "INVALID_PRICE"
	ReasonInvalidInput ReasonCode = "INVALID_INPUT"
)

// Candidate represents a source-marketplace product under consideration for resale.
type Candidate struct {
	DiscoveredAt         time.Time
	UpdatedAt            time.Time
	SourceID             string
	Title                string
	Category             string
	MediaRefs            []string
	State                CandidateState
	Reason               ReasonCode
	DestinationListingID string
	LastError            string
	SourcePrice          float64
	Rating               float64
	WeightKG             float64
	ComputedPrice        float64
	MarginActual         float64
	ViabilityScore       int
	AttemptCount         int
	MarginNotGuaranteed  bool
}

// transitions is the forward-only lifecycle graph. A LISTED candidate is terminal;
// FAILED candidates stay eligible for another publish attempt on the next run.
var transitions = map[CandidateState][]CandidateState{
	StateDiscovered:    {StatePriced, StateFailed},
	StatePriced:        {StatePendingReview, StateApproved, StateRejected},
	StatePendingReview: {StateApproved, StateRejected},
	StateApproved:      {StateListed, StateFailed},
	StateRejected:      {},
	StateListed:        {},
	StateFailed:        {StateApproved, StateFailed},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to CandidateState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidState reports whether s is a known lifecycle state.
func ValidState(s CandidateState) bool {
	_, ok := transitions[s]
	return ok
}

// Priced reports whether the candidate has passed through the pricing engine.
func (c *Candidate) Priced() bool {
	switch c.State {
	case StatePriced, StatePendingReview, StateApproved, StateRejected, StateListed:
		return true
	case StateDiscovered, StateFailed:
		return false
	}
	return false
}

// IdempotencyKey derives a stable publish key from the source identifier alone.
// Retried create requests must reuse this key so the destination cannot end up
// with two listings for one candidate.
func (c *Candidate) IdempotencyKey() string {
	hash := sha256.Sum256([]byte("listing:" + c.SourceID))
	return fmt.Sprintf("%x", hash)
}

// SKU returns the destination SKU for this candidate. It is derived purely from
// the source identifier; anything time-based here would defeat retry idempotency.
func (c *Candidate) SKU() string {
	hash := sha256.Sum256([]byte(c.SourceID))
	return fmt.Sprintf("TA-%x", hash[:6])
}

// ValidInput reports whether the candidate carries usable source data.
func (c *Candidate) ValidInput() bool {
	return c.SourceID != "" && c.Title != "" && c.SourcePrice > 0
}
