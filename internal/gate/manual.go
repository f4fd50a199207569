package gate

import (
	"context"
	"errors"
	"fmt"

	"relist/internal/common"
	"relist/internal/model"
	"relist/internal/service"
)

// ManualGate defers the publish decision to a human reviewer. Candidates wait
// in PENDING_REVIEW until an approval signal lands in the store; the threshold
// checks still run first so reviewers never see obviously broken candidates.
type ManualGate struct {
	store service.Storage
	cfg   Config
}

// Evaluate promotes a candidate only when a reviewer has decided. An absent
// signal keeps the candidate pending for the next run.
func (g *ManualGate) Evaluate(ctx context.Context, candidate *model.Candidate) (model.CandidateState, model.ReasonCode, error) {
	if candidate == nil {
		return "", "", fmt.Errorf("%w: candidate", common.ErrInvalidInput)
	}
	if !candidate.Priced() {
		return "", "", fmt.Errorf("%w: candidate %s has not been priced", common.ErrInvalidInput, candidate.SourceID)
	}

	// Hard failures never reach a reviewer.
	if candidate.ComputedPrice <= 0 {
		return model.StateRejected, model.ReasonInvalidPrice, nil
	}
	if candidate.MarginActual < g.cfg.MinMargin {
		return model.StateRejected, model.ReasonLowMargin, nil
	}
	if candidate.Rating < g.cfg.MinRating {
		return model.StateRejected, model.ReasonLowRating, nil
	}

	approval, err := g.store.GetApproval(ctx, candidate.SourceID)
	if errors.Is(err, common.ErrNotFound) {
		return model.StatePendingReview, "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to look up approval for %s: %w", candidate.SourceID, err)
	}

	if approval.Approved {
		return model.StateApproved, "", nil
	}
	return model.StateRejected, "", nil
}
