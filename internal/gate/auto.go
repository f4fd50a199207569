package gate

import (
	"context"
	"fmt"
	"log/slog"

	"relist/internal/common"
	"relist/internal/model"
)

// AutoGate approves or rejects priced candidates from thresholds alone. It
// never leaves a candidate pending and never calls the marketplace.
type AutoGate struct {
	cfg Config
}

// Evaluate applies the margin, rating, and price checks in that order. A
// margin-not-guaranteed quote is judged on its best-effort margin; the warning
// rides along on the candidate rather than forcing rejection.
func (g *AutoGate) Evaluate(_ context.Context, candidate *model.Candidate) (model.CandidateState, model.ReasonCode, error) {
	if candidate == nil {
		return "", "", fmt.Errorf("%w: candidate", common.ErrInvalidInput)
	}
	if !candidate.Priced() {
		return "", "", fmt.Errorf("%w: candidate %s has not been priced", common.ErrInvalidInput, candidate.SourceID)
	}

	if candidate.ComputedPrice <= 0 {
		return model.StateRejected, model.ReasonInvalidPrice, nil
	}
	if candidate.MarginActual < g.cfg.MinMargin {
		return model.StateRejected, model.ReasonLowMargin, nil
	}
	if candidate.Rating < g.cfg.MinRating {
		return model.StateRejected, model.ReasonLowRating, nil
	}

	if candidate.MarginNotGuaranteed {
		slog.Warn("Approving candidate with unguaranteed margin",
			"source_id", candidate.SourceID,
			"margin", candidate.MarginActual)
	}
	return model.StateApproved, "", nil
}
