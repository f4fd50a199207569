package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"relist/internal/common"
	"relist/internal/service"
)

// SetApproval records a review decision for a candidate. A later decision for
// the same candidate replaces the earlier one.
func (s *SQLiteStorage) SetApproval(ctx context.Context, approval service.Approval) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateApproval(&approval); err != nil {
		return err
	}

	decidedAt := approval.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO approvals (source_id, approved, reviewer, decided_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			approved = excluded.approved,
			reviewer = excluded.reviewer,
			decided_at = excluded.decided_at
	`, approval.SourceID, approval.Approved, approval.Reviewer, decidedAt); err != nil {
		return fmt.Errorf("failed to save approval: %w", err)
	}
	return nil
}

// GetApproval retrieves the review decision for a candidate, or
// common.ErrNotFound if nobody has decided yet.
func (s *SQLiteStorage) GetApproval(ctx context.Context, sourceID string) (*service.Approval, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sourceID, "sourceID"); err != nil {
		return nil, err
	}

	var approval service.Approval
	var reviewer sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT source_id, approved, reviewer, decided_at
		FROM approvals
		WHERE source_id = ?
	`, sourceID).Scan(&approval.SourceID, &approval.Approved, &reviewer, &approval.DecidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: approval for %s", common.ErrNotFound, sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}

	approval.Reviewer = reviewer.String
	return &approval, nil
}
