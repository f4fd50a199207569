package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"relist/internal/service"
)

// SaveRunSummary persists the outcome of one pipeline pass for auditing.
func (s *SQLiteStorage) SaveRunSummary(ctx context.Context, summary *service.RunSummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRunSummary(summary); err != nil {
		return err
	}

	flaggedJSON := ""
	if len(summary.Flagged) > 0 {
		flaggedBytes, err := json.Marshal(summary.Flagged)
		if err == nil {
			flaggedJSON = string(flaggedBytes)
		}
	}

	var marginAvg float64
	if len(summary.Margins) > 0 {
		for _, m := range summary.Margins {
			marginAvg += m
		}
		marginAvg /= float64(len(summary.Margins))
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, started_at, finished_at, dry_run,
			discovered, priced, approved, rejected, pending,
			listed, failed, skipped, margin_avg, flagged
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.RunID,
		summary.StartedAt,
		summary.FinishedAt,
		summary.DryRun,
		summary.Discovered,
		summary.Priced,
		summary.Approved,
		summary.Rejected,
		summary.Pending,
		summary.Listed,
		summary.Failed,
		summary.Skipped,
		marginAvg,
		flaggedJSON,
	); err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}
