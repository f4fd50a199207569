package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"relist/internal/common"
	"relist/internal/model"
	"relist/internal/service"
)

const candidateColumns = `source_id, title, category, media_refs, state, reason,
	destination_listing_id, last_error, source_price, rating, weight_kg,
	computed_price, margin_actual, viability_score, attempt_count,
	margin_not_guaranteed, discovered_at, updated_at`

// UpsertCandidates inserts newly discovered candidates and refreshes source
// data on ones seen before. LISTED rows are never touched; everything about
// them already reflects a published listing.
func (s *SQLiteStorage) UpsertCandidates(ctx context.Context, candidates []model.Candidate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCandidates(candidates); err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candidates (
			source_id, title, category, media_refs, state, source_price,
			rating, weight_kg, viability_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			media_refs = excluded.media_refs,
			source_price = excluded.source_price,
			rating = excluded.rating,
			weight_kg = excluded.weight_kg,
			viability_score = excluded.viability_score,
			updated_at = CURRENT_TIMESTAMP
		WHERE candidates.state != 'LISTED'
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range candidates {
		mediaJSON := ""
		if len(c.MediaRefs) > 0 {
			mediaBytes, marshalErr := json.Marshal(c.MediaRefs)
			if marshalErr == nil {
				mediaJSON = string(mediaBytes)
			}
		}

		state := c.State
		if state == "" {
			state = model.StateDiscovered
		}

		if _, err := stmt.ExecContext(ctx,
			c.SourceID,
			c.Title,
			c.Category,
			mediaJSON,
			string(state),
			c.SourcePrice,
			c.Rating,
			c.WeightKG,
			c.ViabilityScore,
		); err != nil {
			return fmt.Errorf("failed to upsert candidate %s: %w", c.SourceID, err)
		}
	}

	return tx.Commit()
}

// GetCandidate retrieves a candidate by source ID.
func (s *SQLiteStorage) GetCandidate(ctx context.Context, sourceID string) (*model.Candidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sourceID, "sourceID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE source_id = ?
	`, sourceID)

	candidate, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: candidate %s", common.ErrNotFound, sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return candidate, nil
}

// ListCandidates returns candidates matching the filter, oldest discovery
// first so the pipeline processes them in a stable order.
func (s *SQLiteStorage) ListCandidates(ctx context.Context, filter service.CandidateFilter) ([]model.Candidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates`
	args := make([]any, 0, len(filter.States)+1)

	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			if !model.ValidState(state) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidState, state)
			}
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		query += " WHERE state IN (" + strings.Join(placeholders, ", ") + ")"
	}

	query += " ORDER BY discovered_at, source_id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.Candidate
	for rows.Next() {
		candidate, scanErr := scanCandidate(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", scanErr)
		}
		candidates = append(candidates, *candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return candidates, nil
}

// Transition moves a candidate to a new lifecycle state, enforcing the
// forward-only transition graph, and records the change in candidate_history.
func (s *SQLiteStorage) Transition(ctx context.Context, sourceID string, newState model.CandidateState, fields service.TransitionFields) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sourceID, "sourceID"); err != nil {
		return err
	}
	if !model.ValidState(newState) {
		return fmt.Errorf("%w: %s", ErrInvalidState, newState)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentState model.CandidateState
	err = tx.QueryRowContext(ctx,
		"SELECT state FROM candidates WHERE source_id = ?", sourceID,
	).Scan(&currentState)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: candidate %s", common.ErrNotFound, sourceID)
	}
	if err != nil {
		return fmt.Errorf("failed to read candidate state: %w", err)
	}

	if !model.CanTransition(currentState, newState) {
		return fmt.Errorf("%w: %s -> %s for candidate %s",
			common.ErrInvalidTransition, currentState, newState, sourceID)
	}

	setClauses := []string{"state = ?", "updated_at = CURRENT_TIMESTAMP"}
	args := []any{string(newState)}

	if fields.ComputedPrice != nil {
		setClauses = append(setClauses, "computed_price = ?")
		args = append(args, *fields.ComputedPrice)
	}
	if fields.MarginActual != nil {
		setClauses = append(setClauses, "margin_actual = ?")
		args = append(args, *fields.MarginActual)
	}
	if fields.MarginNotGuaranteed != nil {
		setClauses = append(setClauses, "margin_not_guaranteed = ?")
		args = append(args, *fields.MarginNotGuaranteed)
	}
	if fields.Reason != nil {
		setClauses = append(setClauses, "reason = ?")
		args = append(args, string(*fields.Reason))
	}
	if fields.DestinationListingID != nil {
		setClauses = append(setClauses, "destination_listing_id = ?")
		args = append(args, *fields.DestinationListingID)
	}
	if fields.LastError != nil {
		setClauses = append(setClauses, "last_error = ?")
		args = append(args, *fields.LastError)
	}
	if fields.IncrementAttempt {
		setClauses = append(setClauses, "attempt_count = attempt_count + 1")
	}

	args = append(args, sourceID)
	if _, err := tx.ExecContext(ctx,
		"UPDATE candidates SET "+strings.Join(setClauses, ", ")+" WHERE source_id = ?",
		args...,
	); err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}

	var reason, lastError string
	if fields.Reason != nil {
		reason = string(*fields.Reason)
	}
	if fields.LastError != nil {
		lastError = *fields.LastError
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO candidate_history (source_id, from_state, to_state, reason, last_error)
		VALUES (?, ?, ?, ?, ?)
	`, sourceID, string(currentState), string(newState), reason, lastError); err != nil {
		return fmt.Errorf("failed to record candidate history: %w", err)
	}

	return tx.Commit()
}

// scanner abstracts over sql.Row and sql.Rows for candidate scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row scanner) (*model.Candidate, error) {
	var c model.Candidate
	var category, mediaJSON, reason, listingID, lastError sql.NullString
	var state string

	err := row.Scan(
		&c.SourceID,
		&c.Title,
		&category,
		&mediaJSON,
		&state,
		&reason,
		&listingID,
		&lastError,
		&c.SourcePrice,
		&c.Rating,
		&c.WeightKG,
		&c.ComputedPrice,
		&c.MarginActual,
		&c.ViabilityScore,
		&c.AttemptCount,
		&c.MarginNotGuaranteed,
		&c.DiscoveredAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.State = model.CandidateState(state)
	c.Category = category.String
	c.Reason = model.ReasonCode(reason.String)
	c.DestinationListingID = listingID.String
	c.LastError = lastError.String

	if mediaJSON.String != "" {
		if unmarshalErr := json.Unmarshal([]byte(mediaJSON.String), &c.MediaRefs); unmarshalErr != nil {
			return nil, fmt.Errorf("failed to decode media refs: %w", unmarshalErr)
		}
	}
	return &c, nil
}
