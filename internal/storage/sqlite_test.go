package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relist/internal/common"
	"relist/internal/model"
	"relist/internal/service"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testCandidate(sourceID string) model.Candidate {
	return model.Candidate{
		SourceID:    sourceID,
		Title:       "Mellerware 3.5L Digital Air Fryer",
		Category:    "Air Fryers",
		MediaRefs:   []string{"https://img.example.com/" + sourceID + "/main.jpg"},
		State:       model.StateDiscovered,
		SourcePrice: 899,
		Rating:      4.4,
		WeightKG:    4.2,
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates database file and parent directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "relist.db")

		store, err := NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		require.NoError(t, store.Migrate(context.Background()))
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("")
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}

func TestUpsertCandidates(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	t.Run("inserts new candidates", func(t *testing.T) {
		require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{
			testCandidate("PLID1"),
			testCandidate("PLID2"),
		}))

		got, err := store.GetCandidate(ctx, "PLID1")
		require.NoError(t, err)
		assert.Equal(t, model.StateDiscovered, got.State)
		assert.Equal(t, "Mellerware 3.5L Digital Air Fryer", got.Title)
		assert.InDelta(t, 899, got.SourcePrice, 1e-9)
		assert.Equal(t, []string{"https://img.example.com/PLID1/main.jpg"}, got.MediaRefs)
	})

	t.Run("refreshes source data without resetting state", func(t *testing.T) {
		require.NoError(t, store.Transition(ctx, "PLID1", model.StatePriced, service.TransitionFields{}))

		updated := testCandidate("PLID1")
		updated.SourcePrice = 799
		require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{updated}))

		got, err := store.GetCandidate(ctx, "PLID1")
		require.NoError(t, err)
		assert.Equal(t, model.StatePriced, got.State, "re-discovery must not reset pipeline state")
		assert.InDelta(t, 799, got.SourcePrice, 1e-9)
	})

	t.Run("never touches listed candidates", func(t *testing.T) {
		listed := testCandidate("PLID3")
		require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{listed}))
		require.NoError(t, store.Transition(ctx, "PLID3", model.StatePriced, service.TransitionFields{}))
		require.NoError(t, store.Transition(ctx, "PLID3", model.StateApproved, service.TransitionFields{}))
		require.NoError(t, store.Transition(ctx, "PLID3", model.StateListed, service.TransitionFields{}))

		listed.SourcePrice = 100
		listed.Title = "should not land"
		require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{listed}))

		got, err := store.GetCandidate(ctx, "PLID3")
		require.NoError(t, err)
		assert.Equal(t, model.StateListed, got.State)
		assert.Equal(t, "Mellerware 3.5L Digital Air Fryer", got.Title)
		assert.InDelta(t, 899, got.SourcePrice, 1e-9)
	})

	t.Run("defaults empty state to DISCOVERED", func(t *testing.T) {
		raw := testCandidate("PLID4")
		raw.State = ""
		require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{raw}))

		got, err := store.GetCandidate(ctx, "PLID4")
		require.NoError(t, err)
		assert.Equal(t, model.StateDiscovered, got.State)
	})

	t.Run("stores candidate with missing title for later failure handling", func(t *testing.T) {
		untitled := testCandidate("PLID5")
		untitled.Title = ""
		ok := testCandidate("PLID6")
		require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{untitled, ok}))

		got, err := store.GetCandidate(ctx, "PLID5")
		require.NoError(t, err)
		assert.Empty(t, got.Title)

		_, err = store.GetCandidate(ctx, "PLID6")
		require.NoError(t, err, "one bad candidate must not block the rest of the batch")
	})

	t.Run("rejects candidate without source id", func(t *testing.T) {
		bad := testCandidate("")
		err := store.UpsertCandidates(ctx, []model.Candidate{bad})
		assert.ErrorIs(t, err, ErrInvalidCandidate)
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		bad := testCandidate("PLID7")
		bad.State = "TELEPORTED"
		err := store.UpsertCandidates(ctx, []model.Candidate{bad})
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestGetCandidateNotFound(t *testing.T) {
	store := setupTestStorage(t)

	_, err := store.GetCandidate(context.Background(), "PLID404")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListCandidates(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{
		testCandidate("PLID1"),
		testCandidate("PLID2"),
		testCandidate("PLID3"),
	}))
	require.NoError(t, store.Transition(ctx, "PLID2", model.StatePriced, service.TransitionFields{}))

	t.Run("filters by state", func(t *testing.T) {
		discovered, err := store.ListCandidates(ctx, service.CandidateFilter{
			States: []model.CandidateState{model.StateDiscovered},
		})
		require.NoError(t, err)
		require.Len(t, discovered, 2)
		for _, c := range discovered {
			assert.Equal(t, model.StateDiscovered, c.State)
		}
	})

	t.Run("no filter returns everything", func(t *testing.T) {
		all, err := store.ListCandidates(ctx, service.CandidateFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("respects limit", func(t *testing.T) {
		limited, err := store.ListCandidates(ctx, service.CandidateFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		_, err := store.ListCandidates(ctx, service.CandidateFilter{
			States: []model.CandidateState{"TELEPORTED"},
		})
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestTransition(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{testCandidate("PLID1")}))

	t.Run("writes optional fields", func(t *testing.T) {
		price := 2499.99
		margin := 0.42
		flagged := false
		require.NoError(t, store.Transition(ctx, "PLID1", model.StatePriced, service.TransitionFields{
			ComputedPrice:       &price,
			MarginActual:        &margin,
			MarginNotGuaranteed: &flagged,
		}))

		got, err := store.GetCandidate(ctx, "PLID1")
		require.NoError(t, err)
		assert.Equal(t, model.StatePriced, got.State)
		assert.InDelta(t, 2499.99, got.ComputedPrice, 1e-9)
		assert.InDelta(t, 0.42, got.MarginActual, 1e-9)
		assert.False(t, got.MarginNotGuaranteed)
	})

	t.Run("rejects illegal transition", func(t *testing.T) {
		err := store.Transition(ctx, "PLID1", model.StateListed, service.TransitionFields{})
		assert.ErrorIs(t, err, common.ErrInvalidTransition)

		// The failed transition must leave the row untouched.
		got, getErr := store.GetCandidate(ctx, "PLID1")
		require.NoError(t, getErr)
		assert.Equal(t, model.StatePriced, got.State)
	})

	t.Run("listed is terminal", func(t *testing.T) {
		require.NoError(t, store.Transition(ctx, "PLID1", model.StateApproved, service.TransitionFields{}))
		listingID := "M-9001"
		require.NoError(t, store.Transition(ctx, "PLID1", model.StateListed, service.TransitionFields{
			DestinationListingID: &listingID,
		}))

		err := store.Transition(ctx, "PLID1", model.StateApproved, service.TransitionFields{})
		assert.ErrorIs(t, err, common.ErrInvalidTransition)

		got, getErr := store.GetCandidate(ctx, "PLID1")
		require.NoError(t, getErr)
		assert.Equal(t, "M-9001", got.DestinationListingID)
	})

	t.Run("increments attempt count", func(t *testing.T) {
		require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{testCandidate("PLID2")}))
		require.NoError(t, store.Transition(ctx, "PLID2", model.StatePriced, service.TransitionFields{}))
		require.NoError(t, store.Transition(ctx, "PLID2", model.StateApproved, service.TransitionFields{}))

		lastError := "503 from destination"
		require.NoError(t, store.Transition(ctx, "PLID2", model.StateFailed, service.TransitionFields{
			LastError:        &lastError,
			IncrementAttempt: true,
		}))

		got, err := store.GetCandidate(ctx, "PLID2")
		require.NoError(t, err)
		assert.Equal(t, 1, got.AttemptCount)
		assert.Equal(t, "503 from destination", got.LastError)
	})

	t.Run("unknown candidate", func(t *testing.T) {
		err := store.Transition(ctx, "PLID404", model.StatePriced, service.TransitionFields{})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestTransitionHistory(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCandidates(ctx, []model.Candidate{testCandidate("PLID1")}))
	require.NoError(t, store.Transition(ctx, "PLID1", model.StatePriced, service.TransitionFields{}))
	reason := model.ReasonLowMargin
	require.NoError(t, store.Transition(ctx, "PLID1", model.StateRejected, service.TransitionFields{
		Reason: &reason,
	}))

	rows, err := store.db.QueryContext(ctx, `
		SELECT from_state, to_state, reason FROM candidate_history
		WHERE source_id = ? ORDER BY id
	`, "PLID1")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	type entry struct {
		from, to, reason string
	}
	var history []entry
	for rows.Next() {
		var e entry
		require.NoError(t, rows.Scan(&e.from, &e.to, &e.reason))
		history = append(history, e)
	}
	require.NoError(t, rows.Err())

	require.Len(t, history, 2)
	assert.Equal(t, entry{from: "DISCOVERED", to: "PRICED"}, history[0])
	assert.Equal(t, entry{from: "PRICED", to: "REJECTED", reason: "LOW_MARGIN"}, history[1])
}

func TestApprovals(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, store.SetApproval(ctx, service.Approval{
			SourceID: "PLID1",
			Reviewer: "josh",
			Approved: true,
		}))

		got, err := store.GetApproval(ctx, "PLID1")
		require.NoError(t, err)
		assert.True(t, got.Approved)
		assert.Equal(t, "josh", got.Reviewer)
		assert.False(t, got.DecidedAt.IsZero())
	})

	t.Run("later decision wins", func(t *testing.T) {
		require.NoError(t, store.SetApproval(ctx, service.Approval{
			SourceID: "PLID1",
			Reviewer: "josh",
			Approved: false,
		}))

		got, err := store.GetApproval(ctx, "PLID1")
		require.NoError(t, err)
		assert.False(t, got.Approved)
	})

	t.Run("absent approval", func(t *testing.T) {
		_, err := store.GetApproval(ctx, "PLID404")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestSaveRunSummary(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	summary := &service.RunSummary{
		RunID:      "run-abc123",
		Discovered: 10,
		Priced:     8,
		Approved:   5,
		Rejected:   3,
		Listed:     5,
		Margins:    []float64{0.3, 0.5},
		Flagged:    []string{"PLID7"},
	}
	require.NoError(t, store.SaveRunSummary(ctx, summary))

	var listed int
	var marginAvg float64
	var flagged string
	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT listed, margin_avg, flagged FROM runs WHERE run_id = ?", "run-abc123",
	).Scan(&listed, &marginAvg, &flagged))

	assert.Equal(t, 5, listed)
	assert.InDelta(t, 0.4, marginAvg, 1e-9)
	assert.Equal(t, `["PLID7"]`, flagged)

	t.Run("rejects missing run id", func(t *testing.T) {
		err := store.SaveRunSummary(ctx, &service.RunSummary{})
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}
