// Package pipeline orchestrates one collect, price, gate, publish, report pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"relist/internal/common"
	"relist/internal/model"
	"relist/internal/pricing"
	"relist/internal/service"
	"relist/internal/trends"
)

// ErrRunInProgress is returned when a run starts while another is in flight.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Config holds the orchestrator settings.
type Config struct {
	MaxCandidates      int
	MaxPublishAttempts int
	StockQuantity      int
	RateLimitDelay     time.Duration
	Retry              service.RetryOptions
	DryRun             bool
	ShowProgress       bool
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		MaxCandidates:      50,
		MaxPublishAttempts: 3,
		StockQuantity:      100,
		RateLimitDelay:     2 * time.Second,
	}
}

// Pipeline drives candidates through the listing lifecycle. Runs are
// sequential; publishing paces itself against the destination rate limit and
// checks for cancellation between candidates.
type Pipeline struct {
	store       service.Storage
	collector   service.Collector
	engine      *pricing.Engine
	gate        service.Gate
	marketplace service.Marketplace
	reporters   []service.ReportWriter
	cfg         Config
	runMu       sync.Mutex
}

// New creates a pipeline with the given dependencies.
func New(store service.Storage, collector service.Collector, engine *pricing.Engine,
	gate service.Gate, marketplace service.Marketplace, cfg Config,
	reporters ...service.ReportWriter) *Pipeline {
	return &Pipeline{
		store:       store,
		collector:   collector,
		engine:      engine,
		gate:        gate,
		marketplace: marketplace,
		reporters:   reporters,
		cfg:         cfg,
	}
}

// Run executes one full pipeline pass and returns its summary. Re-running
// against unchanged source and destination state lists nothing twice.
func (p *Pipeline) Run(ctx context.Context) (*service.RunSummary, error) {
	if !p.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.runMu.Unlock()

	summary := &service.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		DryRun:    p.cfg.DryRun,
	}
	slog.Info("Starting pipeline run",
		"run_id", summary.RunID,
		"dry_run", summary.DryRun)

	if err := p.collect(ctx, summary); err != nil {
		return nil, err
	}
	if err := p.price(ctx, summary); err != nil {
		return nil, err
	}
	if err := p.gateCandidates(ctx, summary); err != nil {
		return nil, err
	}
	if err := p.publish(ctx, summary); err != nil {
		return nil, err
	}

	summary.FinishedAt = time.Now()
	p.report(ctx, summary)

	slog.Info("Pipeline run finished",
		"run_id", summary.RunID,
		"listed", summary.Listed,
		"failed", summary.Failed,
		"duration", summary.Duration())
	return summary, nil
}

// collect pulls raw candidates and upserts them as DISCOVERED. The upsert
// skips LISTED rows, so re-discovering a published product changes nothing.
func (p *Pipeline) collect(ctx context.Context, summary *service.RunSummary) error {
	candidates, err := p.collector.Collect(ctx, p.cfg.MaxCandidates)
	if err != nil {
		return fmt.Errorf("collect failed: %w", err)
	}

	month := time.Now().Month()
	for i := range candidates {
		candidates[i].ViabilityScore = trends.ScoreViability(&candidates[i], month)
	}

	if len(candidates) > 0 {
		if err := p.store.UpsertCandidates(ctx, candidates); err != nil {
			return fmt.Errorf("failed to store collected candidates: %w", err)
		}
	}
	summary.Discovered = len(candidates)
	slog.Info("Collected candidates", "count", len(candidates))
	return nil
}

// price runs the engine over DISCOVERED candidates. Bad source data fails the
// candidate immediately; it never reaches pricing or publishing.
func (p *Pipeline) price(ctx context.Context, summary *service.RunSummary) error {
	discovered, err := p.store.ListCandidates(ctx, service.CandidateFilter{
		States: []model.CandidateState{model.StateDiscovered},
	})
	if err != nil {
		return fmt.Errorf("failed to list discovered candidates: %w", err)
	}

	for i := range discovered {
		candidate := &discovered[i]

		if !candidate.ValidInput() {
			reason := model.ReasonInvalidInput
			if err := p.store.Transition(ctx, candidate.SourceID, model.StateFailed,
				service.TransitionFields{Reason: &reason}); err != nil {
				return err
			}
			summary.Failed++
			slog.Warn("Candidate has unusable source data",
				"source_id", candidate.SourceID)
			continue
		}

		quote, err := p.engine.Price(candidate.SourcePrice, candidate.Category, candidate.WeightKG)
		if err != nil {
			reason := model.ReasonInvalidInput
			lastError := err.Error()
			if txErr := p.store.Transition(ctx, candidate.SourceID, model.StateFailed,
				service.TransitionFields{Reason: &reason, LastError: &lastError}); txErr != nil {
				return txErr
			}
			summary.Failed++
			continue
		}

		fields := service.TransitionFields{
			ComputedPrice:       &quote.ComputedPrice,
			MarginActual:        &quote.RealizedMargin,
			MarginNotGuaranteed: &quote.Breakdown.MarginNotGuaranteed,
		}
		if err := p.store.Transition(ctx, candidate.SourceID, model.StatePriced, fields); err != nil {
			return err
		}
		summary.Priced++
		summary.Margins = append(summary.Margins, quote.RealizedMargin)
	}
	return nil
}

// gateCandidates reviews everything priced but not yet decided.
func (p *Pipeline) gateCandidates(ctx context.Context, summary *service.RunSummary) error {
	waiting, err := p.store.ListCandidates(ctx, service.CandidateFilter{
		States: []model.CandidateState{model.StatePriced, model.StatePendingReview},
	})
	if err != nil {
		return fmt.Errorf("failed to list candidates for review: %w", err)
	}

	for i := range waiting {
		candidate := &waiting[i]

		next, reason, err := p.gate.Evaluate(ctx, candidate)
		if err != nil {
			return fmt.Errorf("gate failed for %s: %w", candidate.SourceID, err)
		}

		if next != candidate.State {
			fields := service.TransitionFields{}
			if reason != "" {
				fields.Reason = &reason
			}
			if err := p.store.Transition(ctx, candidate.SourceID, next, fields); err != nil {
				return err
			}
		}

		switch next {
		case model.StateApproved:
			summary.Approved++
		case model.StateRejected:
			summary.Rejected++
			slog.Info("Candidate rejected",
				"source_id", candidate.SourceID,
				"reason", reason)
		case model.StatePendingReview:
			summary.Pending++
		}
	}
	return nil
}

// publish lists approved candidates one at a time. Cancellation is checked
// between candidates; a candidate is LISTED or it is not, never half done.
func (p *Pipeline) publish(ctx context.Context, summary *service.RunSummary) error {
	queue, err := p.store.ListCandidates(ctx, service.CandidateFilter{
		States: []model.CandidateState{model.StateApproved, model.StateFailed},
	})
	if err != nil {
		return fmt.Errorf("failed to list publish queue: %w", err)
	}

	var bar *progressbar.ProgressBar
	if p.cfg.ShowProgress && len(queue) > 0 {
		bar = progressbar.NewOptions(len(queue),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Publishing listings..."),
		)
	}

	for i := range queue {
		candidate := &queue[i]
		if bar != nil {
			_ = bar.Add(1)
		}

		if err := ctx.Err(); err != nil {
			slog.Info("Run cancelled, stopping before next candidate",
				"remaining", len(queue)-i)
			return err
		}

		if candidate.State == model.StateFailed {
			if candidate.Reason == model.ReasonInvalidInput {
				continue
			}
			if candidate.AttemptCount >= p.cfg.MaxPublishAttempts {
				summary.Skipped++
				summary.Flagged = append(summary.Flagged, candidate.SourceID)
				slog.Warn("Candidate exceeded publish attempts, skipping permanently",
					"source_id", candidate.SourceID,
					"attempts", candidate.AttemptCount)
				continue
			}
			if err := p.store.Transition(ctx, candidate.SourceID, model.StateApproved,
				service.TransitionFields{}); err != nil {
				return err
			}
			candidate.State = model.StateApproved
		}

		if i > 0 && p.cfg.RateLimitDelay > 0 {
			if err := p.pause(ctx); err != nil {
				return err
			}
		}

		if err := p.publishOne(ctx, candidate, summary); err != nil {
			// Auth problems poison every later candidate too.
			if errors.Is(err, common.ErrAuthFailed) {
				return fmt.Errorf("publishing aborted: %w", err)
			}
			// Record the failure even when the run is being cancelled; the
			// candidate must land in a definite state.
			lastError := err.Error()
			if txErr := p.store.Transition(context.WithoutCancel(ctx), candidate.SourceID, model.StateFailed,
				service.TransitionFields{LastError: &lastError, IncrementAttempt: true}); txErr != nil {
				return txErr
			}
			summary.Failed++
			slog.Error("Failed to publish candidate",
				"source_id", candidate.SourceID,
				"error", err)
		}
	}
	return nil
}

// publishOne creates (or reconciles) a single listing and transitions the
// candidate to LISTED.
func (p *Pipeline) publishOne(ctx context.Context, candidate *model.Candidate, summary *service.RunSummary) error {
	existing, err := p.marketplace.FindExisting(ctx, candidate)
	if err != nil {
		return fmt.Errorf("duplicate lookup failed: %w", err)
	}
	if existing != nil {
		slog.Info("Listing already exists on destination, reconciling",
			"source_id", candidate.SourceID,
			"listing_id", existing.ID)
		summary.Skipped++
		return p.store.Transition(ctx, candidate.SourceID, model.StateListed,
			service.TransitionFields{DestinationListingID: &existing.ID})
	}

	var result *service.ListingResult
	err = common.WithRetry(ctx, func() error {
		var createErr error
		result, createErr = p.marketplace.CreateListing(ctx, candidate)
		return createErr
	}, p.retryOptions())
	if err != nil {
		if errors.Is(err, common.ErrDuplicateListing) {
			// The destination dedupes by idempotency key; this candidate is
			// already live even though our first lookup could not see it.
			// Look it up again to record the real listing ID.
			fields := service.TransitionFields{}
			found, lookupErr := p.marketplace.FindExisting(ctx, candidate)
			switch {
			case lookupErr != nil:
				slog.Warn("Duplicate reported but lookup failed, listing ID unknown",
					"source_id", candidate.SourceID,
					"error", lookupErr)
			case found != nil:
				fields.DestinationListingID = &found.ID
			default:
				slog.Warn("Duplicate reported but lookup found nothing, listing ID unknown",
					"source_id", candidate.SourceID)
			}
			slog.Info("Destination reports a duplicate, treating as listed",
				"source_id", candidate.SourceID)
			summary.Skipped++
			return p.store.Transition(ctx, candidate.SourceID, model.StateListed, fields)
		}
		return err
	}

	// The create succeeded; finish the candidate even if the run is being
	// cancelled, so it is LISTED rather than half applied.
	finishCtx := context.WithoutCancel(ctx)

	if len(candidate.MediaRefs) > 0 {
		if err := p.marketplace.UploadImages(finishCtx, result.ListingID, candidate.MediaRefs); err != nil {
			slog.Warn("Failed to upload listing images",
				"source_id", candidate.SourceID,
				"listing_id", result.ListingID,
				"error", err)
		}
	}
	if err := p.marketplace.UpdateStock(finishCtx, result.ListingID, p.cfg.StockQuantity); err != nil {
		slog.Warn("Failed to set listing stock",
			"source_id", candidate.SourceID,
			"listing_id", result.ListingID,
			"error", err)
	}

	if err := p.store.Transition(finishCtx, candidate.SourceID, model.StateListed,
		service.TransitionFields{DestinationListingID: &result.ListingID}); err != nil {
		return err
	}
	summary.Listed++
	slog.Info("Candidate listed",
		"source_id", candidate.SourceID,
		"listing_id", result.ListingID,
		"dry_run", result.DryRun)
	return nil
}

// report persists the summary and hands it to every report writer. Reporting
// failures are logged, never fatal.
func (p *Pipeline) report(ctx context.Context, summary *service.RunSummary) {
	if err := p.store.SaveRunSummary(ctx, summary); err != nil {
		slog.Error("Failed to save run summary",
			"run_id", summary.RunID,
			"error", err)
	}

	if len(p.reporters) == 0 {
		return
	}
	listed, err := p.store.ListCandidates(ctx, service.CandidateFilter{
		States: []model.CandidateState{model.StateListed},
	})
	if err != nil {
		slog.Error("Failed to load listed candidates for report", "error", err)
		listed = nil
	}
	for _, reporter := range p.reporters {
		if err := reporter.Write(ctx, summary, listed); err != nil {
			slog.Error("Report writer failed",
				"run_id", summary.RunID,
				"error", err)
		}
	}
}

func (p *Pipeline) pause(ctx context.Context) error {
	timer := time.NewTimer(p.cfg.RateLimitDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pipeline) retryOptions() service.RetryOptions {
	opts := p.cfg.Retry
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = p.cfg.MaxPublishAttempts
	}
	return opts
}
