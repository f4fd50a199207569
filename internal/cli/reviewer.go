package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"relist/internal/model"
	"relist/internal/service"
	"relist/internal/trends"
)

// ErrReviewAborted is returned when the reviewer quits mid-session.
var ErrReviewAborted = errors.New("review session aborted")

// ReviewStats summarizes one review session.
type ReviewStats struct {
	Approved int
	Rejected int
	Skipped  int
}

// Reviewer walks pending candidates and records approve and reject decisions
// into the store, where the manual gate picks them up on the next run.
type Reviewer struct {
	store    service.Storage
	reader   *bufio.Reader
	writer   io.Writer
	reviewer string
}

// NewReviewer creates an interactive reviewer. Reader and writer default to
// stdin and stdout.
func NewReviewer(store service.Storage, reviewerName string, reader io.Reader, writer io.Writer) *Reviewer {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Reviewer{
		store:    store,
		reader:   bufio.NewReader(reader),
		writer:   writer,
		reviewer: reviewerName,
	}
}

// Review walks every PENDING_REVIEW candidate and prompts for a decision.
func (r *Reviewer) Review(ctx context.Context) (ReviewStats, error) {
	var stats ReviewStats

	pending, err := r.store.ListCandidates(ctx, service.CandidateFilter{
		States: []model.CandidateState{model.StatePendingReview},
	})
	if err != nil {
		return stats, fmt.Errorf("failed to list pending candidates: %w", err)
	}

	if len(pending) == 0 {
		fmt.Fprintln(r.writer, FormatInfo("No candidates waiting for review."))
		return stats, nil
	}

	fmt.Fprintln(r.writer, FormatTitle(fmt.Sprintf("%d candidates awaiting review", len(pending))))

	for i := range pending {
		candidate := &pending[i]
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		fmt.Fprintln(r.writer, RenderBox("Candidate Details", r.formatCandidate(candidate)))

		choice, err := r.promptChoice(ctx, "[A]pprove  [R]eject  [S]kip  [Q]uit")
		if err != nil {
			return stats, err
		}

		switch choice {
		case "a":
			if err := r.record(ctx, candidate.SourceID, true); err != nil {
				return stats, err
			}
			stats.Approved++
			fmt.Fprintln(r.writer, FormatSuccess("Approved "+candidate.SourceID))
		case "r":
			if err := r.record(ctx, candidate.SourceID, false); err != nil {
				return stats, err
			}
			stats.Rejected++
			fmt.Fprintln(r.writer, FormatError("Rejected "+candidate.SourceID))
		case "s":
			stats.Skipped++
		case "q":
			fmt.Fprintln(r.writer, FormatWarning("Review aborted; remaining candidates stay pending."))
			return stats, ErrReviewAborted
		}
	}

	fmt.Fprintln(r.writer, FormatSuccess(fmt.Sprintf(
		"Review complete: %d approved, %d rejected, %d skipped",
		stats.Approved, stats.Rejected, stats.Skipped)))
	return stats, nil
}

func (r *Reviewer) record(ctx context.Context, sourceID string, approved bool) error {
	return r.store.SetApproval(ctx, service.Approval{
		SourceID: sourceID,
		Reviewer: r.reviewer,
		Approved: approved,
	})
}

func (r *Reviewer) formatCandidate(c *model.Candidate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Source ID:"), c.SourceID)
	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Title:"), c.Title)
	if c.Category != "" {
		fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Category:"), c.Category)
	}
	fmt.Fprintf(&b, "%s R%.2f\n", SubtleStyle.Render("Source price:"), c.SourcePrice)
	fmt.Fprintf(&b, "%s R%.2f\n", SubtleStyle.Render("Listing price:"), c.ComputedPrice)

	marginLine := fmt.Sprintf("%.1f%%", c.MarginActual*100)
	if c.MarginNotGuaranteed {
		marginLine = WarningStyle.Render(marginLine + " (not guaranteed)")
	}
	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Margin:"), marginLine)
	fmt.Fprintf(&b, "%s %.1f / 5\n", SubtleStyle.Render("Rating:"), c.Rating)
	fmt.Fprintf(&b, "%s %s", SubtleStyle.Render("Viability:"), formatViability(c.ViabilityScore))
	return b.String()
}

func formatViability(score int) string {
	text := fmt.Sprintf("%d / 100", score)
	switch {
	case score >= trends.ScoreStrong:
		return SuccessStyle.Render(text)
	case score < trends.ScoreWeak:
		return ErrorStyle.Render(text)
	default:
		return text
	}
}

// promptChoice reads a single choice, reprompting on anything unexpected.
func (r *Reviewer) promptChoice(ctx context.Context, prompt string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		fmt.Fprint(r.writer, FormatPrompt(prompt))
		line, err := r.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "q", nil
			}
			return "", fmt.Errorf("failed to read choice: %w", err)
		}

		choice := strings.ToLower(strings.TrimSpace(line))
		switch choice {
		case "a", "r", "s", "q":
			return choice, nil
		default:
			fmt.Fprintln(r.writer, FormatWarning("Please answer a, r, s, or q."))
		}
	}
}
