package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"relist/internal/cli"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review candidates awaiting approval",
		Long: `Walk through candidates parked in PENDING_REVIEW and approve or reject
each one. Decisions are stored and applied on the next 'relist run'.

Quitting mid-session keeps the remaining candidates pending.`,
		RunE: runReview,
	}

	cmd.Flags().String("reviewer", "", "Name recorded against each decision (default: $USER)")
	_ = viper.BindPFlag("review.reviewer", cmd.Flags().Lookup("reviewer"))

	return cmd
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	reviewer := viper.GetString("review.reviewer")
	if reviewer == "" {
		reviewer = os.Getenv("USER")
	}
	if reviewer == "" {
		reviewer = "reviewer"
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	r := cli.NewReviewer(store, reviewer, os.Stdin, os.Stdout)
	stats, err := r.Review(ctx)
	if err != nil && !errors.Is(err, cli.ErrReviewAborted) {
		return fmt.Errorf("review session failed: %w", err)
	}

	slog.Info(cli.FormatSuccess(fmt.Sprintf(
		"Review session done: %d approved, %d rejected, %d skipped",
		stats.Approved, stats.Rejected, stats.Skipped)))
	if stats.Approved > 0 {
		slog.Info(cli.FormatInfo("Publish approved candidates with: relist run"))
	}
	return nil
}
