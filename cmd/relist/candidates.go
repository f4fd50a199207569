package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"relist/internal/cli"
	"relist/internal/model"
	"relist/internal/service"
)

func candidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List tracked candidates",
		Long: `Show the candidates in the local store, optionally filtered by state.

Examples:
  relist candidates                  # All candidates
  relist candidates --state LISTED   # Only published candidates
  relist candidates --state FAILED --limit 20`,
		RunE: runCandidates,
	}

	cmd.Flags().StringP("state", "s", "", "Filter by state (DISCOVERED, PRICED, PENDING_REVIEW, APPROVED, REJECTED, LISTED, FAILED)")
	cmd.Flags().IntP("limit", "n", 0, "Maximum rows to show (0 = all)")

	_ = viper.BindPFlag("candidates.state", cmd.Flags().Lookup("state"))
	_ = viper.BindPFlag("candidates.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runCandidates(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter := service.CandidateFilter{Limit: viper.GetInt("candidates.limit")}
	if s := viper.GetString("candidates.state"); s != "" {
		state := model.CandidateState(strings.ToUpper(s))
		if !model.ValidState(state) {
			return fmt.Errorf("unknown state %q", s)
		}
		filter.States = []model.CandidateState{state}
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

	candidates, err := store.ListCandidates(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list candidates: %w", err)
	}

	if len(candidates) == 0 {
		slog.Info(cli.FormatInfo("No candidates found. Discover some with: relist run"))
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-14s %-14s %9s %9s %7s %s\n", "SOURCE", "STATE", "SOURCE R", "PRICE R", "MARGIN", "TITLE")
	for i := range candidates {
		c := &candidates[i]
		fmt.Fprintf(&b, "%-14s %-14s %9.2f %9s %7s %s\n",
			c.SourceID, c.State, c.SourcePrice,
			formatPrice(c.ComputedPrice), formatMargin(c), truncate(c.Title, 40))
	}
	fmt.Fprintf(&b, "\n%d candidate(s)", len(candidates))

	slog.Info(cli.RenderBox("Candidates", strings.TrimRight(b.String(), "\n")))
	return nil
}

func formatPrice(price float64) string {
	if price <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", price)
}

func formatMargin(c *model.Candidate) string {
	if !c.Priced() {
		return "-"
	}
	s := fmt.Sprintf("%.0f%%", c.MarginActual*100)
	if c.MarginNotGuaranteed {
		s += "*"
	}
	return s
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
