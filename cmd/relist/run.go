package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"relist/internal/cli"
	"relist/internal/collector"
	"relist/internal/common"
	"relist/internal/config"
	"relist/internal/gate"
	"relist/internal/makro"
	"relist/internal/model"
	"relist/internal/pipeline"
	"relist/internal/pricing"
	"relist/internal/service"
	"relist/internal/sheets"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline pass",
		Long: `Collect candidates from the source marketplace, price them, gate them
through review, and publish approved candidates to the destination API.

Re-running against unchanged state is a no-op: already listed candidates
are skipped and existing destination listings are reconciled, not duplicated.

Examples:
  relist run                       # Full pass with configured settings
  relist run --dry-run             # Build payloads without any network calls
  relist run --review-mode manual  # Queue candidates for 'relist review'
  relist run --max-candidates 10   # Limit the collection window`,
		RunE: runPipeline,
	}

	// Flags
	cmd.Flags().Bool("dry-run", false, "Build payloads without calling the destination API")
	cmd.Flags().String("review-mode", "", "Review mode (auto, manual)")
	cmd.Flags().Int("max-candidates", 0, "Maximum candidates to collect this run (0 = configured default)")
	cmd.Flags().String("source-file", "", "Candidate source file (overrides collector.source_file)")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("run.dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("run.review_mode", cmd.Flags().Lookup("review-mode"))
	_ = viper.BindPFlag("run.max_candidates", cmd.Flags().Lookup("max-candidates"))
	_ = viper.BindPFlag("run.source_file", cmd.Flags().Lookup("source-file"))

	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dryRun := viper.GetBool("dry_run") || viper.GetBool("run.dry_run")
	reviewMode := viper.GetString("review_mode")
	if v := viper.GetString("run.review_mode"); v != "" {
		reviewMode = v
	}

	slog.Info(cli.FormatTitle("Starting listing pipeline"))

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	charm, err := config.LoadCharmTable()
	if err != nil {
		return err
	}
	engine, err := pricing.New(model.DefaultFeeSchedule(), charm, config.LoadPricingConfig())
	if err != nil {
		return fmt.Errorf("failed to build pricing engine: %w", err)
	}

	reviewGate, err := gate.New(reviewMode, config.LoadGateConfig(), store)
	if err != nil {
		return fmt.Errorf("failed to build review gate: %w", err)
	}

	makroCfg := config.LoadMakroConfig(dryRun)
	if err := makroCfg.Validate(); err != nil {
		return err
	}
	marketplace, err := makro.NewClient(ctx, &makroCfg)
	if err != nil {
		return fmt.Errorf("failed to build destination client: %w", err)
	}

	sourceFile := config.SourceFile()
	if v := viper.GetString("run.source_file"); v != "" {
		sourceFile = config.ExpandPath(v)
	}
	if sourceFile == "" {
		return common.NewUserError("no candidate source configured: set collector.source_file or --source-file", nil)
	}

	pipeCfg := config.LoadPipelineConfig(dryRun)
	if v := viper.GetInt("run.max_candidates"); v > 0 {
		pipeCfg.MaxCandidates = v
	}
	pipeCfg.ShowProgress = true

	var reporters []service.ReportWriter
	if config.SheetsEnabled() {
		sheetsCfg, cfgErr := config.LoadSheetsConfig()
		if cfgErr != nil {
			return fmt.Errorf("sheets export enabled but misconfigured: %w", cfgErr)
		}
		writer, writerErr := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
		if writerErr != nil {
			return fmt.Errorf("failed to build sheets writer: %w", writerErr)
		}
		reporters = append(reporters, writer)
	}

	p := pipeline.New(store, collector.NewFileCollector(sourceFile), engine,
		reviewGate, marketplace, pipeCfg, reporters...)

	summary, err := p.Run(ctx)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrAuthFailed):
			return common.NewUserError("the destination API rejected the credentials; check makro.api_key and makro.api_secret", err)
		case errors.Is(err, pipeline.ErrRunInProgress):
			return common.NewUserError("another run is already in progress", err)
		}
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	printSummary(summary, reviewMode)
	return nil
}

func printSummary(summary *service.RunSummary, reviewMode string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Discovered: %d\n", summary.Discovered)
	fmt.Fprintf(&b, "Priced:     %d\n", summary.Priced)
	fmt.Fprintf(&b, "Approved:   %d\n", summary.Approved)
	fmt.Fprintf(&b, "Rejected:   %d\n", summary.Rejected)
	fmt.Fprintf(&b, "Pending:    %d\n", summary.Pending)
	fmt.Fprintf(&b, "Listed:     %d\n", summary.Listed)
	fmt.Fprintf(&b, "Failed:     %d\n", summary.Failed)
	fmt.Fprintf(&b, "Skipped:    %d\n", summary.Skipped)
	fmt.Fprintf(&b, "Duration:   %s", summary.Duration().Round(time.Millisecond))

	title := fmt.Sprintf("Run %s", summary.RunID)
	if summary.DryRun {
		title += " (dry run)"
	}
	slog.Info(cli.RenderBox(title, b.String()))

	if len(summary.Flagged) > 0 {
		slog.Warn(cli.FormatWarning(fmt.Sprintf(
			"%d candidate(s) exhausted publish attempts and need attention: %s",
			len(summary.Flagged), strings.Join(summary.Flagged, ", "))))
	}
	if summary.Pending > 0 && reviewMode == gate.ModeManual {
		slog.Info(cli.FormatInfo(fmt.Sprintf(
			"%d candidate(s) awaiting review. Decide with: relist review", summary.Pending)))
	}
}
