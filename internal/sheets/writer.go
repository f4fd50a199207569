package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"relist/internal/common"
	"relist/internal/model"
	"relist/internal/service"
)

// Writer appends run summaries and newly listed candidates to a spreadsheet.
// It implements the ReportWriter interface; rows accumulate run over run as
// an audit trail.
type Writer struct {
	service *sheetsapi.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: svc,
		logger:  logger,
	}, nil
}

// Write implements the ReportWriter interface.
func (w *Writer) Write(ctx context.Context, summary *service.RunSummary, listed []model.Candidate) error {
	w.logger.Info("exporting run report",
		"run_id", summary.RunID,
		"listed", len(listed))

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	runRow := [][]any{summaryRow(summary)}
	err := common.WithRetry(ctx, func() error {
		return w.appendRows(ctx, w.config.RunsSheet, runRow)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to append run summary: %w", err)
	}

	if len(listed) == 0 {
		return nil
	}

	listingRows := make([][]any, 0, len(listed))
	for i := range listed {
		listingRows = append(listingRows, listingRow(summary.RunID, &listed[i]))
	}
	err = common.WithRetry(ctx, func() error {
		return w.appendRows(ctx, w.config.ListingsSheet, listingRows)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to append listings: %w", err)
	}

	w.logger.Info("run report exported",
		"run_id", summary.RunID,
		"spreadsheet_id", w.config.SpreadsheetID)
	return nil
}

func summaryRow(summary *service.RunSummary) []any {
	var marginAvg float64
	if len(summary.Margins) > 0 {
		for _, m := range summary.Margins {
			marginAvg += m
		}
		marginAvg /= float64(len(summary.Margins))
	}

	return []any{
		summary.RunID,
		summary.StartedAt.Format(time.RFC3339),
		summary.FinishedAt.Format(time.RFC3339),
		summary.DryRun,
		summary.Discovered,
		summary.Priced,
		summary.Approved,
		summary.Rejected,
		summary.Pending,
		summary.Listed,
		summary.Failed,
		summary.Skipped,
		fmt.Sprintf("%.4f", marginAvg),
		strings.Join(summary.Flagged, ", "),
	}
}

func listingRow(runID string, c *model.Candidate) []any {
	return []any{
		runID,
		c.SourceID,
		c.SKU(),
		c.DestinationListingID,
		c.Title,
		c.Category,
		c.SourcePrice,
		c.ComputedPrice,
		fmt.Sprintf("%.4f", c.MarginActual),
		c.ViabilityScore,
		c.MarginNotGuaranteed,
	}
}

func (w *Writer) appendRows(ctx context.Context, sheet string, values [][]any) error {
	valueRange := &sheetsapi.ValueRange{Values: values}
	_, err := w.service.Spreadsheets.Values.
		Append(w.config.SpreadsheetID, sheet+"!A1", valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return &common.RetryableError{
			Err:       fmt.Errorf("append to %s failed: %w", sheet, err),
			Retryable: true,
		}
	}
	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheetsapi.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheetsapi.SpreadsheetsScope},
		}
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	svc, err := sheetsapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return svc, nil
}

// Ensure Writer satisfies the report writer contract.
var _ service.ReportWriter = (*Writer)(nil)
