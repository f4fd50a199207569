package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relist/internal/model"
	"relist/internal/service"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.ServiceAccountPath = "/etc/relist/sa.json"
	cfg.SpreadsheetID = "spreadsheet-1"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	valid := validConfig()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "no auth", mutate: func(c *Config) { c.ServiceAccountPath = "" }},
		{
			name: "both auth methods",
			mutate: func(c *Config) {
				c.ClientID = "id"
				c.ClientSecret = "secret"
				c.RefreshToken = "token"
			},
		},
		{name: "missing spreadsheet", mutate: func(c *Config) { c.SpreadsheetID = "" }},
		{name: "empty sheet name", mutate: func(c *Config) { c.RunsSheet = "" }},
		{name: "zero retries", mutate: func(c *Config) { c.RetryAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSummaryRow(t *testing.T) {
	summary := &service.RunSummary{
		RunID:      "run-1",
		StartedAt:  time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 6, 1, 8, 2, 30, 0, time.UTC),
		Discovered: 10,
		Listed:     4,
		Margins:    []float64{0.3, 0.5},
		Flagged:    []string{"PLID7", "PLID9"},
	}

	row := summaryRow(summary)
	assert.Equal(t, "run-1", row[0])
	assert.Equal(t, "2025-06-01T08:00:00Z", row[1])
	assert.Equal(t, 10, row[4])
	assert.Equal(t, "0.4000", row[12])
	assert.Equal(t, "PLID7, PLID9", row[13])
}

func TestListingRow(t *testing.T) {
	c := &model.Candidate{
		SourceID:             "PLID1",
		Title:                "Air Fryer",
		Category:             "Air Fryers",
		DestinationListingID: "M-9001",
		SourcePrice:          899,
		ComputedPrice:        2599.99,
		MarginActual:         0.42,
		ViabilityScore:       85,
	}

	row := listingRow("run-1", c)
	assert.Equal(t, "run-1", row[0])
	assert.Equal(t, "PLID1", row[1])
	assert.Equal(t, c.SKU(), row[2])
	assert.Equal(t, "M-9001", row[3])
	assert.Equal(t, "0.4200", row[8])
}
