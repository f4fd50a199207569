package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/viper"

	"relist/internal/common"
	"relist/internal/gate"
	"relist/internal/makro"
	"relist/internal/pipeline"
	"relist/internal/pricing"
	"relist/internal/sheets"
)

// SetDefaults registers the default values for every configuration key.
// Call it once before reading any config.
func SetDefaults() {
	viper.SetDefault("markup_multiplier", 2.8)
	viper.SetDefault("min_margin_threshold", 0.30)
	viper.SetDefault("min_rating", 3.9)
	viper.SetDefault("max_candidates_per_run", 50)
	viper.SetDefault("dry_run", false)
	viper.SetDefault("review_mode", gate.ModeAuto)
	viper.SetDefault("price_floor_threshold", 200.0)
	viper.SetDefault("price_floor_value", 450.0)
	viper.SetDefault("max_publish_attempts", 3)
	viper.SetDefault("rate_limit_delay_seconds", 2)
	viper.SetDefault("request_timeout_seconds", 30)
	viper.SetDefault("stock_quantity", 100)
	viper.SetDefault("database.path", "$HOME/.local/share/relist/relist.db")
	viper.SetDefault("collector.source_file", "")
	viper.SetDefault("sheets.enabled", false)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}

// DatabasePath returns the configured database path with ~ and env vars expanded.
func DatabasePath() string {
	return ExpandPath(viper.GetString("database.path"))
}

// SourceFile returns the configured collector input path.
func SourceFile() string {
	return ExpandPath(viper.GetString("collector.source_file"))
}

// LoadPricingConfig builds the pricing rules from Viper.
func LoadPricingConfig() pricing.Config {
	return pricing.Config{
		MarkupMultiplier:    viper.GetFloat64("markup_multiplier"),
		MinMargin:           viper.GetFloat64("min_margin_threshold"),
		PriceFloorThreshold: viper.GetFloat64("price_floor_threshold"),
		PriceFloorValue:     viper.GetFloat64("price_floor_value"),
	}
}

// LoadCharmTable reads the charm rounding buckets from Viper. Each entry
// carries below, step and minus; the last bucket is extended to cover all
// higher prices. An unset key keeps the built-in table.
func LoadCharmTable() (pricing.CharmTable, error) {
	if !viper.IsSet("charm_table") {
		return pricing.DefaultCharmTable(), nil
	}

	var table pricing.CharmTable
	if err := viper.UnmarshalKey("charm_table", &table); err != nil {
		return nil, fmt.Errorf("%w: charm_table: %v", common.ErrInvalidConfig, err)
	}
	if len(table) == 0 {
		return pricing.DefaultCharmTable(), nil
	}

	last := table[len(table)-1]
	if !math.IsInf(last.Below, 1) {
		table = append(table, pricing.CharmBucket{Below: math.Inf(1), Step: last.Step, Minus: last.Minus})
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadGateConfig builds the review thresholds from Viper.
func LoadGateConfig() gate.Config {
	return gate.Config{
		MinMargin: viper.GetFloat64("min_margin_threshold"),
		MinRating: viper.GetFloat64("min_rating"),
	}
}

// LoadMakroConfig builds the seller API settings from Viper, falling back to
// MAKRO_API_KEY and MAKRO_API_SECRET environment variables for credentials.
func LoadMakroConfig(dryRun bool) makro.Config {
	cfg := makro.Config{
		BaseURL:   viper.GetString("makro.base_url"),
		TokenURL:  viper.GetString("makro.token_url"),
		APIKey:    viper.GetString("makro.api_key"),
		APISecret: viper.GetString("makro.api_secret"),
		SellerID:  viper.GetString("makro.seller_id"),
		Timeout:   time.Duration(viper.GetInt("request_timeout_seconds")) * time.Second,
		DryRun:    dryRun,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("MAKRO_API_KEY")
	}
	if cfg.APISecret == "" {
		cfg.APISecret = os.Getenv("MAKRO_API_SECRET")
	}
	return cfg
}

// LoadPipelineConfig builds the orchestrator settings from Viper.
func LoadPipelineConfig(dryRun bool) pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.MaxCandidates = viper.GetInt("max_candidates_per_run")
	cfg.MaxPublishAttempts = viper.GetInt("max_publish_attempts")
	cfg.StockQuantity = viper.GetInt("stock_quantity")
	cfg.RateLimitDelay = time.Duration(viper.GetInt("rate_limit_delay_seconds")) * time.Second
	cfg.DryRun = dryRun
	return cfg
}

// SheetsEnabled reports whether run reports should be exported to Google Sheets.
func SheetsEnabled() bool {
	return viper.GetBool("sheets.enabled")
}

// LoadSheetsConfig loads the Google Sheets settings from Viper and environment
// variables. Viper keys win; GOOGLE_SHEETS_* variables fill the gaps.
func LoadSheetsConfig() (*sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	if v := viper.GetString("sheets.service_account_path"); v != "" {
		cfg.ServiceAccountPath = ExpandPath(v)
	}
	if v := viper.GetString("sheets.client_id"); v != "" {
		cfg.ClientID = v
	}
	if v := viper.GetString("sheets.client_secret"); v != "" {
		cfg.ClientSecret = v
	}
	if v := viper.GetString("sheets.refresh_token"); v != "" {
		cfg.RefreshToken = v
	}
	if v := viper.GetString("sheets.spreadsheet_id"); v != "" {
		cfg.SpreadsheetID = v
	}

	if cfg.ServiceAccountPath == "" {
		if v := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"); v != "" {
			cfg.ServiceAccountPath = ExpandPath(v)
		}
	}
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if cfg.RefreshToken == "" {
		cfg.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	}
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
