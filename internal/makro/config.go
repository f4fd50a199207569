// Package makro provides an authenticated client for the Makro seller API.
package makro

import (
	"fmt"
	"time"

	"relist/internal/common"
)

// Config holds the connection settings for the seller API.
type Config struct {
	BaseURL   string
	TokenURL  string
	APIKey    string
	APISecret string
	SellerID  string
	Timeout   time.Duration
	DryRun    bool
}

// Validate checks that the config is usable. Dry-run mode builds payloads
// without network calls, so credentials may be absent there.
func (c *Config) Validate() error {
	if c.DryRun {
		return nil
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: makro.base_url", common.ErrMissingConfig)
	}
	if c.TokenURL == "" {
		return fmt.Errorf("%w: makro.token_url", common.ErrMissingConfig)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: makro.api_key", common.ErrMissingConfig)
	}
	if c.APISecret == "" {
		return fmt.Errorf("%w: makro.api_secret", common.ErrMissingConfig)
	}
	if c.SellerID == "" {
		return fmt.Errorf("%w: makro.seller_id", common.ErrMissingConfig)
	}
	return nil
}

// timeout returns the configured request timeout, defaulting to 30s.
func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 30 * time.Second
}
