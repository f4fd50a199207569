// Package gate decides whether priced candidates may be published.
package gate

import (
	"fmt"

	"relist/internal/common"
	"relist/internal/service"
)

// Review modes.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// Config holds the thresholds for automatic review.
type Config struct {
	MinMargin float64
	MinRating float64
}

// Validate checks the thresholds at load time.
func (c Config) Validate() error {
	if c.MinMargin < 0 {
		return fmt.Errorf("%w: min margin cannot be negative: %v", common.ErrInvalidConfig, c.MinMargin)
	}
	if c.MinRating < 0 || c.MinRating > 5 {
		return fmt.Errorf("%w: min rating must be in [0, 5]: %v", common.ErrInvalidConfig, c.MinRating)
	}
	return nil
}

// New returns the gate for a review mode.
func New(mode string, cfg Config, store service.Storage) (service.Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch mode {
	case ModeAuto:
		return &AutoGate{cfg: cfg}, nil
	case ModeManual:
		return &ManualGate{cfg: cfg, store: store}, nil
	default:
		return nil, fmt.Errorf("%w: unknown review mode %q", common.ErrInvalidConfig, mode)
	}
}
