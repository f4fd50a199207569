// Package pricing implements the fee-aware pricing engine. It is pure
// computation: identical inputs always produce identical prices, and nothing
// here touches the network or the clock.
package pricing

import (
	"fmt"

	"relist/internal/common"
	"relist/internal/model"
)

// maxIterations caps both the fee fixed-point loop and the post-rounding
// margin widening loop.
const maxIterations = 10

// Config holds the pricing rules applied on top of the fee schedule.
type Config struct {
	MarkupMultiplier    float64
	MinMargin           float64
	PriceFloorThreshold float64
	PriceFloorValue     float64
}

// Validate ensures the pricing rules are usable.
func (c *Config) Validate() error {
	if c.MarkupMultiplier <= 1 {
		return fmt.Errorf("%w: markup multiplier must be > 1, got %v", common.ErrInvalidConfig, c.MarkupMultiplier)
	}
	if c.MinMargin < 0 {
		return fmt.Errorf("%w: min margin cannot be negative, got %v", common.ErrInvalidConfig, c.MinMargin)
	}
	if c.PriceFloorThreshold < 0 || c.PriceFloorValue < 0 {
		return fmt.Errorf("%w: price floor values cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// Quote is the result of pricing one candidate.
type Quote struct {
	ComputedPrice  float64
	RealizedMargin float64
	Breakdown      model.FeeBreakdown
}

// Engine computes destination prices from source prices.
type Engine struct {
	fees  model.FeeSchedule
	charm CharmTable
	cfg   Config
}

// New creates a pricing engine, validating the fee schedule and pricing rules
// up front so misconfiguration fails at construction rather than mid-run.
func New(fees model.FeeSchedule, charm CharmTable, cfg Config) (*Engine, error) {
	if err := fees.Validate(); err != nil {
		return nil, fmt.Errorf("fee schedule: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(charm) == 0 {
		charm = DefaultCharmTable()
	}
	if err := charm.Validate(); err != nil {
		return nil, err
	}
	return &Engine{fees: fees, charm: charm, cfg: cfg}, nil
}

// Price computes the destination selling price for a source price. It applies
// the markup and price-floor rules, iterates fees to a fixed point so the
// realized margin clears the configured minimum, and finally charm-rounds the
// result, widening one bucket up if rounding shaved the margin below the
// minimum. When the iteration cap is exhausted the best price found is
// returned with MarginNotGuaranteed set rather than failing silently.
func (e *Engine) Price(sourcePrice float64, category string, weightKG float64) (Quote, error) {
	if sourcePrice <= 0 {
		return Quote{}, fmt.Errorf("%w: source price must be positive, got %v", common.ErrInvalidInput, sourcePrice)
	}

	target := sourcePrice * e.cfg.MarkupMultiplier
	var floor float64
	if sourcePrice < e.cfg.PriceFloorThreshold {
		floor = e.cfg.PriceFloorValue
		if floor > target {
			target = floor
		}
	}
	if minimum := sourcePrice * (1 + e.cfg.MinMargin); target < minimum {
		target = minimum
	}

	commission := e.fees.Commission(category)
	transport := e.fees.TransportFee(weightKG)
	platform := e.fees.PlatformFee()

	// Fees depend on price through commission, so recompute fees at the
	// current price and raise the price to compensate until the margin
	// condition holds or the iteration cap is reached.
	price := target
	guaranteed := false
	for i := 0; i < maxIterations; i++ {
		if e.margin(sourcePrice, price, commission, transport, platform) >= e.cfg.MinMargin {
			guaranteed = true
			break
		}
		// Overshoot by a cent so the loop terminates instead of creeping
		// up on the fixed point asymptotically.
		price = sourcePrice*(1+e.cfg.MinMargin) + price*commission + transport + platform + 0.01
	}

	// Charm rounding comes after margin verification, never before. Rounding
	// down may shave the margin or dip under the price floor, so re-verify
	// and widen the bucket one step up as needed.
	rounded := e.charm.Round(price)
	if guaranteed {
		for i := 0; i < maxIterations; i++ {
			if rounded >= floor && e.margin(sourcePrice, rounded, commission, transport, platform) >= e.cfg.MinMargin {
				break
			}
			rounded = e.charm.StepUp(rounded)
		}
	}

	realized := e.margin(sourcePrice, rounded, commission, transport, platform)
	notGuaranteed := realized < e.cfg.MinMargin

	return Quote{
		ComputedPrice:  rounded,
		RealizedMargin: realized,
		Breakdown: model.FeeBreakdown{
			Commission:          round2(rounded * commission),
			Transport:           transport,
			Platform:            round2(platform),
			MarginNotGuaranteed: notGuaranteed,
		},
	}, nil
}

// margin returns the realized margin at a given selling price.
func (e *Engine) margin(sourcePrice, price, commission, transport, platform float64) float64 {
	fees := price*commission + transport + platform
	return (price - sourcePrice - fees) / sourcePrice
}

// RoundCharm exposes the engine's charm rounding for inspection tooling.
func (e *Engine) RoundCharm(price float64) float64 {
	return e.charm.Round(price)
}
