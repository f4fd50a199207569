package pricing

import (
	"fmt"
	"math"

	"relist/internal/common"
)

// CharmBucket describes how prices under Below are rounded: the price is
// snapped down onto the lattice of points k*Step - Minus. Buckets are
// evaluated in ascending Below order; the last bucket covers everything else.
type CharmBucket struct {
	Below float64
	Step  float64
	Minus float64
}

// CharmTable is an ordered set of charm-pricing buckets.
type CharmTable []CharmBucket

// DefaultCharmTable returns the consumer-psychology endings used on the
// destination marketplace: .99 endings at rand granularity under R100, then
// progressively coarser X9 endings (R299, R499.95, R999, R1999, R2999) as the
// price climbs.
func DefaultCharmTable() CharmTable {
	return CharmTable{
		{Below: 100, Step: 1, Minus: 0.01},
		{Below: 300, Step: 10, Minus: 1},
		{Below: 500, Step: 5, Minus: 0.05},
		{Below: 1000, Step: 10, Minus: 1},
		{Below: 2000, Step: 50, Minus: 1},
		{Below: math.Inf(1), Step: 100, Minus: 1},
	}
}

// Validate checks that the table's buckets are usable: positive steps,
// non-negative charm offsets, strictly ascending boundaries.
func (t CharmTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: charm table cannot be empty", common.ErrInvalidConfig)
	}
	prev := 0.0
	for i, bucket := range t {
		if bucket.Step <= 0 {
			return fmt.Errorf("%w: charm bucket %d step must be positive", common.ErrInvalidConfig, i)
		}
		if bucket.Minus < 0 {
			return fmt.Errorf("%w: charm bucket %d offset cannot be negative", common.ErrInvalidConfig, i)
		}
		if bucket.Below <= prev {
			return fmt.Errorf("%w: charm bucket %d boundary must ascend", common.ErrInvalidConfig, i)
		}
		prev = bucket.Below
	}
	return nil
}

// epsilon absorbs float noise so a price already on a charm point stays put.
const epsilon = 1e-9

// Round snaps a price down to the charm point at or below it. Rounding is
// idempotent: a price already on a charm ending maps to itself. When the
// snapped point would fall under the bucket's own lower boundary, the next
// finer bucket rounds the price instead, so a result always carries an
// ending valid for its magnitude.
func (t CharmTable) Round(price float64) float64 {
	if price <= 0 {
		return price
	}
	for idx := t.bucketIndex(price); idx >= 0; idx-- {
		bucket := t[idx]
		k := math.Floor((price+bucket.Minus)/bucket.Step + epsilon)
		p := round2(k*bucket.Step - bucket.Minus)
		if idx == 0 || p >= t[idx-1].Below-epsilon {
			return p
		}
	}
	return price
}

// StepUp returns the next charm point strictly above price, widening the
// bucket one step so a post-rounding margin check can be retried higher up.
func (t CharmTable) StepUp(price float64) float64 {
	bucket := t.bucketFor(price + epsilon)
	next := t.Round(round2(price + bucket.Step))
	if next > price+epsilon {
		return next
	}
	// Crossed into a coarser bucket; use its step instead.
	bucket = t.bucketFor(round2(price + bucket.Step))
	return t.Round(round2(price + bucket.Step))
}

func (t CharmTable) bucketFor(price float64) CharmBucket {
	return t[t.bucketIndex(price)]
}

func (t CharmTable) bucketIndex(price float64) int {
	for i, bucket := range t {
		if price < bucket.Below {
			return i
		}
	}
	return len(t) - 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
