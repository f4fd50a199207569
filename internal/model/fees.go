package model

import (
	"fmt"
	"sort"
)

// WeightBracket maps a maximum weight to a flat transport fee. Brackets are
// evaluated in ascending MaxKG order; the last bracket's fee applies beyond it.
type WeightBracket struct {
	MaxKG float64
	Fee   float64
}

// FeeSchedule is the destination marketplace's fee structure. It is loaded once
// from configuration, validated, and immutable for the rest of the run.
type FeeSchedule struct {
	CommissionRates      map[string]float64
	DefaultCommission    float64
	TransportBrackets    []WeightBracket
	MonthlyPlatformFee   float64
	AssumedMonthlyVolume int
}

// DefaultFeeSchedule returns the fee structure observed on the destination
// marketplace. Rates are fractions of the selling price.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		CommissionRates: map[string]float64{
			"Air Fryers":         0.12,
			"Kitchen Appliances": 0.12,
			"Power Tools":        0.10,
			"Phone Accessories":  0.15,
			"Home Security":      0.12,
		},
		DefaultCommission: 0.12,
		TransportBrackets: []WeightBracket{
			{MaxKG: 1, Fee: 35},
			{MaxKG: 5, Fee: 55},
			{MaxKG: 15, Fee: 95},
			{MaxKG: 30, Fee: 160},
		},
		MonthlyPlatformFee:   399,
		AssumedMonthlyVolume: 50,
	}
}

// Validate checks the schedule at load time so typos fail fast instead of being
// masked by silent fallbacks later.
func (f *FeeSchedule) Validate() error {
	if f.DefaultCommission < 0 || f.DefaultCommission >= 1 {
		return fmt.Errorf("default commission must be in [0, 1): %v", f.DefaultCommission)
	}
	for category, rate := range f.CommissionRates {
		if rate < 0 || rate >= 1 {
			return fmt.Errorf("commission for %q must be in [0, 1): %v", category, rate)
		}
	}
	if len(f.TransportBrackets) == 0 {
		return fmt.Errorf("at least one transport bracket is required")
	}
	if !sort.SliceIsSorted(f.TransportBrackets, func(i, j int) bool {
		return f.TransportBrackets[i].MaxKG < f.TransportBrackets[j].MaxKG
	}) {
		return fmt.Errorf("transport brackets must be sorted by weight")
	}
	for i := 1; i < len(f.TransportBrackets); i++ {
		if f.TransportBrackets[i].Fee < f.TransportBrackets[i-1].Fee {
			return fmt.Errorf("transport fees must be non-decreasing in weight")
		}
	}
	if f.AssumedMonthlyVolume <= 0 {
		return fmt.Errorf("assumed monthly volume must be positive: %d", f.AssumedMonthlyVolume)
	}
	if f.MonthlyPlatformFee < 0 {
		return fmt.Errorf("monthly platform fee cannot be negative: %v", f.MonthlyPlatformFee)
	}
	return nil
}

// Commission returns the commission rate for a category, falling back to the
// default rate for categories not in the table.
func (f *FeeSchedule) Commission(category string) float64 {
	if rate, ok := f.CommissionRates[category]; ok {
		return rate
	}
	return f.DefaultCommission
}

// TransportFee returns the transport fee for a weight. The step function is
// monotonic non-decreasing; weights past the last bracket pay its fee.
func (f *FeeSchedule) TransportFee(weightKG float64) float64 {
	for _, bracket := range f.TransportBrackets {
		if weightKG <= bracket.MaxKG {
			return bracket.Fee
		}
	}
	return f.TransportBrackets[len(f.TransportBrackets)-1].Fee
}

// PlatformFee returns the monthly platform fee amortized over the assumed
// listing volume.
func (f *FeeSchedule) PlatformFee() float64 {
	return f.MonthlyPlatformFee / float64(f.AssumedMonthlyVolume)
}

// FeeBreakdown itemizes the fees behind a computed price.
type FeeBreakdown struct {
	Commission          float64
	Transport           float64
	Platform            float64
	MarginNotGuaranteed bool
}

// Total returns the sum of all fee components.
func (b FeeBreakdown) Total() float64 {
	return b.Commission + b.Transport + b.Platform
}
