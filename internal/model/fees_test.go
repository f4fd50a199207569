package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFeeScheduleValid(t *testing.T) {
	schedule := DefaultFeeSchedule()
	require.NoError(t, schedule.Validate())
}

func TestFeeScheduleValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FeeSchedule)
		errMsg string
	}{
		{
			name:   "commission rate of one",
			mutate: func(s *FeeSchedule) { s.CommissionRates["Books"] = 1.0 },
			errMsg: "commission",
		},
		{
			name:   "negative commission rate",
			mutate: func(s *FeeSchedule) { s.CommissionRates["Books"] = -0.1 },
			errMsg: "commission",
		},
		{
			name: "unsorted transport brackets",
			mutate: func(s *FeeSchedule) {
				s.TransportBrackets[0], s.TransportBrackets[1] = s.TransportBrackets[1], s.TransportBrackets[0]
			},
			errMsg: "bracket",
		},
		{
			name: "decreasing transport fees",
			mutate: func(s *FeeSchedule) {
				s.TransportBrackets[1].Fee = s.TransportBrackets[0].Fee - 1
			},
			errMsg: "fee",
		},
		{
			name:   "zero monthly volume",
			mutate: func(s *FeeSchedule) { s.AssumedMonthlyVolume = 0 },
			errMsg: "volume",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule := DefaultFeeSchedule()
			tt.mutate(&schedule)

			err := schedule.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCommissionFallsBackToDefault(t *testing.T) {
	schedule := DefaultFeeSchedule()
	schedule.CommissionRates["Phone Accessories"] = 0.15

	assert.InDelta(t, 0.15, schedule.Commission("Phone Accessories"), 1e-9)
	assert.InDelta(t, schedule.DefaultCommission, schedule.Commission("Never Seen Before"), 1e-9)
}

func TestTransportFee(t *testing.T) {
	schedule := DefaultFeeSchedule()

	tests := []struct {
		weight float64
		want   float64
	}{
		{weight: 0.5, want: 35},
		{weight: 1.0, want: 35},
		{weight: 1.01, want: 55},
		{weight: 12, want: 95},
		{weight: 30, want: 160},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, schedule.TransportFee(tt.weight), 1e-9, "weight %.2f", tt.weight)
	}

	// Past the heaviest bracket the top fee applies.
	assert.InDelta(t, 160, schedule.TransportFee(45), 1e-9)
}

func TestFeeBreakdownTotal(t *testing.T) {
	b := FeeBreakdown{Commission: 120, Transport: 55, Platform: 7.98}
	assert.InDelta(t, 182.98, b.Total(), 1e-9)
}
