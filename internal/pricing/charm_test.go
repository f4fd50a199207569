package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"relist/internal/common"
)

func TestCharmRound(t *testing.T) {
	table := DefaultCharmTable()

	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{name: "sub-100 snaps to .99", price: 95.40, want: 94.99},
		{name: "sub-100 exact charm point", price: 94.99, want: 94.99},
		{name: "boundary at 100 keeps the finer ending", price: 100, want: 99.99},
		{name: "impulse band snaps to X9", price: 154.30, want: 149},
		{name: "impulse band just under charm point", price: 149.50, want: 149},
		{name: "sweet spot band ends .95", price: 437.20, want: 434.95},
		{name: "considered band steps by ten", price: 910, want: 909},
		{name: "premium band steps by fifty", price: 1975, want: 1949},
		{name: "top band steps by hundred", price: 2004, want: 1999},
		{name: "zero passes through", price: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, table.Round(tt.price), 0.001)
		})
	}
}

func TestCharmRoundIdempotent(t *testing.T) {
	table := DefaultCharmTable()

	for _, price := range []float64{12.34, 94.99, 99.99, 100, 149, 434.95, 450, 909, 999, 1949, 2999, 7450.25} {
		once := table.Round(price)
		twice := table.Round(once)
		assert.InDelta(t, once, twice, 0.001, "Round not idempotent at %v", price)
	}
}

func TestCharmRoundNeverExceedsInput(t *testing.T) {
	table := DefaultCharmTable()

	for _, price := range []float64{5, 42.80, 99.99, 123, 456.78, 1200, 9999} {
		assert.LessOrEqual(t, table.Round(price), price, "Round must round down at %v", price)
	}
}

func TestCharmRoundStaysAboveBucketFloor(t *testing.T) {
	table := DefaultCharmTable()

	// A naive snap of 2004 with the top bucket lands on 1999, under that
	// bucket's own 2000 boundary; the premium bucket must take over so no
	// price loses a whole tier of granularity at a boundary.
	tests := []struct {
		price float64
		floor float64
	}{
		{price: 100, floor: 0},
		{price: 305, floor: 300},
		{price: 1004, floor: 500},
		{price: 2004, floor: 1000},
	}
	for _, tt := range tests {
		got := table.Round(tt.price)
		assert.GreaterOrEqual(t, got, tt.floor, "Round(%v)", tt.price)
		assert.LessOrEqual(t, got, tt.price)
	}
}

func TestCharmStepUp(t *testing.T) {
	table := DefaultCharmTable()

	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{name: "within sub-100 bucket", price: 94.99, want: 95.99},
		{name: "crosses the 100 boundary", price: 99.99, want: 100.99},
		{name: "impulse band step of ten", price: 149, want: 159},
		{name: "sweet spot step of five", price: 499.95, want: 504.95},
		{name: "crosses the 1000 boundary", price: 999, want: 1009},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.StepUp(tt.price)
			assert.InDelta(t, tt.want, got, 0.001)
			assert.Greater(t, got, tt.price)
		})
	}
}

func TestCharmTableValidate(t *testing.T) {
	valid := DefaultCharmTable()
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		table CharmTable
	}{
		{name: "empty", table: CharmTable{}},
		{name: "zero step", table: CharmTable{{Below: 100, Step: 0, Minus: 0.01}}},
		{name: "negative offset", table: CharmTable{{Below: 100, Step: 1, Minus: -1}}},
		{
			name: "boundaries not ascending",
			table: CharmTable{
				{Below: 500, Step: 5, Minus: 0.05},
				{Below: 100, Step: 1, Minus: 0.01},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}
