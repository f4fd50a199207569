package trends

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"relist/internal/model"
)

func TestSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{month: time.January, want: SeasonSummer},
		{month: time.December, want: SeasonSummer},
		{month: time.April, want: SeasonAutumn},
		{month: time.July, want: SeasonWinter},
		{month: time.October, want: SeasonSpring},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Season(tt.month), "month %s", tt.month)
	}
}

func TestScoreViability(t *testing.T) {
	tests := []struct {
		name      string
		candidate model.Candidate
		month     time.Month
		want      int
	}{
		{
			name: "winter heater in winter with strong rating and sweet spot",
			candidate: model.Candidate{
				Title:         "2000W Oil Heater",
				Category:      "Heating",
				ComputedPrice: 1299.99,
				Rating:        4.7,
			},
			month: time.July,
			// base 50 + seasonal 20 + band 10 + rating 15
			want: 95,
		},
		{
			name: "winter heater in summer loses the seasonal bonus",
			candidate: model.Candidate{
				Title:         "2000W Oil Heater",
				Category:      "Heating",
				ComputedPrice: 1299.99,
				Rating:        4.7,
			},
			month: time.January,
			want:  75,
		},
		{
			name: "weak rating drags the score down",
			candidate: model.Candidate{
				Title:         "Phone Stand",
				ComputedPrice: 89.99,
				Rating:        3.2,
			},
			month: time.October,
			want:  40,
		},
		{
			name: "falls back to source price before pricing runs",
			candidate: model.Candidate{
				Title:       "Camping Gazebo 3x3",
				SourcePrice: 450,
				Rating:      4.2,
			},
			month: time.December,
			// base 50 + seasonal 20 + band 15
			want: 85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreViability(&tt.candidate, tt.month)
			assert.Equal(t, tt.want, got)

			// Deterministic for a fixed month.
			assert.Equal(t, got, ScoreViability(&tt.candidate, tt.month))
		})
	}
}

func TestScoreViabilityBounds(t *testing.T) {
	for month := time.January; month <= time.December; month++ {
		score := ScoreViability(&model.Candidate{
			Title:         "Electric Blanket Fan Heater Pool Garden Tool",
			ComputedPrice: 300,
			Rating:        5.0,
		}, month)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, maxScore)
	}
}
