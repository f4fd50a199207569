// Package trends scores candidate viability from seasonal demand and price
// positioning. Scores are advisory; they inform review output but never gate
// a candidate on their own.
package trends

import (
	"strings"
	"time"

	"relist/internal/model"
)

// Season names follow the Southern Hemisphere calendar.
const (
	SeasonSummer = "summer"
	SeasonAutumn = "autumn"
	SeasonWinter = "winter"
	SeasonSpring = "spring"
)

// Season returns the Southern Hemisphere season for a month.
func Season(month time.Month) string {
	switch month {
	case time.December, time.January, time.February:
		return SeasonSummer
	case time.March, time.April, time.May:
		return SeasonAutumn
	case time.June, time.July, time.August:
		return SeasonWinter
	default:
		return SeasonSpring
	}
}

// seasonalKeywords maps a season to title and category keywords that see
// elevated demand during it.
var seasonalKeywords = map[string][]string{
	SeasonSummer: {"fan", "cooler", "pool", "braai", "camping", "cooler box", "gazebo"},
	SeasonAutumn: {"heater", "blanket", "kettle", "soup maker"},
	SeasonWinter: {"heater", "electric blanket", "humidifier", "hot water bottle", "oil heater"},
	SeasonSpring: {"garden", "lawn", "tool", "paint", "pressure washer"},
}

// priceBand is a retail price range with an observed conversion bonus.
type priceBand struct {
	min   float64
	max   float64
	bonus int
}

// sweetSpots are the selling-price bands where listings move fastest. Prices
// between bands score no bonus.
var sweetSpots = []priceBand{
	{min: 150, max: 500, bonus: 15},
	{min: 500, max: 1500, bonus: 10},
	{min: 1500, max: 3500, bonus: 5},
}

// Advisory thresholds for presenting a score as strong or weak.
const (
	ScoreStrong = 75
	ScoreWeak   = 45
)

// Score bounds and component weights.
const (
	baseScore     = 50
	seasonalBonus = 20
	ratingBonus   = 15
	ratingPenalty = 10
	maxScore      = 100
)

// ScoreViability computes an advisory 0-100 viability score for a candidate
// at a given month. The result is deterministic for a fixed month.
func ScoreViability(c *model.Candidate, month time.Month) int {
	score := baseScore

	if matchesSeason(c, month) {
		score += seasonalBonus
	}

	price := c.ComputedPrice
	if price <= 0 {
		price = c.SourcePrice
	}
	for _, band := range sweetSpots {
		if price >= band.min && price < band.max {
			score += band.bonus
			break
		}
	}

	switch {
	case c.Rating >= 4.5:
		score += ratingBonus
	case c.Rating > 0 && c.Rating < 4.0:
		score -= ratingPenalty
	}

	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}
	return score
}

func matchesSeason(c *model.Candidate, month time.Month) bool {
	title := strings.ToLower(c.Title)
	category := strings.ToLower(c.Category)
	for _, keyword := range seasonalKeywords[Season(month)] {
		if strings.Contains(title, keyword) || strings.Contains(category, keyword) {
			return true
		}
	}
	return false
}
