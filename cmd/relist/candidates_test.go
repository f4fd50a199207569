package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"relist/internal/model"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-ten", truncate("exactly-ten", 11))
	assert.Equal(t, "longer th…", truncate("longer than ten", 10))

	// Multibyte titles must not be cut mid-rune.
	got := truncate("Русский чайник с терморегулятором", 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Русский ч…", got)
}

func TestFormatMargin(t *testing.T) {
	priced := &model.Candidate{State: model.StatePriced, MarginActual: 0.42}
	assert.Equal(t, "42%", formatMargin(priced))

	priced.MarginNotGuaranteed = true
	assert.Equal(t, "42%*", formatMargin(priced))

	discovered := &model.Candidate{State: model.StateDiscovered}
	assert.Equal(t, "-", formatMargin(discovered))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "-", formatPrice(0))
	assert.Equal(t, "449.95", formatPrice(449.95))
}
