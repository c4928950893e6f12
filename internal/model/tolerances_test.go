package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatchingTolerances(t *testing.T) {
	tests := []struct {
		name       string
		days       int
		percent    float64
		absolute   decimal.Decimal
		similarity float64
		autoMatch  float64
		wantErr    bool
	}{
		{name: "valid", days: 7, percent: 0.10, absolute: decimal.NewFromInt(10), similarity: 0.6, autoMatch: 0.85},
		{name: "all zeros are allowed", days: 0, percent: 0, absolute: decimal.Zero, similarity: 0, autoMatch: 0},
		{name: "negative days", days: -1, percent: 0.10, absolute: decimal.NewFromInt(10), similarity: 0.6, autoMatch: 0.85, wantErr: true},
		{name: "percent above one", days: 7, percent: 1.5, absolute: decimal.NewFromInt(10), similarity: 0.6, autoMatch: 0.85, wantErr: true},
		{name: "negative absolute", days: 7, percent: 0.10, absolute: decimal.NewFromInt(-1), similarity: 0.6, autoMatch: 0.85, wantErr: true},
		{name: "similarity above one", days: 7, percent: 0.10, absolute: decimal.NewFromInt(10), similarity: 1.1, autoMatch: 0.85, wantErr: true},
		{name: "auto-match below zero", days: 7, percent: 0.10, absolute: decimal.NewFromInt(10), similarity: 0.6, autoMatch: -0.1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMatchingTolerances(tt.days, tt.percent, tt.absolute, tt.similarity, tt.autoMatch)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultTolerances(t *testing.T) {
	defaults := DefaultTolerances()

	assert.Equal(t, 7, defaults.DateToleranceDays)
	assert.InDelta(t, 0.10, defaults.AmountTolerancePercent, 1e-9)
	assert.True(t, defaults.AmountToleranceAbsolute.Equal(decimal.NewFromInt(10)))
	assert.InDelta(t, 0.6, defaults.DescriptionSimilarityThreshold, 1e-9)
	assert.InDelta(t, 0.85, defaults.AutoMatchThreshold, 1e-9)

	// The defaults must round-trip through the validating constructor.
	_, err := NewMatchingTolerances(
		defaults.DateToleranceDays,
		defaults.AmountTolerancePercent,
		defaults.AmountToleranceAbsolute,
		defaults.DescriptionSimilarityThreshold,
		defaults.AutoMatchThreshold,
	)
	require.NoError(t, err)
}

func TestTolerancesEqual(t *testing.T) {
	a := DefaultTolerances()
	b := DefaultTolerances()
	assert.True(t, a.Equal(b))

	b.DateToleranceDays = 3
	assert.False(t, a.Equal(b))

	c := DefaultTolerances()
	c.AmountToleranceAbsolute = decimal.RequireFromString("10.00")
	assert.True(t, a.Equal(c), "decimal equality ignores exponent representation")
}
