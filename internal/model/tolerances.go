package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MatchingTolerances bundles every threshold the transaction matcher consults.
// It is validated at construction and treated as immutable afterwards.
type MatchingTolerances struct {
	AmountToleranceAbsolute        decimal.Decimal
	DateToleranceDays              int
	AmountTolerancePercent         float64
	DescriptionSimilarityThreshold float64
	AutoMatchThreshold             float64
}

// NewMatchingTolerances validates and builds a tolerance bundle.
func NewMatchingTolerances(dateToleranceDays int, amountTolerancePercent float64, amountToleranceAbsolute decimal.Decimal, descriptionSimilarityThreshold, autoMatchThreshold float64) (MatchingTolerances, error) {
	if dateToleranceDays < 0 {
		return MatchingTolerances{}, fmt.Errorf("date tolerance days cannot be negative, got %d", dateToleranceDays)
	}
	if amountTolerancePercent < 0 || amountTolerancePercent > 1 {
		return MatchingTolerances{}, fmt.Errorf("amount tolerance percent must be between 0 and 1, got %g", amountTolerancePercent)
	}
	if amountToleranceAbsolute.IsNegative() {
		return MatchingTolerances{}, fmt.Errorf("amount tolerance absolute cannot be negative, got %s", amountToleranceAbsolute)
	}
	if descriptionSimilarityThreshold < 0 || descriptionSimilarityThreshold > 1 {
		return MatchingTolerances{}, fmt.Errorf("description similarity threshold must be between 0 and 1, got %g", descriptionSimilarityThreshold)
	}
	if autoMatchThreshold < 0 || autoMatchThreshold > 1 {
		return MatchingTolerances{}, fmt.Errorf("auto-match threshold must be between 0 and 1, got %g", autoMatchThreshold)
	}
	return MatchingTolerances{
		DateToleranceDays:              dateToleranceDays,
		AmountTolerancePercent:         amountTolerancePercent,
		AmountToleranceAbsolute:        amountToleranceAbsolute,
		DescriptionSimilarityThreshold: descriptionSimilarityThreshold,
		AutoMatchThreshold:             autoMatchThreshold,
	}, nil
}

// DefaultTolerances returns the canonical tolerance bundle: 7 days, 10%,
// 10.00 absolute, 0.6 similarity, 0.85 auto-match.
func DefaultTolerances() MatchingTolerances {
	return MatchingTolerances{
		DateToleranceDays:              7,
		AmountTolerancePercent:         0.10,
		AmountToleranceAbsolute:        decimal.NewFromInt(10),
		DescriptionSimilarityThreshold: 0.6,
		AutoMatchThreshold:             0.85,
	}
}

// Equal reports value equality between two tolerance bundles.
func (t MatchingTolerances) Equal(other MatchingTolerances) bool {
	return t.DateToleranceDays == other.DateToleranceDays &&
		t.AmountTolerancePercent == other.AmountTolerancePercent &&
		t.AmountToleranceAbsolute.Equal(other.AmountToleranceAbsolute) &&
		t.DescriptionSimilarityThreshold == other.DescriptionSimilarityThreshold &&
		t.AutoMatchThreshold == other.AutoMatchThreshold
}
