// Package match implements the transaction matching engine: scoring imported
// bank transactions against projected recurring-schedule instances with hard
// filters for date, amount, and description, then ranking the survivors by a
// weighted confidence score. All computation here is pure; inputs are never
// mutated, so callers may match concurrently without coordination.
package match

import (
	"math"
	"sort"
	"time"

	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/shopspring/decimal"
)

// Confidence score weights. Description carries the most signal because
// amounts and dates repeat across unrelated schedules.
const (
	descriptionWeight = 0.50
	amountWeight      = 0.30
	dateWeight        = 0.20
)

// Result is one scored candidate for a transaction. Results are ephemeral;
// accepted ones become persisted reconciliation matches.
type Result struct {
	InstanceDate          time.Time
	ScheduleID            string
	AmountVariance        decimal.Decimal
	ConfidenceScore       float64
	DescriptionSimilarity float64
	DateOffsetDays        int
	ConfidenceLevel       model.ConfidenceLevel
}

// Matcher scores transactions against candidate instances.
type Matcher struct{}

// NewMatcher creates a matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// CalculateMatch scores a single candidate against a transaction. A nil result
// means the candidate is not viable; that is an expected outcome, not an error.
func (m *Matcher) CalculateMatch(txn model.Transaction, candidate model.RecurringInstanceInfo, tolerances model.MatchingTolerances) *Result {
	// Hard filter: date window.
	offsetDays := dayNumber(txn.Date) - dayNumber(candidate.Date)
	if abs(offsetDays) > tolerances.DateToleranceDays {
		return nil
	}

	// Hard filter: amount tolerance, absolute or percent, whichever admits.
	variance := candidate.Amount.Sub(txn.Amount)
	diff := variance.Abs()
	if !amountWithinTolerance(candidate.Amount, txn.Amount, diff, tolerances) {
		return nil
	}

	// Hard filter: description similarity floor.
	similarity := DescriptionSimilarity(txn.Description, candidate.Description)
	if similarity < tolerances.DescriptionSimilarityThreshold {
		return nil
	}

	score := descriptionWeight*similarity +
		amountWeight*amountScore(candidate.Amount, diff, tolerances) +
		dateWeight*dateScore(offsetDays, tolerances.DateToleranceDays)

	return &Result{
		ScheduleID:            candidate.ScheduleID,
		InstanceDate:          candidate.Date,
		ConfidenceScore:       score,
		ConfidenceLevel:       model.ConfidenceLevelForScore(score),
		AmountVariance:        variance,
		DateOffsetDays:        offsetDays,
		DescriptionSimilarity: similarity,
	}
}

// FindMatches scores every candidate and returns the viable ones ordered by
// descending confidence. The sort is stable, so tied candidates keep their
// input order.
func (m *Matcher) FindMatches(txn model.Transaction, candidates []model.RecurringInstanceInfo, tolerances model.MatchingTolerances) []Result {
	results := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		if result := m.CalculateMatch(txn, candidate, tolerances); result != nil {
			results = append(results, *result)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ConfidenceScore > results[j].ConfidenceScore
	})
	return results
}

// amountWithinTolerance accepts when the difference fits the absolute
// tolerance, fits the percent tolerance relative to the expected amount, or
// both amounts are exactly zero.
func amountWithinTolerance(expected, actual, diff decimal.Decimal, tolerances model.MatchingTolerances) bool {
	if diff.LessThanOrEqual(tolerances.AmountToleranceAbsolute) {
		return true
	}
	if !expected.IsZero() {
		percentDiff, _ := diff.Div(expected.Abs()).Float64()
		return percentDiff <= tolerances.AmountTolerancePercent
	}
	return actual.IsZero()
}

// amountScore rewards small differences, taking whichever of the percent and
// absolute formulas is more favorable. A zero-configured tolerance zeroes its
// branch rather than disqualifying the candidate outright.
func amountScore(expected, diff decimal.Decimal, tolerances model.MatchingTolerances) float64 {
	if diff.IsZero() {
		return 1
	}
	diffFloat, _ := diff.Float64()

	var absoluteScore float64
	if !tolerances.AmountToleranceAbsolute.IsZero() {
		absTol, _ := tolerances.AmountToleranceAbsolute.Float64()
		absoluteScore = 1 - math.Min(1, diffFloat/absTol)
	}
	if expected.IsZero() {
		return absoluteScore
	}

	var percentScore float64
	if tolerances.AmountTolerancePercent != 0 {
		expectedAbs, _ := expected.Abs().Float64()
		percentDiff := diffFloat / expectedAbs
		percentScore = 1 - math.Min(1, percentDiff/tolerances.AmountTolerancePercent)
	}
	return math.Max(percentScore, absoluteScore)
}

// dateScore decays linearly from 1 at zero offset to 0 at the tolerance edge.
func dateScore(offsetDays, maxToleranceDays int) float64 {
	if maxToleranceDays == 0 {
		if offsetDays == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-float64(abs(offsetDays))/float64(maxToleranceDays))
}

// dayNumber converts a timestamp to a calendar day count, so offsets are
// whole-day differences regardless of time of day or zone.
func dayNumber(t time.Time) int {
	year, month, day := t.Date()
	return int(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
