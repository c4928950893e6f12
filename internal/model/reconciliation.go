package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrAlreadyResolved is returned when accepting, rejecting, or auto-matching a
// reconciliation match that has already left the Suggested state.
var ErrAlreadyResolved = errors.New("reconciliation match already resolved")

// MatchStatus tracks the adjudication state of a reconciliation match.
type MatchStatus string

// Match adjudication states. Suggested is the only non-terminal state.
const (
	MatchStatusSuggested   MatchStatus = "SUGGESTED"
	MatchStatusAccepted    MatchStatus = "ACCEPTED"
	MatchStatusRejected    MatchStatus = "REJECTED"
	MatchStatusAutoMatched MatchStatus = "AUTO_MATCHED"
)

// MatchScope determines whether a match belongs to the household or to one user.
type MatchScope string

// Match scopes.
const (
	MatchScopeShared   MatchScope = "SHARED"
	MatchScopePersonal MatchScope = "PERSONAL"
)

// ConfidenceLevel is the coarse bucket derived from a confidence score.
type ConfidenceLevel string

// Confidence levels.
const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// Fixed engine thresholds for deriving confidence levels. These are
// independent of the caller-configurable auto-match threshold.
const (
	HighConfidenceThreshold   = 0.85
	MediumConfidenceThreshold = 0.60
)

// ConfidenceLevelForScore buckets a confidence score into High, Medium, or Low.
func ConfidenceLevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= HighConfidenceThreshold:
		return ConfidenceHigh
	case score >= MediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ReconciliationMatch links an imported transaction to a projected schedule
// instance. One match exists per (transaction, schedule, instance date) triple;
// callers check existence before creating. Status only moves forward, from
// Suggested into exactly one terminal state.
type ReconciliationMatch struct {
	CreatedAt       time.Time
	InstanceDate    time.Time
	ResolvedAt      *time.Time
	ID              string
	TransactionID   string
	ScheduleID      string
	OwnerUserID     string
	Status          MatchStatus
	Scope           MatchScope
	ConfidenceLevel ConfidenceLevel
	AmountVariance  decimal.Decimal
	ConfidenceScore float64
	DateOffsetDays  int
}

// NewReconciliationMatch creates a match in the Suggested state. The
// confidence level is derived once here and never recomputed. Personal scope
// requires an owner user id; shared scope forbids one.
func NewReconciliationMatch(transactionID, scheduleID string, instanceDate time.Time, confidenceScore float64, amountVariance decimal.Decimal, dateOffsetDays int, scope MatchScope, ownerUserID string) (*ReconciliationMatch, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("reconciliation match requires a transaction id")
	}
	if scheduleID == "" {
		return nil, fmt.Errorf("reconciliation match requires a schedule id")
	}
	if instanceDate.IsZero() {
		return nil, fmt.Errorf("reconciliation match requires an instance date")
	}
	if confidenceScore < 0 || confidenceScore > 1 {
		return nil, fmt.Errorf("confidence score must be between 0 and 1, got %g", confidenceScore)
	}
	switch scope {
	case MatchScopePersonal:
		if ownerUserID == "" {
			return nil, fmt.Errorf("personal match requires an owner user id")
		}
	case MatchScopeShared:
		ownerUserID = ""
	default:
		return nil, fmt.Errorf("unknown match scope %q", scope)
	}
	return &ReconciliationMatch{
		ID:              uuid.NewString(),
		TransactionID:   transactionID,
		ScheduleID:      scheduleID,
		InstanceDate:    instanceDate,
		ConfidenceScore: confidenceScore,
		ConfidenceLevel: ConfidenceLevelForScore(confidenceScore),
		AmountVariance:  amountVariance,
		DateOffsetDays:  dateOffsetDays,
		Scope:           scope,
		OwnerUserID:     ownerUserID,
		Status:          MatchStatusSuggested,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// Accept confirms the match. Valid only while Suggested.
func (m *ReconciliationMatch) Accept() error {
	return m.resolve(MatchStatusAccepted)
}

// Reject dismisses the match. Valid only while Suggested.
func (m *ReconciliationMatch) Reject() error {
	return m.resolve(MatchStatusRejected)
}

// AutoMatch confirms the match without human review. Valid only while Suggested.
func (m *ReconciliationMatch) AutoMatch() error {
	return m.resolve(MatchStatusAutoMatched)
}

func (m *ReconciliationMatch) resolve(to MatchStatus) error {
	if m.Status != MatchStatusSuggested {
		return fmt.Errorf("%w: match %s is %s", ErrAlreadyResolved, m.ID, m.Status)
	}
	m.Status = to
	now := time.Now().UTC()
	m.ResolvedAt = &now
	return nil
}
