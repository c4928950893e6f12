package model

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"
)

// ErrScheduleInactive is returned when advancing or skipping a paused or
// completed schedule.
var ErrScheduleInactive = errors.New("schedule is not active")

// Schedule holds the recurrence lifecycle shared by recurring transactions and
// transfers. A schedule is created active with its next occurrence at the start
// date, and is only ever deactivated, never destroyed.
type Schedule struct {
	StartDate         time.Time
	NextOccurrence    time.Time
	EndDate           *time.Time
	LastGeneratedDate *time.Time
	ID                string
	Description       string
	Amount            decimal.Decimal
	Pattern           RecurrencePattern
	IsActive          bool
}

// RecurringTransaction is a recurring scheduled transaction on a single account.
type RecurringTransaction struct {
	Category *string
	Schedule
	AccountID   string
	AccountName string
}

// RecurringTransfer is a recurring scheduled transfer between two accounts.
type RecurringTransfer struct {
	Schedule
	FromAccountID   string
	FromAccountName string
	ToAccountID     string
	ToAccountName   string
}

// NewRecurringTransaction creates an active recurring transaction starting at startDate.
func NewRecurringTransaction(id, accountID, description string, amount decimal.Decimal, pattern RecurrencePattern, startDate time.Time, endDate *time.Time) (*RecurringTransaction, error) {
	sched, err := newSchedule(id, description, amount, pattern, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if accountID == "" {
		return nil, fmt.Errorf("recurring transaction requires an account id")
	}
	return &RecurringTransaction{Schedule: sched, AccountID: accountID}, nil
}

// NewRecurringTransfer creates an active recurring transfer starting at startDate.
func NewRecurringTransfer(id, fromAccountID, toAccountID, description string, amount decimal.Decimal, pattern RecurrencePattern, startDate time.Time, endDate *time.Time) (*RecurringTransfer, error) {
	sched, err := newSchedule(id, description, amount, pattern, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if fromAccountID == "" || toAccountID == "" {
		return nil, fmt.Errorf("recurring transfer requires both account ids")
	}
	if fromAccountID == toAccountID {
		return nil, fmt.Errorf("recurring transfer accounts must differ")
	}
	return &RecurringTransfer{Schedule: sched, FromAccountID: fromAccountID, ToAccountID: toAccountID}, nil
}

func newSchedule(id, description string, amount decimal.Decimal, pattern RecurrencePattern, startDate time.Time, endDate *time.Time) (Schedule, error) {
	if id == "" {
		return Schedule{}, fmt.Errorf("schedule requires an id")
	}
	if description == "" {
		return Schedule{}, fmt.Errorf("schedule requires a description")
	}
	if startDate.IsZero() {
		return Schedule{}, fmt.Errorf("schedule requires a start date")
	}
	if endDate != nil && endDate.Before(startDate) {
		return Schedule{}, fmt.Errorf("end date %s is before start date %s",
			endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}
	return Schedule{
		ID:             id,
		Description:    description,
		Amount:         amount,
		Pattern:        pattern,
		StartDate:      startDate,
		EndDate:        endDate,
		NextOccurrence: startDate,
		IsActive:       true,
	}, nil
}

// AdvanceToNextOccurrence records the current next occurrence as generated and
// moves to the following one. The schedule deactivates itself when the new
// occurrence falls past the end date.
func (s *Schedule) AdvanceToNextOccurrence() error {
	if !s.IsActive {
		return fmt.Errorf("%w: %s", ErrScheduleInactive, s.ID)
	}
	generated := s.NextOccurrence
	s.LastGeneratedDate = &generated
	s.NextOccurrence = s.Pattern.NextOccurrence(generated)
	s.deactivateIfPastEnd()
	return nil
}

// SkipNextOccurrence moves past the current next occurrence without recording
// it as generated.
func (s *Schedule) SkipNextOccurrence() error {
	if !s.IsActive {
		return fmt.Errorf("%w: %s", ErrScheduleInactive, s.ID)
	}
	s.NextOccurrence = s.Pattern.NextOccurrence(s.NextOccurrence)
	s.deactivateIfPastEnd()
	return nil
}

// Pause deactivates the schedule without disturbing its occurrence state.
func (s *Schedule) Pause() {
	s.IsActive = false
}

// Resume reactivates the schedule and recomputes the next occurrence as the
// first one on or after fromDate. Resuming past the end date leaves the
// schedule inactive.
func (s *Schedule) Resume(fromDate time.Time) {
	s.IsActive = true
	s.NextOccurrence = s.nextOnOrAfter(fromDate)
	s.deactivateIfPastEnd()
}

// nextOnOrAfter walks the pattern forward from the start date until reaching
// the first occurrence on or after the given date.
func (s *Schedule) nextOnOrAfter(date time.Time) time.Time {
	occ := s.StartDate
	for occ.Before(date) {
		occ = s.Pattern.NextOccurrence(occ)
	}
	return occ
}

func (s *Schedule) deactivateIfPastEnd() {
	if s.EndDate != nil && s.NextOccurrence.After(*s.EndDate) {
		s.IsActive = false
	}
}

// OccurrencesBetween returns the schedule's occurrence dates within [from, to],
// in order. The sequence is lazy, finite, and restartable: iterating it never
// mutates the schedule, so repeated calls with any ranges are idempotent. An
// inactive schedule yields nothing, and the end date is a hard stop. The start
// date itself is eligible whenever it falls inside the range.
func (s *Schedule) OccurrencesBetween(from, to time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if !s.IsActive {
			return
		}
		last := to
		if s.EndDate != nil && s.EndDate.Before(to) {
			last = *s.EndDate
		}
		for occ := s.StartDate; !occ.After(last); occ = s.Pattern.NextOccurrence(occ) {
			if occ.Before(from) {
				continue
			}
			if !yield(occ) {
				return
			}
		}
	}
}
