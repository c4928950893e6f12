// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"time"
)

// Frequency identifies how often a recurring schedule repeats.
type Frequency string

// Supported recurrence frequencies.
const (
	FrequencyDaily     Frequency = "DAILY"
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyBiWeekly  Frequency = "BIWEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

// RecurrencePattern describes when a schedule repeats. It is immutable and
// constructed only through the per-frequency factory functions, which validate
// the fields their frequency requires. Fields not used by the frequency are nil.
type RecurrencePattern struct {
	DayOfMonth  *int
	DayOfWeek   *time.Weekday
	MonthOfYear *time.Month
	Frequency   Frequency
	Interval    int
}

// NewDailyPattern creates a pattern repeating every interval days.
func NewDailyPattern(interval int) (RecurrencePattern, error) {
	if err := validateInterval(interval); err != nil {
		return RecurrencePattern{}, err
	}
	return RecurrencePattern{Frequency: FrequencyDaily, Interval: interval}, nil
}

// NewWeeklyPattern creates a pattern repeating every interval weeks on the given weekday.
func NewWeeklyPattern(interval int, day time.Weekday) (RecurrencePattern, error) {
	if err := validateInterval(interval); err != nil {
		return RecurrencePattern{}, err
	}
	if day < time.Sunday || day > time.Saturday {
		return RecurrencePattern{}, fmt.Errorf("day of week must be between Sunday and Saturday, got %d", day)
	}
	return RecurrencePattern{Frequency: FrequencyWeekly, Interval: interval, DayOfWeek: &day}, nil
}

// NewBiWeeklyPattern creates a pattern repeating every two weeks on the given weekday.
func NewBiWeeklyPattern(day time.Weekday) (RecurrencePattern, error) {
	if day < time.Sunday || day > time.Saturday {
		return RecurrencePattern{}, fmt.Errorf("day of week must be between Sunday and Saturday, got %d", day)
	}
	// Interval is fixed: bi-weekly always advances 14 days.
	return RecurrencePattern{Frequency: FrequencyBiWeekly, Interval: 2, DayOfWeek: &day}, nil
}

// NewMonthlyPattern creates a pattern repeating every interval months on the
// given day of month. Days past the end of a short month clamp to its last day.
func NewMonthlyPattern(interval, dayOfMonth int) (RecurrencePattern, error) {
	if err := validateInterval(interval); err != nil {
		return RecurrencePattern{}, err
	}
	if err := validateDayOfMonth(dayOfMonth); err != nil {
		return RecurrencePattern{}, err
	}
	return RecurrencePattern{Frequency: FrequencyMonthly, Interval: interval, DayOfMonth: &dayOfMonth}, nil
}

// NewQuarterlyPattern creates a pattern repeating every three months on the given day of month.
func NewQuarterlyPattern(dayOfMonth int) (RecurrencePattern, error) {
	if err := validateDayOfMonth(dayOfMonth); err != nil {
		return RecurrencePattern{}, err
	}
	return RecurrencePattern{Frequency: FrequencyQuarterly, Interval: 3, DayOfMonth: &dayOfMonth}, nil
}

// NewYearlyPattern creates a pattern repeating once a year in the given month
// on the given day. Feb 29 clamps to Feb 28 outside leap years.
func NewYearlyPattern(month time.Month, dayOfMonth int) (RecurrencePattern, error) {
	if month < time.January || month > time.December {
		return RecurrencePattern{}, fmt.Errorf("month of year must be between 1 and 12, got %d", month)
	}
	if err := validateDayOfMonth(dayOfMonth); err != nil {
		return RecurrencePattern{}, err
	}
	return RecurrencePattern{Frequency: FrequencyYearly, Interval: 1, DayOfMonth: &dayOfMonth, MonthOfYear: &month}, nil
}

// NextOccurrence computes the occurrence that follows the given date.
// The pattern has no error path once constructed: every branch produces a
// valid calendar date.
func (p RecurrencePattern) NextOccurrence(from time.Time) time.Time {
	switch p.Frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, p.Interval)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7*p.Interval)
	case FrequencyBiWeekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly, FrequencyQuarterly:
		return p.addMonthsClamped(from, p.Interval)
	case FrequencyYearly:
		year := from.Year() + 1
		day := clampDay(*p.DayOfMonth, year, *p.MonthOfYear)
		return time.Date(year, *p.MonthOfYear, day, 0, 0, 0, 0, from.Location())
	}
	panic(fmt.Sprintf("recurrence pattern has unknown frequency %q", p.Frequency))
}

// addMonthsClamped advances by whole months and pins the day of month,
// clamping to the last day of shorter months. time.AddDate is avoided here
// because it normalizes overflow (Jan 31 + 1 month = Mar 3).
func (p RecurrencePattern) addMonthsClamped(from time.Time, months int) time.Time {
	total := int(from.Month()) - 1 + months
	year := from.Year() + total/12
	month := time.Month(total%12 + 1)
	day := clampDay(*p.DayOfMonth, year, month)
	return time.Date(year, month, day, 0, 0, 0, 0, from.Location())
}

// clampDay returns day limited to the number of days in the given month.
func clampDay(day, year int, month time.Month) int {
	if last := daysInMonth(year, month); day > last {
		return last
	}
	return day
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func validateInterval(interval int) error {
	if interval < 1 {
		return fmt.Errorf("interval must be at least 1, got %d", interval)
	}
	return nil
}

func validateDayOfMonth(day int) error {
	if day < 1 || day > 31 {
		return fmt.Errorf("day of month must be between 1 and 31, got %d", day)
	}
	return nil
}
