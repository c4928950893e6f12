package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/shopspring/decimal"
)

// SaveScheduleException inserts or replaces an exception for one occurrence of
// a schedule.
func (s *SQLiteStorage) SaveScheduleException(ctx context.Context, exception *model.ScheduleException) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if exception == nil {
		return fmt.Errorf("%w: exception", ErrNilParameter)
	}
	if err := validateString(exception.ScheduleID, "scheduleID"); err != nil {
		return err
	}
	if exception.OccurrenceDate.IsZero() {
		return fmt.Errorf("%w: missing occurrence date", ErrInvalidSchedule)
	}

	var newAmount *string
	if exception.NewAmount != nil {
		v := exception.NewAmount.String()
		newAmount = &v
	}

	query := `
		INSERT OR REPLACE INTO schedule_exceptions
			(schedule_id, occurrence_date, new_date, new_amount, new_description, skip)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		exception.ScheduleID, exception.OccurrenceDate,
		exception.NewDate, newAmount, exception.NewDescription, exception.Skip)
	if err != nil {
		return wrapSQLiteError(err)
	}
	return nil
}

// GetScheduleExceptions retrieves exceptions for a schedule whose original
// occurrence dates fall within [from, to].
func (s *SQLiteStorage) GetScheduleExceptions(ctx context.Context, scheduleID string, from, to time.Time) ([]model.ScheduleException, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(scheduleID, "scheduleID"); err != nil {
		return nil, err
	}
	if err := validateDateRange(from, to); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT schedule_id, occurrence_date, new_date, new_amount, new_description, skip
		FROM schedule_exceptions
		WHERE schedule_id = ? AND occurrence_date >= ? AND occurrence_date <= ?
		ORDER BY occurrence_date`, scheduleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule exceptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var exceptions []model.ScheduleException
	for rows.Next() {
		var exc model.ScheduleException
		var newDate sql.NullTime
		var newAmount, newDescription sql.NullString

		if err := rows.Scan(&exc.ScheduleID, &exc.OccurrenceDate, &newDate, &newAmount, &newDescription, &exc.Skip); err != nil {
			return nil, fmt.Errorf("failed to scan schedule exception: %w", err)
		}

		if newDate.Valid {
			d := newDate.Time
			exc.NewDate = &d
		}
		if newAmount.Valid {
			parsed, parseErr := decimal.NewFromString(newAmount.String)
			if parseErr != nil {
				return nil, fmt.Errorf("invalid stored amount %q: %w", newAmount.String, parseErr)
			}
			exc.NewAmount = &parsed
		}
		if newDescription.Valid {
			exc.NewDescription = &newDescription.String
		}
		exceptions = append(exceptions, exc)
	}
	return exceptions, rows.Err()
}
