package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/becauseimclever/recurmatch/internal/common"
	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/shopspring/decimal"
)

// SaveRecurringTransaction inserts or updates a recurring transaction,
// including its full lifecycle state.
func (s *SQLiteStorage) SaveRecurringTransaction(ctx context.Context, schedule *model.RecurringTransaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if schedule == nil {
		return fmt.Errorf("%w: schedule", ErrNilParameter)
	}
	if err := validateSchedule(&schedule.Schedule); err != nil {
		return err
	}

	query := `
		INSERT INTO recurring_transactions (
			id, account_id, account_name, description, amount, category,
			frequency, interval, day_of_month, day_of_week, month_of_year,
			start_date, end_date, next_occurrence, last_generated_date, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			account_name = excluded.account_name,
			description = excluded.description,
			amount = excluded.amount,
			category = excluded.category,
			end_date = excluded.end_date,
			next_occurrence = excluded.next_occurrence,
			last_generated_date = excluded.last_generated_date,
			is_active = excluded.is_active`

	p := schedule.Pattern
	_, err := s.db.ExecContext(ctx, query,
		schedule.ID, schedule.AccountID, schedule.AccountName, schedule.Description,
		schedule.Amount.String(), schedule.Category,
		string(p.Frequency), p.Interval, p.DayOfMonth, weekdayColumn(p.DayOfWeek), monthColumn(p.MonthOfYear),
		schedule.StartDate, schedule.EndDate, schedule.NextOccurrence,
		schedule.LastGeneratedDate, schedule.IsActive)
	if err != nil {
		return wrapSQLiteError(err)
	}
	return nil
}

// GetRecurringTransaction retrieves a recurring transaction by ID.
func (s *SQLiteStorage) GetRecurringTransaction(ctx context.Context, id string) (*model.RecurringTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, recurringTransactionQuery+" WHERE id = ?", id)
	schedule, err := scanRecurringTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: recurring transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring transaction: %w", err)
	}
	return schedule, nil
}

// GetActiveRecurringTransactions retrieves all active recurring transactions.
func (s *SQLiteStorage) GetActiveRecurringTransactions(ctx context.Context) ([]model.RecurringTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, recurringTransactionQuery+" WHERE is_active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schedules []model.RecurringTransaction
	for rows.Next() {
		schedule, scanErr := scanRecurringTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan recurring transaction: %w", scanErr)
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, rows.Err()
}

// SaveRecurringTransfer inserts or updates a recurring transfer.
func (s *SQLiteStorage) SaveRecurringTransfer(ctx context.Context, transfer *model.RecurringTransfer) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if transfer == nil {
		return fmt.Errorf("%w: transfer", ErrNilParameter)
	}
	if err := validateSchedule(&transfer.Schedule); err != nil {
		return err
	}

	query := `
		INSERT INTO recurring_transfers (
			id, from_account_id, from_account_name, to_account_id, to_account_name,
			description, amount, frequency, interval, day_of_month, day_of_week,
			month_of_year, start_date, end_date, next_occurrence, last_generated_date, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			from_account_id = excluded.from_account_id,
			from_account_name = excluded.from_account_name,
			to_account_id = excluded.to_account_id,
			to_account_name = excluded.to_account_name,
			description = excluded.description,
			amount = excluded.amount,
			end_date = excluded.end_date,
			next_occurrence = excluded.next_occurrence,
			last_generated_date = excluded.last_generated_date,
			is_active = excluded.is_active`

	p := transfer.Pattern
	_, err := s.db.ExecContext(ctx, query,
		transfer.ID, transfer.FromAccountID, transfer.FromAccountName,
		transfer.ToAccountID, transfer.ToAccountName,
		transfer.Description, transfer.Amount.String(),
		string(p.Frequency), p.Interval, p.DayOfMonth, weekdayColumn(p.DayOfWeek), monthColumn(p.MonthOfYear),
		transfer.StartDate, transfer.EndDate, transfer.NextOccurrence,
		transfer.LastGeneratedDate, transfer.IsActive)
	if err != nil {
		return wrapSQLiteError(err)
	}
	return nil
}

// GetRecurringTransfer retrieves a recurring transfer by ID.
func (s *SQLiteStorage) GetRecurringTransfer(ctx context.Context, id string) (*model.RecurringTransfer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, recurringTransferQuery+" WHERE id = ?", id)
	transfer, err := scanRecurringTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: recurring transfer %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring transfer: %w", err)
	}
	return transfer, nil
}

// GetActiveRecurringTransfers retrieves all active recurring transfers.
func (s *SQLiteStorage) GetActiveRecurringTransfers(ctx context.Context) ([]model.RecurringTransfer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, recurringTransferQuery+" WHERE is_active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring transfers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transfers []model.RecurringTransfer
	for rows.Next() {
		transfer, scanErr := scanRecurringTransfer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan recurring transfer: %w", scanErr)
		}
		transfers = append(transfers, *transfer)
	}
	return transfers, rows.Err()
}

const recurringTransactionQuery = `
	SELECT id, account_id, account_name, description, amount, category,
		frequency, interval, day_of_month, day_of_week, month_of_year,
		start_date, end_date, next_occurrence, last_generated_date, is_active
	FROM recurring_transactions`

const recurringTransferQuery = `
	SELECT id, from_account_id, from_account_name, to_account_id, to_account_name,
		description, amount, frequency, interval, day_of_month, day_of_week,
		month_of_year, start_date, end_date, next_occurrence, last_generated_date, is_active
	FROM recurring_transfers`

func scanRecurringTransaction(row rowScanner) (*model.RecurringTransaction, error) {
	var schedule model.RecurringTransaction
	var accountName, category sql.NullString
	var amount, frequency string
	var interval int
	var dayOfMonth, dayOfWeek, monthOfYear sql.NullInt64
	var endDate, lastGenerated sql.NullTime

	err := row.Scan(&schedule.ID, &schedule.AccountID, &accountName, &schedule.Description,
		&amount, &category, &frequency, &interval, &dayOfMonth, &dayOfWeek, &monthOfYear,
		&schedule.StartDate, &endDate, &schedule.NextOccurrence, &lastGenerated, &schedule.IsActive)
	if err != nil {
		return nil, err
	}

	schedule.AccountName = accountName.String
	if category.Valid {
		schedule.Category = &category.String
	}
	if err := hydrateSchedule(&schedule.Schedule, amount, frequency, interval, dayOfMonth, dayOfWeek, monthOfYear, endDate, lastGenerated); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func scanRecurringTransfer(row rowScanner) (*model.RecurringTransfer, error) {
	var transfer model.RecurringTransfer
	var fromName, toName sql.NullString
	var amount, frequency string
	var interval int
	var dayOfMonth, dayOfWeek, monthOfYear sql.NullInt64
	var endDate, lastGenerated sql.NullTime

	err := row.Scan(&transfer.ID, &transfer.FromAccountID, &fromName,
		&transfer.ToAccountID, &toName, &transfer.Description,
		&amount, &frequency, &interval, &dayOfMonth, &dayOfWeek, &monthOfYear,
		&transfer.StartDate, &endDate, &transfer.NextOccurrence, &lastGenerated, &transfer.IsActive)
	if err != nil {
		return nil, err
	}

	transfer.FromAccountName = fromName.String
	transfer.ToAccountName = toName.String
	if err := hydrateSchedule(&transfer.Schedule, amount, frequency, interval, dayOfMonth, dayOfWeek, monthOfYear, endDate, lastGenerated); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// hydrateSchedule fills the shared schedule fields from scanned columns,
// rebuilding the recurrence pattern through its validating factories.
func hydrateSchedule(sched *model.Schedule, amount, frequency string, interval int, dayOfMonth, dayOfWeek, monthOfYear sql.NullInt64, endDate, lastGenerated sql.NullTime) error {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	sched.Amount = parsed

	pattern, err := patternFromColumns(frequency, interval, dayOfMonth, dayOfWeek, monthOfYear)
	if err != nil {
		return err
	}
	sched.Pattern = pattern

	if endDate.Valid {
		d := endDate.Time
		sched.EndDate = &d
	}
	if lastGenerated.Valid {
		d := lastGenerated.Time
		sched.LastGeneratedDate = &d
	}
	return nil
}

// patternFromColumns reconstructs a recurrence pattern from its stored parts.
// Construction goes through the factories so a corrupted row cannot produce a
// pattern that violates the per-frequency field invariants.
func patternFromColumns(frequency string, interval int, dayOfMonth, dayOfWeek, monthOfYear sql.NullInt64) (model.RecurrencePattern, error) {
	switch model.Frequency(frequency) {
	case model.FrequencyDaily:
		return model.NewDailyPattern(interval)
	case model.FrequencyWeekly:
		return model.NewWeeklyPattern(interval, time.Weekday(dayOfWeek.Int64))
	case model.FrequencyBiWeekly:
		return model.NewBiWeeklyPattern(time.Weekday(dayOfWeek.Int64))
	case model.FrequencyMonthly:
		return model.NewMonthlyPattern(interval, int(dayOfMonth.Int64))
	case model.FrequencyQuarterly:
		return model.NewQuarterlyPattern(int(dayOfMonth.Int64))
	case model.FrequencyYearly:
		return model.NewYearlyPattern(time.Month(monthOfYear.Int64), int(dayOfMonth.Int64))
	}
	return model.RecurrencePattern{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidSchedule, frequency)
}

func weekdayColumn(day *time.Weekday) *int64 {
	if day == nil {
		return nil
	}
	v := int64(*day)
	return &v
}

func monthColumn(month *time.Month) *int64 {
	if month == nil {
		return nil
	}
	v := int64(*month)
	return &v
}
