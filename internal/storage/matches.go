package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/becauseimclever/recurmatch/internal/common"
	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/shopspring/decimal"
)

// CreateReconciliationMatch persists a new match. The unique index on
// (transaction_id, schedule_id, instance_date) backs the caller's
// check-then-create sequence; a duplicate insert surfaces as ErrDuplicateEntry.
func (s *SQLiteStorage) CreateReconciliationMatch(ctx context.Context, match *model.ReconciliationMatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMatch(match); err != nil {
		return err
	}

	query := `
		INSERT INTO reconciliation_matches (
			id, transaction_id, schedule_id, instance_date,
			confidence_score, confidence_level, amount_variance, date_offset_days,
			scope, owner_user_id, status, created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		match.ID, match.TransactionID, match.ScheduleID, match.InstanceDate,
		match.ConfidenceScore, string(match.ConfidenceLevel),
		match.AmountVariance.String(), match.DateOffsetDays,
		string(match.Scope), nullableString(match.OwnerUserID),
		string(match.Status), match.CreatedAt, match.ResolvedAt)
	if err != nil {
		return wrapSQLiteError(err)
	}

	slog.Info("created reconciliation match",
		"id", match.ID,
		"transaction_id", match.TransactionID,
		"schedule_id", match.ScheduleID,
		"status", match.Status)
	return nil
}

// GetReconciliationMatch retrieves a match by ID.
func (s *SQLiteStorage) GetReconciliationMatch(ctx context.Context, id string) (*model.ReconciliationMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, matchQuery+" WHERE id = ?", id)
	match, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reconciliation match %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reconciliation match: %w", err)
	}
	return match, nil
}

// GetMatchesByStatus retrieves all matches in the given status, newest first.
func (s *SQLiteStorage) GetMatchesByStatus(ctx context.Context, status model.MatchStatus) ([]model.ReconciliationMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, matchQuery+" WHERE status = ? ORDER BY created_at DESC, id", string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []model.ReconciliationMatch
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan reconciliation match: %w", scanErr)
		}
		matches = append(matches, *match)
	}
	return matches, rows.Err()
}

// UpdateReconciliationMatch persists a match's adjudication state. Only the
// status and resolution timestamp ever change after creation.
func (s *SQLiteStorage) UpdateReconciliationMatch(ctx context.Context, match *model.ReconciliationMatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMatch(match); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE reconciliation_matches SET status = ?, resolved_at = ? WHERE id = ?`,
		string(match.Status), match.ResolvedAt, match.ID)
	if err != nil {
		return wrapSQLiteError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: reconciliation match %s", common.ErrNotFound, match.ID)
	}
	return nil
}

// MatchExists reports whether a match already exists for the
// (transaction, schedule, instance date) triple.
func (s *SQLiteStorage) MatchExists(ctx context.Context, transactionID, scheduleID string, instanceDate time.Time) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return false, err
	}
	if err := validateString(scheduleID, "scheduleID"); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM reconciliation_matches
		WHERE transaction_id = ? AND schedule_id = ? AND instance_date = ?`,
		transactionID, scheduleID, instanceDate).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check match existence: %w", err)
	}
	return count > 0, nil
}

const matchQuery = `
	SELECT id, transaction_id, schedule_id, instance_date,
		confidence_score, confidence_level, amount_variance, date_offset_days,
		scope, owner_user_id, status, created_at, resolved_at
	FROM reconciliation_matches`

func scanMatch(row rowScanner) (*model.ReconciliationMatch, error) {
	var match model.ReconciliationMatch
	var level, scope, status, variance string
	var owner sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(&match.ID, &match.TransactionID, &match.ScheduleID, &match.InstanceDate,
		&match.ConfidenceScore, &level, &variance, &match.DateOffsetDays,
		&scope, &owner, &status, &match.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(variance)
	if err != nil {
		return nil, fmt.Errorf("invalid stored variance %q: %w", variance, err)
	}
	match.AmountVariance = parsed
	match.ConfidenceLevel = model.ConfidenceLevel(level)
	match.Scope = model.MatchScope(scope)
	match.Status = model.MatchStatus(status)
	match.OwnerUserID = owner.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		match.ResolvedAt = &t
	}
	return &match, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
