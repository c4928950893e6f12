package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/shopspring/decimal"
)

// GetMatchingTolerances retrieves the persisted tolerance bundle, or nil when
// none has been saved yet (callers fall back to the defaults).
func (s *SQLiteStorage) GetMatchingTolerances(ctx context.Context) (*model.MatchingTolerances, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var days int
	var percent, similarity, autoMatch float64
	var absolute string
	err := s.db.QueryRowContext(ctx, `
		SELECT date_tolerance_days, amount_tolerance_percent, amount_tolerance_absolute,
			description_similarity_threshold, auto_match_threshold
		FROM matching_tolerances WHERE id = 1`).
		Scan(&days, &percent, &absolute, &similarity, &autoMatch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get matching tolerances: %w", err)
	}

	parsed, err := decimal.NewFromString(absolute)
	if err != nil {
		return nil, fmt.Errorf("invalid stored tolerance %q: %w", absolute, err)
	}

	// Revalidate through the factory: a hand-edited row must not smuggle an
	// out-of-range threshold into the matcher.
	tolerances, err := model.NewMatchingTolerances(days, percent, parsed, similarity, autoMatch)
	if err != nil {
		return nil, fmt.Errorf("stored tolerances are invalid: %w", err)
	}
	return &tolerances, nil
}

// SaveMatchingTolerances persists the tolerance bundle as the single settings row.
func (s *SQLiteStorage) SaveMatchingTolerances(ctx context.Context, tolerances model.MatchingTolerances) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	query := `
		INSERT INTO matching_tolerances (
			id, date_tolerance_days, amount_tolerance_percent, amount_tolerance_absolute,
			description_similarity_threshold, auto_match_threshold, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			date_tolerance_days = excluded.date_tolerance_days,
			amount_tolerance_percent = excluded.amount_tolerance_percent,
			amount_tolerance_absolute = excluded.amount_tolerance_absolute,
			description_similarity_threshold = excluded.description_similarity_threshold,
			auto_match_threshold = excluded.auto_match_threshold,
			updated_at = CURRENT_TIMESTAMP`

	_, err := s.db.ExecContext(ctx, query,
		tolerances.DateToleranceDays, tolerances.AmountTolerancePercent,
		tolerances.AmountToleranceAbsolute.String(),
		tolerances.DescriptionSimilarityThreshold, tolerances.AutoMatchThreshold)
	if err != nil {
		return wrapSQLiteError(err)
	}
	return nil
}
