package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					currency TEXT NOT NULL DEFAULT 'USD',
					account_id TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,

				`CREATE TABLE IF NOT EXISTS recurring_transactions (
					id TEXT PRIMARY KEY,
					account_id TEXT NOT NULL,
					account_name TEXT,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					category TEXT,
					frequency TEXT NOT NULL,
					interval INTEGER NOT NULL,
					day_of_month INTEGER,
					day_of_week INTEGER,
					month_of_year INTEGER,
					start_date DATETIME NOT NULL,
					end_date DATETIME,
					next_occurrence DATETIME NOT NULL,
					last_generated_date DATETIME,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_recurring_transactions_active ON recurring_transactions(is_active)`,

				`CREATE TABLE IF NOT EXISTS recurring_transfers (
					id TEXT PRIMARY KEY,
					from_account_id TEXT NOT NULL,
					from_account_name TEXT,
					to_account_id TEXT NOT NULL,
					to_account_name TEXT,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					frequency TEXT NOT NULL,
					interval INTEGER NOT NULL,
					day_of_month INTEGER,
					day_of_week INTEGER,
					month_of_year INTEGER,
					start_date DATETIME NOT NULL,
					end_date DATETIME,
					next_occurrence DATETIME NOT NULL,
					last_generated_date DATETIME,
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_recurring_transfers_active ON recurring_transfers(is_active)`,

				`CREATE TABLE IF NOT EXISTS schedule_exceptions (
					schedule_id TEXT NOT NULL,
					occurrence_date DATETIME NOT NULL,
					new_date DATETIME,
					new_amount TEXT,
					new_description TEXT,
					skip INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (schedule_id, occurrence_date)
				)`,

				`CREATE TABLE IF NOT EXISTS reconciliation_matches (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL,
					schedule_id TEXT NOT NULL,
					instance_date DATETIME NOT NULL,
					confidence_score REAL NOT NULL,
					confidence_level TEXT NOT NULL,
					amount_variance TEXT NOT NULL,
					date_offset_days INTEGER NOT NULL,
					scope TEXT NOT NULL,
					owner_user_id TEXT,
					status TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					resolved_at DATETIME,
					UNIQUE (transaction_id, schedule_id, instance_date)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add matching tolerances settings",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS matching_tolerances (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					date_tolerance_days INTEGER NOT NULL,
					amount_tolerance_percent REAL NOT NULL,
					amount_tolerance_absolute TEXT NOT NULL,
					description_similarity_threshold REAL NOT NULL,
					auto_match_threshold REAL NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`)
			if err != nil {
				return fmt.Errorf("failed to create matching_tolerances: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Index reconciliation matches by status for review queues",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_reconciliation_matches_status
				ON reconciliation_matches(status)`)
			if err != nil {
				return fmt.Errorf("failed to create status index: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies any outstanding schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
