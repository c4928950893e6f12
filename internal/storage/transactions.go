package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/becauseimclever/recurmatch/internal/common"
	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/becauseimclever/recurmatch/internal/service"
	"github.com/shopspring/decimal"
)

// SaveTransactions stores imported transactions, skipping ones whose hash is
// already present.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT OR IGNORE INTO transactions (id, hash, date, description, amount, currency, account_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	saved := 0
	for i := range transactions {
		txn := transactions[i]
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		result, execErr := tx.ExecContext(ctx, query,
			txn.ID, txn.Hash, txn.Date, txn.Description,
			txn.Amount.String(), txn.Currency, txn.AccountID)
		if execErr != nil {
			return wrapSQLiteError(execErr)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			saved++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}

	slog.Info("saved transactions", "total", len(transactions), "new", saved)
	return nil
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, hash, date, description, amount, currency, account_id
		FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// GetTransactions retrieves transactions matching the filter, ordered by date.
// With Unreconciled set, transactions that already carry an accepted or
// auto-matched reconciliation match are excluded.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var conditions []string
	var args []any

	if filter.StartDate != nil {
		conditions = append(conditions, "t.date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "t.date <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.Unreconciled {
		conditions = append(conditions, `NOT EXISTS (
			SELECT 1 FROM reconciliation_matches m
			WHERE m.transaction_id = t.id AND m.status IN (?, ?))`)
		args = append(args, string(model.MatchStatusAccepted), string(model.MatchStatusAutoMatched))
	}

	query := `SELECT t.id, t.hash, t.date, t.description, t.amount, t.currency, t.account_id FROM transactions t`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.date, t.id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amount string
	var accountID sql.NullString
	var date time.Time

	if err := row.Scan(&txn.ID, &txn.Hash, &date, &txn.Description, &amount, &txn.Currency, &accountID); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	txn.Amount = parsed
	txn.Date = date
	txn.AccountID = accountID.String
	return &txn, nil
}
