// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/becauseimclever/recurmatch/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	Unreconciled bool
	Limit        int
	Offset       int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	// Recurring schedule operations
	SaveRecurringTransaction(ctx context.Context, schedule *model.RecurringTransaction) error
	GetRecurringTransaction(ctx context.Context, id string) (*model.RecurringTransaction, error)
	GetActiveRecurringTransactions(ctx context.Context) ([]model.RecurringTransaction, error)
	SaveRecurringTransfer(ctx context.Context, transfer *model.RecurringTransfer) error
	GetRecurringTransfer(ctx context.Context, id string) (*model.RecurringTransfer, error)
	GetActiveRecurringTransfers(ctx context.Context) ([]model.RecurringTransfer, error)

	// Schedule exception operations
	SaveScheduleException(ctx context.Context, exception *model.ScheduleException) error
	GetScheduleExceptions(ctx context.Context, scheduleID string, from, to time.Time) ([]model.ScheduleException, error)

	// Reconciliation match operations
	CreateReconciliationMatch(ctx context.Context, match *model.ReconciliationMatch) error
	GetReconciliationMatch(ctx context.Context, id string) (*model.ReconciliationMatch, error)
	GetMatchesByStatus(ctx context.Context, status model.MatchStatus) ([]model.ReconciliationMatch, error)
	UpdateReconciliationMatch(ctx context.Context, match *model.ReconciliationMatch) error
	MatchExists(ctx context.Context, transactionID, scheduleID string, instanceDate time.Time) (bool, error)

	// Matching tolerance operations
	GetMatchingTolerances(ctx context.Context) (*model.MatchingTolerances, error)
	SaveMatchingTolerances(ctx context.Context, tolerances model.MatchingTolerances) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ReconcileSummary shows the results of a reconciliation run.
type ReconcileSummary struct {
	TransactionsProcessed int
	AutoMatched           int
	Suggested             int
	Unmatched             int
	Duration              time.Duration
}
