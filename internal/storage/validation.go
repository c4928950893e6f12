package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/becauseimclever/recurmatch/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrInvalidMatch       = errors.New("invalid reconciliation match")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateDateRange ensures from does not come after to.
func validateDateRange(from, to time.Time) error {
	if from.After(to) {
		return ErrInvalidDateRange
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	return nil
}

// validateSchedule checks the fields shared by recurring transactions and transfers.
func validateSchedule(sched *model.Schedule) error {
	if sched == nil {
		return fmt.Errorf("%w: schedule", ErrNilParameter)
	}
	if sched.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidSchedule)
	}
	if sched.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidSchedule)
	}
	if sched.StartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidSchedule)
	}
	return nil
}

// validateMatch validates a reconciliation match before persistence.
func validateMatch(match *model.ReconciliationMatch) error {
	if match == nil {
		return fmt.Errorf("%w: match", ErrNilParameter)
	}
	if match.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidMatch)
	}
	if match.TransactionID == "" || match.ScheduleID == "" {
		return fmt.Errorf("%w: missing transaction or schedule ID", ErrInvalidMatch)
	}
	if match.InstanceDate.IsZero() {
		return fmt.Errorf("%w: missing instance date", ErrInvalidMatch)
	}
	return nil
}
