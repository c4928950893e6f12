package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/becauseimclever/recurmatch/internal/common"
	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/becauseimclever/recurmatch/internal/service"
)

// mockStorage is an in-memory service.Storage for reconciler tests. Hooks let
// individual tests inject failures; everything else behaves like real storage,
// including the uniqueness check on (transaction, schedule, instance date).
type mockStorage struct {
	createMatchFn func(ctx context.Context, match *model.ReconciliationMatch) error

	transactions []model.Transaction
	recurring    []model.RecurringTransaction
	transfers    []model.RecurringTransfer
	exceptions   []model.ScheduleException
	matches      []*model.ReconciliationMatch
	tolerances   *model.MatchingTolerances

	createMatchCalls int
}

func newMockStorage() *mockStorage {
	return &mockStorage{}
}

func matchKey(transactionID, scheduleID string, instanceDate time.Time) string {
	return fmt.Sprintf("%s|%s|%s", transactionID, scheduleID, instanceDate.Format("2006-01-02"))
}

func (m *mockStorage) SaveTransactions(_ context.Context, transactions []model.Transaction) error {
	m.transactions = append(m.transactions, transactions...)
	return nil
}

func (m *mockStorage) GetTransactionByID(_ context.Context, id string) (*model.Transaction, error) {
	for i := range m.transactions {
		if m.transactions[i].ID == id {
			return &m.transactions[i], nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *mockStorage) GetTransactions(_ context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, txn := range m.transactions {
		if filter.StartDate != nil && txn.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && txn.Date.After(*filter.EndDate) {
			continue
		}
		if filter.Unreconciled && m.isReconciled(txn.ID) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

func (m *mockStorage) isReconciled(transactionID string) bool {
	for _, match := range m.matches {
		if match.TransactionID != transactionID {
			continue
		}
		if match.Status == model.MatchStatusAccepted || match.Status == model.MatchStatusAutoMatched {
			return true
		}
	}
	return false
}

func (m *mockStorage) SaveRecurringTransaction(_ context.Context, schedule *model.RecurringTransaction) error {
	m.recurring = append(m.recurring, *schedule)
	return nil
}

func (m *mockStorage) GetRecurringTransaction(_ context.Context, id string) (*model.RecurringTransaction, error) {
	for i := range m.recurring {
		if m.recurring[i].ID == id {
			return &m.recurring[i], nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *mockStorage) GetActiveRecurringTransactions(_ context.Context) ([]model.RecurringTransaction, error) {
	var out []model.RecurringTransaction
	for _, schedule := range m.recurring {
		if schedule.IsActive {
			out = append(out, schedule)
		}
	}
	return out, nil
}

func (m *mockStorage) SaveRecurringTransfer(_ context.Context, transfer *model.RecurringTransfer) error {
	m.transfers = append(m.transfers, *transfer)
	return nil
}

func (m *mockStorage) GetRecurringTransfer(_ context.Context, id string) (*model.RecurringTransfer, error) {
	for i := range m.transfers {
		if m.transfers[i].ID == id {
			return &m.transfers[i], nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *mockStorage) GetActiveRecurringTransfers(_ context.Context) ([]model.RecurringTransfer, error) {
	var out []model.RecurringTransfer
	for _, transfer := range m.transfers {
		if transfer.IsActive {
			out = append(out, transfer)
		}
	}
	return out, nil
}

func (m *mockStorage) SaveScheduleException(_ context.Context, exception *model.ScheduleException) error {
	m.exceptions = append(m.exceptions, *exception)
	return nil
}

func (m *mockStorage) GetScheduleExceptions(_ context.Context, scheduleID string, from, to time.Time) ([]model.ScheduleException, error) {
	var out []model.ScheduleException
	for _, exc := range m.exceptions {
		if exc.ScheduleID != scheduleID {
			continue
		}
		if exc.OccurrenceDate.Before(from) || exc.OccurrenceDate.After(to) {
			continue
		}
		out = append(out, exc)
	}
	return out, nil
}

func (m *mockStorage) CreateReconciliationMatch(ctx context.Context, match *model.ReconciliationMatch) error {
	m.createMatchCalls++
	if m.createMatchFn != nil {
		if err := m.createMatchFn(ctx, match); err != nil {
			return err
		}
	}
	for _, existing := range m.matches {
		if matchKey(existing.TransactionID, existing.ScheduleID, existing.InstanceDate) ==
			matchKey(match.TransactionID, match.ScheduleID, match.InstanceDate) {
			return common.ErrDuplicateEntry
		}
	}
	stored := *match
	m.matches = append(m.matches, &stored)
	return nil
}

func (m *mockStorage) GetReconciliationMatch(_ context.Context, id string) (*model.ReconciliationMatch, error) {
	for _, match := range m.matches {
		if match.ID == id {
			return match, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *mockStorage) GetMatchesByStatus(_ context.Context, status model.MatchStatus) ([]model.ReconciliationMatch, error) {
	var out []model.ReconciliationMatch
	for _, match := range m.matches {
		if match.Status == status {
			out = append(out, *match)
		}
	}
	return out, nil
}

func (m *mockStorage) UpdateReconciliationMatch(_ context.Context, match *model.ReconciliationMatch) error {
	for i := range m.matches {
		if m.matches[i].ID == match.ID {
			stored := *match
			m.matches[i] = &stored
			return nil
		}
	}
	return common.ErrNotFound
}

func (m *mockStorage) MatchExists(_ context.Context, transactionID, scheduleID string, instanceDate time.Time) (bool, error) {
	key := matchKey(transactionID, scheduleID, instanceDate)
	for _, match := range m.matches {
		if matchKey(match.TransactionID, match.ScheduleID, match.InstanceDate) == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStorage) GetMatchingTolerances(_ context.Context) (*model.MatchingTolerances, error) {
	return m.tolerances, nil
}

func (m *mockStorage) SaveMatchingTolerances(_ context.Context, tolerances model.MatchingTolerances) error {
	m.tolerances = &tolerances
	return nil
}

func (m *mockStorage) Migrate(_ context.Context) error { return nil }

func (m *mockStorage) Close() error { return nil }

// Compile-time check that the mock satisfies the full interface.
var _ service.Storage = (*mockStorage)(nil)

var errStorageDown = errors.New("storage down")
