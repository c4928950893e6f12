package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/becauseimclever/recurmatch/internal/common"
	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/becauseimclever/recurmatch/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(context.Background()))
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func sampleTransaction(id string, day time.Time) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        day,
		Amount:      decimal.RequireFromString("15.99"),
		Description: "NETFLIX",
		Currency:    "USD",
		AccountID:   "acct-checking",
	}
}

func TestNewSQLiteStorageRequiresPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	storage := testStorage(t)
	require.NoError(t, storage.Migrate(context.Background()))
}

func TestSaveAndGetTransactions(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	txns := []model.Transaction{
		sampleTransaction("txn-1", date(2026, time.March, 15)),
		sampleTransaction("txn-2", date(2026, time.March, 10)),
	}
	require.NoError(t, storage.SaveTransactions(ctx, txns))

	got, err := storage.GetTransactionByID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "NETFLIX", got.Description)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("15.99")))
	assert.True(t, got.Date.Equal(date(2026, time.March, 15)))
	assert.NotEmpty(t, got.Hash, "hash is generated on save")

	all, err := storage.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "txn-2", all[0].ID, "ordered by date")
}

func TestSaveTransactionsDeduplicatesByHash(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	txn := sampleTransaction("txn-1", date(2026, time.March, 15))
	require.NoError(t, storage.SaveTransactions(ctx, []model.Transaction{txn}))

	// Same content under a different id hashes identically and is ignored.
	dup := txn
	dup.ID = "txn-1-reimport"
	require.NoError(t, storage.SaveTransactions(ctx, []model.Transaction{dup}))

	all, err := storage.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetTransactionByIDNotFound(t *testing.T) {
	storage := testStorage(t)

	_, err := storage.GetTransactionByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetTransactionsFilters(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveTransactions(ctx, []model.Transaction{
		sampleTransaction("txn-feb", date(2026, time.February, 10)),
		sampleTransaction("txn-mar", date(2026, time.March, 10)),
		sampleTransaction("txn-apr", date(2026, time.April, 10)),
	}))

	from := date(2026, time.March, 1)
	to := date(2026, time.March, 31)
	got, err := storage.GetTransactions(ctx, service.TransactionFilter{StartDate: &from, EndDate: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "txn-mar", got[0].ID)

	limited, err := storage.GetTransactions(ctx, service.TransactionFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "txn-mar", limited[0].ID)
}

func TestUnreconciledFilterExcludesResolvedMatches(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveTransactions(ctx, []model.Transaction{
		sampleTransaction("txn-matched", date(2026, time.March, 10)),
		sampleTransaction("txn-suggested", date(2026, time.March, 11)),
		sampleTransaction("txn-open", date(2026, time.March, 12)),
	}))

	accepted, err := model.NewReconciliationMatch("txn-matched", "sched-1", date(2026, time.March, 10),
		0.9, decimal.Zero, 0, model.MatchScopeShared, "")
	require.NoError(t, err)
	require.NoError(t, accepted.Accept())
	require.NoError(t, storage.CreateReconciliationMatch(ctx, accepted))

	suggested, err := model.NewReconciliationMatch("txn-suggested", "sched-1", date(2026, time.March, 11),
		0.7, decimal.Zero, 0, model.MatchScopeShared, "")
	require.NoError(t, err)
	require.NoError(t, storage.CreateReconciliationMatch(ctx, suggested))

	got, err := storage.GetTransactions(ctx, service.TransactionFilter{Unreconciled: true})
	require.NoError(t, err)
	require.Len(t, got, 2, "suggested matches do not reconcile a transaction")
	assert.Equal(t, "txn-suggested", got[0].ID)
	assert.Equal(t, "txn-open", got[1].ID)
}

func TestRecurringTransactionRoundTrip(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	pattern, err := model.NewMonthlyPattern(1, 31)
	require.NoError(t, err)
	end := date(2027, time.January, 31)
	category := "Housing"
	schedule, err := model.NewRecurringTransaction("sched-rent", "acct-checking", "Monthly Rent",
		decimal.RequireFromString("1500.00"), pattern, date(2026, time.January, 31), &end)
	require.NoError(t, err)
	schedule.AccountName = "Checking"
	schedule.Category = &category
	require.NoError(t, schedule.AdvanceToNextOccurrence())

	require.NoError(t, storage.SaveRecurringTransaction(ctx, schedule))

	got, err := storage.GetRecurringTransaction(ctx, "sched-rent")
	require.NoError(t, err)
	assert.Equal(t, model.FrequencyMonthly, got.Pattern.Frequency)
	require.NotNil(t, got.Pattern.DayOfMonth)
	assert.Equal(t, 31, *got.Pattern.DayOfMonth)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1500.00")))
	require.NotNil(t, got.Category)
	assert.Equal(t, "Housing", *got.Category)
	require.NotNil(t, got.EndDate)
	assert.True(t, got.EndDate.Equal(end))
	require.NotNil(t, got.LastGeneratedDate)
	assert.True(t, got.LastGeneratedDate.Equal(date(2026, time.January, 31)))
	assert.True(t, got.NextOccurrence.Equal(date(2026, time.February, 28)))
	assert.True(t, got.IsActive)

	// The rehydrated pattern keeps working.
	assert.True(t, got.Pattern.NextOccurrence(date(2026, time.February, 28)).Equal(date(2026, time.March, 31)))
}

func TestSaveRecurringTransactionUpserts(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	pattern, err := model.NewWeeklyPattern(1, time.Friday)
	require.NoError(t, err)
	schedule, err := model.NewRecurringTransaction("sched-gym", "acct-checking", "Gym",
		decimal.NewFromInt(40), pattern, date(2026, time.January, 2), nil)
	require.NoError(t, err)
	require.NoError(t, storage.SaveRecurringTransaction(ctx, schedule))

	schedule.Pause()
	require.NoError(t, storage.SaveRecurringTransaction(ctx, schedule))

	got, err := storage.GetRecurringTransaction(ctx, "sched-gym")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := storage.GetActiveRecurringTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRecurringTransferRoundTrip(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	pattern, err := model.NewBiWeeklyPattern(time.Monday)
	require.NoError(t, err)
	transfer, err := model.NewRecurringTransfer("sched-sweep", "acct-checking", "acct-savings",
		"Savings sweep", decimal.NewFromInt(250), pattern, date(2026, time.January, 5), nil)
	require.NoError(t, err)
	require.NoError(t, storage.SaveRecurringTransfer(ctx, transfer))

	got, err := storage.GetRecurringTransfer(ctx, "sched-sweep")
	require.NoError(t, err)
	assert.Equal(t, "acct-checking", got.FromAccountID)
	assert.Equal(t, "acct-savings", got.ToAccountID)
	assert.Equal(t, model.FrequencyBiWeekly, got.Pattern.Frequency)
	require.NotNil(t, got.Pattern.DayOfWeek)
	assert.Equal(t, time.Monday, *got.Pattern.DayOfWeek)

	active, err := storage.GetActiveRecurringTransfers(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestScheduleExceptionRoundTrip(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	newDate := date(2026, time.March, 20)
	newAmount := decimal.RequireFromString("1600.00")
	newDescription := "Rent (with late fee)"
	require.NoError(t, storage.SaveScheduleException(ctx, &model.ScheduleException{
		ScheduleID:     "sched-rent",
		OccurrenceDate: date(2026, time.March, 15),
		NewDate:        &newDate,
		NewAmount:      &newAmount,
		NewDescription: &newDescription,
	}))
	require.NoError(t, storage.SaveScheduleException(ctx, &model.ScheduleException{
		ScheduleID:     "sched-rent",
		OccurrenceDate: date(2026, time.April, 15),
		Skip:           true,
	}))

	got, err := storage.GetScheduleExceptions(ctx, "sched-rent",
		date(2026, time.March, 1), date(2026, time.April, 30))
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].NewDate)
	assert.True(t, got[0].NewDate.Equal(newDate))
	require.NotNil(t, got[0].NewAmount)
	assert.True(t, got[0].NewAmount.Equal(newAmount))
	require.NotNil(t, got[0].NewDescription)
	assert.Equal(t, newDescription, *got[0].NewDescription)
	assert.False(t, got[0].Skip)

	assert.True(t, got[1].Skip)
	assert.Nil(t, got[1].NewAmount)

	narrow, err := storage.GetScheduleExceptions(ctx, "sched-rent",
		date(2026, time.April, 1), date(2026, time.April, 30))
	require.NoError(t, err)
	assert.Len(t, narrow, 1)
}

func TestSaveScheduleExceptionReplacesOnSameOccurrence(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()
	occurrence := date(2026, time.March, 15)

	amount := decimal.NewFromInt(1600)
	require.NoError(t, storage.SaveScheduleException(ctx, &model.ScheduleException{
		ScheduleID:     "sched-rent",
		OccurrenceDate: occurrence,
		NewAmount:      &amount,
	}))
	require.NoError(t, storage.SaveScheduleException(ctx, &model.ScheduleException{
		ScheduleID:     "sched-rent",
		OccurrenceDate: occurrence,
		Skip:           true,
	}))

	got, err := storage.GetScheduleExceptions(ctx, "sched-rent", occurrence, occurrence)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Skip)
	assert.Nil(t, got[0].NewAmount)
}

func newStoredMatch(t *testing.T, storage *SQLiteStorage, transactionID, scheduleID string, instanceDate time.Time) *model.ReconciliationMatch {
	t.Helper()
	match, err := model.NewReconciliationMatch(transactionID, scheduleID, instanceDate,
		0.72, decimal.RequireFromString("-2.50"), 1, model.MatchScopeShared, "")
	require.NoError(t, err)
	require.NoError(t, storage.CreateReconciliationMatch(context.Background(), match))
	return match
}

func TestReconciliationMatchRoundTrip(t *testing.T) {
	storage := testStorage(t)
	instanceDate := date(2026, time.March, 15)
	match := newStoredMatch(t, storage, "txn-1", "sched-1", instanceDate)

	got, err := storage.GetReconciliationMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, "txn-1", got.TransactionID)
	assert.Equal(t, "sched-1", got.ScheduleID)
	assert.True(t, got.InstanceDate.Equal(instanceDate))
	assert.InDelta(t, 0.72, got.ConfidenceScore, 1e-9)
	assert.Equal(t, model.ConfidenceMedium, got.ConfidenceLevel)
	assert.True(t, got.AmountVariance.Equal(decimal.RequireFromString("-2.50")))
	assert.Equal(t, 1, got.DateOffsetDays)
	assert.Equal(t, model.MatchScopeShared, got.Scope)
	assert.Empty(t, got.OwnerUserID)
	assert.Equal(t, model.MatchStatusSuggested, got.Status)
	assert.Nil(t, got.ResolvedAt)
}

func TestCreateReconciliationMatchRejectsDuplicateTriple(t *testing.T) {
	storage := testStorage(t)
	instanceDate := date(2026, time.March, 15)
	newStoredMatch(t, storage, "txn-1", "sched-1", instanceDate)

	dup, err := model.NewReconciliationMatch("txn-1", "sched-1", instanceDate,
		0.9, decimal.Zero, 0, model.MatchScopeShared, "")
	require.NoError(t, err)
	err = storage.CreateReconciliationMatch(context.Background(), dup)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestMatchExists(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()
	instanceDate := date(2026, time.March, 15)
	newStoredMatch(t, storage, "txn-1", "sched-1", instanceDate)

	exists, err := storage.MatchExists(ctx, "txn-1", "sched-1", instanceDate)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = storage.MatchExists(ctx, "txn-1", "sched-1", date(2026, time.April, 15))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = storage.MatchExists(ctx, "txn-2", "sched-1", instanceDate)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateReconciliationMatch(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()
	match := newStoredMatch(t, storage, "txn-1", "sched-1", date(2026, time.March, 15))

	require.NoError(t, match.Accept())
	require.NoError(t, storage.UpdateReconciliationMatch(ctx, match))

	got, err := storage.GetReconciliationMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusAccepted, got.Status)
	assert.NotNil(t, got.ResolvedAt)
}

func TestUpdateReconciliationMatchNotFound(t *testing.T) {
	storage := testStorage(t)

	match, err := model.NewReconciliationMatch("txn-1", "sched-1", date(2026, time.March, 15),
		0.7, decimal.Zero, 0, model.MatchScopeShared, "")
	require.NoError(t, err)
	err = storage.UpdateReconciliationMatch(context.Background(), match)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetMatchesByStatus(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	first := newStoredMatch(t, storage, "txn-1", "sched-1", date(2026, time.March, 15))
	newStoredMatch(t, storage, "txn-2", "sched-1", date(2026, time.March, 15))

	require.NoError(t, first.Reject())
	require.NoError(t, storage.UpdateReconciliationMatch(ctx, first))

	suggested, err := storage.GetMatchesByStatus(ctx, model.MatchStatusSuggested)
	require.NoError(t, err)
	require.Len(t, suggested, 1)
	assert.Equal(t, "txn-2", suggested[0].TransactionID)

	rejected, err := storage.GetMatchesByStatus(ctx, model.MatchStatusRejected)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "txn-1", rejected[0].TransactionID)
}

func TestPersonalMatchRoundTrip(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	match, err := model.NewReconciliationMatch("txn-1", "sched-1", date(2026, time.March, 15),
		0.9, decimal.Zero, 0, model.MatchScopePersonal, "user-1")
	require.NoError(t, err)
	require.NoError(t, storage.CreateReconciliationMatch(ctx, match))

	got, err := storage.GetReconciliationMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchScopePersonal, got.Scope)
	assert.Equal(t, "user-1", got.OwnerUserID)
}

func TestMatchingTolerancesRoundTrip(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	got, err := storage.GetMatchingTolerances(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "no row yet")

	tolerances, err := model.NewMatchingTolerances(5, 0.05, decimal.NewFromInt(2), 0.7, 0.9)
	require.NoError(t, err)
	require.NoError(t, storage.SaveMatchingTolerances(ctx, tolerances))

	got, err = storage.GetMatchingTolerances(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, tolerances.Equal(*got))

	// Saving again overwrites the single settings row.
	updated := model.DefaultTolerances()
	require.NoError(t, storage.SaveMatchingTolerances(ctx, updated))
	got, err = storage.GetMatchingTolerances(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, updated.Equal(*got))
}

func TestValidation(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	assert.ErrorIs(t, storage.SaveTransactions(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, storage.SaveTransactions(ctx, []model.Transaction{}), ErrEmptySlice)

	_, err := storage.GetTransactionByID(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyString)

	assert.ErrorIs(t, storage.SaveRecurringTransaction(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, storage.SaveScheduleException(ctx, nil), ErrNilParameter)

	_, err = storage.GetScheduleExceptions(ctx, "sched-1",
		date(2026, time.April, 1), date(2026, time.March, 1))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	err = storage.SaveTransactions(nil, []model.Transaction{sampleTransaction("txn-1", date(2026, time.March, 15))}) //nolint:staticcheck
	assert.ErrorIs(t, err, ErrNilContext)
}
