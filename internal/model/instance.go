package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurringInstanceInfo is a flattened snapshot of one projected occurrence of
// a recurring transaction, with any exception overrides already applied. It is
// produced on demand for matching and never persisted.
type RecurringInstanceInfo struct {
	Date        time.Time
	Category    *string
	ScheduleID  string
	AccountID   string
	AccountName string
	Description string
	Amount      decimal.Decimal
	IsModified  bool
	IsSkipped   bool
}

// RecurringTransferInstanceInfo is the transfer counterpart of
// RecurringInstanceInfo, carrying both sides of the transfer.
type RecurringTransferInstanceInfo struct {
	Date            time.Time
	ScheduleID      string
	FromAccountID   string
	FromAccountName string
	ToAccountID     string
	ToAccountName   string
	Description     string
	Amount          decimal.Decimal
	IsModified      bool
	IsSkipped       bool
}

// AsInstance flattens the transfer occurrence into a plain instance keyed on
// the source account, which is the side a bank transaction settles against.
func (t RecurringTransferInstanceInfo) AsInstance() RecurringInstanceInfo {
	return RecurringInstanceInfo{
		ScheduleID:  t.ScheduleID,
		Date:        t.Date,
		AccountID:   t.FromAccountID,
		AccountName: t.FromAccountName,
		Description: t.Description,
		Amount:      t.Amount,
		IsModified:  t.IsModified,
		IsSkipped:   t.IsSkipped,
	}
}

// ScheduleException overrides or skips a single projected occurrence of a
// schedule, keyed by the occurrence's original date.
type ScheduleException struct {
	OccurrenceDate time.Time
	NewDate        *time.Time
	NewAmount      *decimal.Decimal
	NewDescription *string
	ScheduleID     string
	Skip           bool
}
