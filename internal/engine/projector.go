// Package engine orchestrates reconciliation: projecting recurring schedules
// into candidate instances and matching imported transactions against them.
package engine

import (
	"time"

	"github.com/becauseimclever/recurmatch/internal/model"
)

// Projector materializes recurring schedules into flat instance snapshots,
// merging any exception overrides so the matcher only ever sees resolved
// candidates.
type Projector struct{}

// NewProjector creates a projector.
func NewProjector() *Projector {
	return &Projector{}
}

// ProjectTransaction enumerates a recurring transaction's occurrences in
// [from, to] and applies exceptions keyed by original occurrence date. Skipped
// occurrences are still emitted, flagged, so callers decide their fate.
func (p *Projector) ProjectTransaction(schedule *model.RecurringTransaction, exceptions []model.ScheduleException, from, to time.Time) []model.RecurringInstanceInfo {
	overrides := indexExceptions(schedule.ID, exceptions)

	var instances []model.RecurringInstanceInfo
	for date := range schedule.OccurrencesBetween(from, to) {
		instance := model.RecurringInstanceInfo{
			ScheduleID:  schedule.ID,
			Date:        date,
			AccountID:   schedule.AccountID,
			AccountName: schedule.AccountName,
			Description: schedule.Description,
			Amount:      schedule.Amount,
			Category:    schedule.Category,
		}
		applyException(&instance, overrides[dateKey(date)])
		instances = append(instances, instance)
	}
	return instances
}

// ProjectTransfer is the transfer counterpart of ProjectTransaction.
func (p *Projector) ProjectTransfer(transfer *model.RecurringTransfer, exceptions []model.ScheduleException, from, to time.Time) []model.RecurringTransferInstanceInfo {
	overrides := indexExceptions(transfer.ID, exceptions)

	var instances []model.RecurringTransferInstanceInfo
	for date := range transfer.OccurrencesBetween(from, to) {
		instance := model.RecurringTransferInstanceInfo{
			ScheduleID:      transfer.ID,
			Date:            date,
			FromAccountID:   transfer.FromAccountID,
			FromAccountName: transfer.FromAccountName,
			ToAccountID:     transfer.ToAccountID,
			ToAccountName:   transfer.ToAccountName,
			Description:     transfer.Description,
			Amount:          transfer.Amount,
		}
		if exc, ok := overrides[dateKey(date)]; ok {
			flat := instance.AsInstance()
			applyException(&flat, exc)
			instance.Date = flat.Date
			instance.Description = flat.Description
			instance.Amount = flat.Amount
			instance.IsModified = flat.IsModified
			instance.IsSkipped = flat.IsSkipped
		}
		instances = append(instances, instance)
	}
	return instances
}

func indexExceptions(scheduleID string, exceptions []model.ScheduleException) map[string]*model.ScheduleException {
	overrides := make(map[string]*model.ScheduleException, len(exceptions))
	for i := range exceptions {
		if exceptions[i].ScheduleID == scheduleID {
			overrides[dateKey(exceptions[i].OccurrenceDate)] = &exceptions[i]
		}
	}
	return overrides
}

func applyException(instance *model.RecurringInstanceInfo, exc *model.ScheduleException) {
	if exc == nil {
		return
	}
	if exc.Skip {
		instance.IsSkipped = true
		return
	}
	if exc.NewDate != nil {
		instance.Date = *exc.NewDate
		instance.IsModified = true
	}
	if exc.NewAmount != nil {
		instance.Amount = *exc.NewAmount
		instance.IsModified = true
	}
	if exc.NewDescription != nil {
		instance.Description = *exc.NewDescription
		instance.IsModified = true
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
