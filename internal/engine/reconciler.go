package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/becauseimclever/recurmatch/internal/common"
	"github.com/becauseimclever/recurmatch/internal/match"
	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/becauseimclever/recurmatch/internal/service"
)

// Config holds configuration options for the reconciler.
type Config struct {
	OwnerUserID    string
	Scope          model.MatchScope
	MaxSuggestions int
	DryRun         bool
}

// DefaultConfig returns the default reconciler configuration.
func DefaultConfig() Config {
	return Config{
		Scope:          model.MatchScopeShared,
		MaxSuggestions: 3,
	}
}

// Reconciler matches imported transactions against projected schedule
// instances and persists the outcomes. The matcher itself is pure; all
// ordering concerns live here, around persistence.
type Reconciler struct {
	storage   service.Storage
	matcher   *match.Matcher
	projector *Projector
	config    Config
}

// New creates a reconciler with default configuration.
func New(storage service.Storage) *Reconciler {
	return NewWithConfig(storage, DefaultConfig())
}

// NewWithConfig creates a reconciler with custom configuration.
func NewWithConfig(storage service.Storage, config Config) *Reconciler {
	if config.MaxSuggestions <= 0 {
		config.MaxSuggestions = DefaultConfig().MaxSuggestions
	}
	if config.Scope == "" {
		config.Scope = model.MatchScopeShared
	}
	return &Reconciler{
		storage:   storage,
		matcher:   match.NewMatcher(),
		projector: NewProjector(),
		config:    config,
	}
}

// Reconcile matches every unreconciled transaction dated within [from, to]
// against the candidate pool projected from active schedules. The best result
// at or above the auto-match threshold is auto-matched; otherwise the top
// results are persisted as suggestions for review.
func (r *Reconciler) Reconcile(ctx context.Context, from, to time.Time) (*service.ReconcileSummary, error) {
	started := time.Now()

	tolerances, err := r.loadTolerances(ctx)
	if err != nil {
		return nil, err
	}

	transactions, err := r.storage.GetTransactions(ctx, service.TransactionFilter{
		StartDate:    &from,
		EndDate:      &to,
		Unreconciled: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	candidates, err := r.buildCandidatePool(ctx, from, to, tolerances.DateToleranceDays)
	if err != nil {
		return nil, err
	}

	slog.Info("Starting reconciliation",
		"transactions", len(transactions),
		"candidates", len(candidates),
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"))

	summary := &service.ReconcileSummary{}
	for i := range transactions {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.reconcileOne(ctx, transactions[i], candidates, tolerances, summary); err != nil {
			return summary, err
		}
		summary.TransactionsProcessed++
	}

	summary.Duration = time.Since(started)
	slog.Info("Reconciliation complete",
		"processed", summary.TransactionsProcessed,
		"auto_matched", summary.AutoMatched,
		"suggested", summary.Suggested,
		"unmatched", summary.Unmatched,
		"duration", summary.Duration)
	return summary, nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, txn model.Transaction, candidates []model.RecurringInstanceInfo, tolerances model.MatchingTolerances, summary *service.ReconcileSummary) error {
	results := r.matcher.FindMatches(txn, candidates, tolerances)
	if len(results) == 0 {
		summary.Unmatched++
		return nil
	}

	best := results[0]
	if best.ConfidenceScore >= tolerances.AutoMatchThreshold {
		created, err := r.persistMatch(ctx, txn.ID, best, true)
		if err != nil {
			return err
		}
		if created {
			summary.AutoMatched++
		}
		return nil
	}

	suggested := 0
	for _, result := range results {
		if suggested == r.config.MaxSuggestions {
			break
		}
		created, err := r.persistMatch(ctx, txn.ID, result, false)
		if err != nil {
			return err
		}
		if created {
			suggested++
		}
	}
	if suggested > 0 {
		summary.Suggested++
	} else {
		summary.Unmatched++
	}
	return nil
}

// persistMatch creates a reconciliation match unless one already exists for
// the (transaction, schedule, instance date) triple. The storage layer backs
// this check with a unique index, so concurrent writers cannot slip a
// duplicate past it.
func (r *Reconciler) persistMatch(ctx context.Context, transactionID string, result match.Result, auto bool) (bool, error) {
	exists, err := r.storage.MatchExists(ctx, transactionID, result.ScheduleID, result.InstanceDate)
	if err != nil {
		return false, fmt.Errorf("failed to check match existence: %w", err)
	}
	if exists {
		return false, nil
	}

	rm, err := model.NewReconciliationMatch(
		transactionID,
		result.ScheduleID,
		result.InstanceDate,
		result.ConfidenceScore,
		result.AmountVariance,
		result.DateOffsetDays,
		r.config.Scope,
		r.config.OwnerUserID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to build reconciliation match: %w", err)
	}
	if auto {
		if err := rm.AutoMatch(); err != nil {
			return false, err
		}
	}

	if r.config.DryRun {
		slog.Info("Dry run: would create match",
			"transaction_id", transactionID,
			"schedule_id", result.ScheduleID,
			"instance_date", result.InstanceDate.Format("2006-01-02"),
			"score", result.ConfidenceScore,
			"status", rm.Status)
		return true, nil
	}

	err = common.WithRetry(ctx, func() error {
		return r.storage.CreateReconciliationMatch(ctx, rm)
	}, service.RetryOptions{MaxAttempts: 3})
	if err != nil {
		return false, fmt.Errorf("failed to persist match: %w", err)
	}
	return true, nil
}

// buildCandidatePool projects every active schedule over the window, padded by
// the date tolerance so an instance just outside the transaction window can
// still match. Skipped instances never enter the pool.
func (r *Reconciler) buildCandidatePool(ctx context.Context, from, to time.Time, toleranceDays int) ([]model.RecurringInstanceInfo, error) {
	windowFrom := from.AddDate(0, 0, -toleranceDays)
	windowTo := to.AddDate(0, 0, toleranceDays)

	schedules, err := r.storage.GetActiveRecurringTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring transactions: %w", err)
	}
	transfers, err := r.storage.GetActiveRecurringTransfers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring transfers: %w", err)
	}

	var pool []model.RecurringInstanceInfo
	for i := range schedules {
		exceptions, err := r.storage.GetScheduleExceptions(ctx, schedules[i].ID, windowFrom, windowTo)
		if err != nil {
			return nil, fmt.Errorf("failed to load exceptions for schedule %s: %w", schedules[i].ID, err)
		}
		for _, instance := range r.projector.ProjectTransaction(&schedules[i], exceptions, windowFrom, windowTo) {
			if !instance.IsSkipped {
				pool = append(pool, instance)
			}
		}
	}
	for i := range transfers {
		exceptions, err := r.storage.GetScheduleExceptions(ctx, transfers[i].ID, windowFrom, windowTo)
		if err != nil {
			return nil, fmt.Errorf("failed to load exceptions for transfer %s: %w", transfers[i].ID, err)
		}
		for _, instance := range r.projector.ProjectTransfer(&transfers[i], exceptions, windowFrom, windowTo) {
			if !instance.IsSkipped {
				pool = append(pool, instance.AsInstance())
			}
		}
	}
	return pool, nil
}

func (r *Reconciler) loadTolerances(ctx context.Context) (model.MatchingTolerances, error) {
	tolerances, err := r.storage.GetMatchingTolerances(ctx)
	if err != nil {
		return model.MatchingTolerances{}, fmt.Errorf("failed to load matching tolerances: %w", err)
	}
	if tolerances == nil {
		return model.DefaultTolerances(), nil
	}
	return *tolerances, nil
}
