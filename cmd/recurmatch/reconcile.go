package main

import (
	"context"
	"fmt"
	"time"

	"github.com/becauseimclever/recurmatch/internal/engine"
	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/becauseimclever/recurmatch/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match imported transactions against projected schedule occurrences",
		Long: `Match unreconciled transactions against occurrences projected from
active recurring schedules. Matches scoring at or above the auto-match
threshold reconcile immediately; the rest become suggestions for review.

Examples:
  recurmatch reconcile                          # Reconcile the last 30 days
  recurmatch reconcile --from 2026-01-01 --to 2026-01-31
  recurmatch reconcile --dry-run                # Preview without saving`,
		RunE: runReconcile,
	}

	cmd.Flags().String("from", "", "start of the reconciliation window (YYYY-MM-DD, default: 30 days ago)")
	cmd.Flags().String("to", "", "end of the reconciliation window (YYYY-MM-DD, default: today)")
	cmd.Flags().Bool("dry-run", false, "preview without saving changes")
	cmd.Flags().Int("max-suggestions", 3, "suggestions to keep per transaction")

	_ = viper.BindPFlag("reconcile.from", cmd.Flags().Lookup("from"))
	_ = viper.BindPFlag("reconcile.to", cmd.Flags().Lookup("to"))
	_ = viper.BindPFlag("reconcile.dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("reconcile.max_suggestions", cmd.Flags().Lookup("max-suggestions"))

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	from, to, err := reconcileWindow(
		viper.GetString("reconcile.from"),
		viper.GetString("reconcile.to"))
	if err != nil {
		return err
	}

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	reconciler := engine.NewWithConfig(db, engine.Config{
		Scope:          model.MatchScopeShared,
		MaxSuggestions: viper.GetInt("reconcile.max_suggestions"),
		DryRun:         viper.GetBool("reconcile.dry_run"),
	})

	summary, err := reconciler.Reconcile(ctx, from, to)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	fmt.Printf("Processed %d transactions in %s\n", summary.TransactionsProcessed, summary.Duration.Round(time.Millisecond))
	fmt.Printf("  auto-matched: %d\n", summary.AutoMatched)
	fmt.Printf("  suggested:    %d\n", summary.Suggested)
	fmt.Printf("  unmatched:    %d\n", summary.Unmatched)
	return nil
}

func reconcileWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -30)
	var err error

	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date %q: %w", fromStr, err)
		}
	}
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date %q: %w", toStr, err)
		}
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from %s is after --to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return from, to, nil
}

func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := databasePath()
	if err := ensureParentDir(dbPath); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
