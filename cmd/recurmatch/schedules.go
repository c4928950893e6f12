package main

import (
	"fmt"
	"time"

	"github.com/becauseimclever/recurmatch/internal/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func schedulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "Inspect recurring schedules",
	}
	cmd.AddCommand(schedulesListCmd())
	cmd.AddCommand(schedulesPreviewCmd())
	return cmd
}

func schedulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active recurring schedules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			schedules, err := db.GetActiveRecurringTransactions(ctx)
			if err != nil {
				return fmt.Errorf("failed to load schedules: %w", err)
			}
			transfers, err := db.GetActiveRecurringTransfers(ctx)
			if err != nil {
				return fmt.Errorf("failed to load transfers: %w", err)
			}

			if len(schedules) == 0 && len(transfers) == 0 {
				fmt.Println("No active schedules.")
				return nil
			}

			for _, s := range schedules {
				fmt.Printf("%-36s  %-10s  %10s  next %s  %s\n",
					s.ID, s.Pattern.Frequency, s.Amount.StringFixed(2),
					s.NextOccurrence.Format("2006-01-02"), s.Description)
			}
			for _, t := range transfers {
				fmt.Printf("%-36s  %-10s  %10s  next %s  %s (%s -> %s)\n",
					t.ID, t.Pattern.Frequency, t.Amount.StringFixed(2),
					t.NextOccurrence.Format("2006-01-02"), t.Description,
					t.FromAccountID, t.ToAccountID)
			}
			return nil
		},
	}
}

func schedulesPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <schedule-id>",
		Short: "Preview a schedule's projected occurrences",
		Long: `Print the occurrence dates a schedule projects over a date window,
with any exception overrides applied.

Example:
  recurmatch schedules preview 7f3c... --from 2026-01-01 --to 2026-06-30`,
		Args: cobra.ExactArgs(1),
		RunE: runSchedulesPreview,
	}

	cmd.Flags().String("from", "", "window start (YYYY-MM-DD, default: today)")
	cmd.Flags().String("to", "", "window end (YYYY-MM-DD, default: 90 days out)")

	_ = viper.BindPFlag("schedules.preview.from", cmd.Flags().Lookup("from"))
	_ = viper.BindPFlag("schedules.preview.to", cmd.Flags().Lookup("to"))

	return cmd
}

func runSchedulesPreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	scheduleID := args[0]

	today := time.Now().UTC().Truncate(24 * time.Hour)
	from, to := today, today.AddDate(0, 0, 90)
	var err error
	if s := viper.GetString("schedules.preview.from"); s != "" {
		if from, err = time.Parse("2006-01-02", s); err != nil {
			return fmt.Errorf("invalid --from date %q: %w", s, err)
		}
	}
	if s := viper.GetString("schedules.preview.to"); s != "" {
		if to, err = time.Parse("2006-01-02", s); err != nil {
			return fmt.Errorf("invalid --to date %q: %w", s, err)
		}
	}

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	schedule, err := db.GetRecurringTransaction(ctx, scheduleID)
	if err != nil {
		return err
	}
	exceptions, err := db.GetScheduleExceptions(ctx, scheduleID, from, to)
	if err != nil {
		return fmt.Errorf("failed to load exceptions: %w", err)
	}

	projector := engine.NewProjector()
	instances := projector.ProjectTransaction(schedule, exceptions, from, to)
	if len(instances) == 0 {
		fmt.Println("No occurrences in window.")
		return nil
	}

	for _, inst := range instances {
		flags := ""
		if inst.IsSkipped {
			flags = "  [skipped]"
		} else if inst.IsModified {
			flags = "  [modified]"
		}
		fmt.Printf("%s  %10s  %s%s\n",
			inst.Date.Format("2006-01-02"), inst.Amount.StringFixed(2), inst.Description, flags)
	}
	return nil
}
