package main

import (
	"fmt"

	"github.com/becauseimclever/recurmatch/internal/model"
	"github.com/spf13/cobra"
)

func matchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Review and resolve reconciliation matches",
	}
	cmd.AddCommand(matchesListCmd())
	cmd.AddCommand(matchesResolveCmd("accept", "Accept a suggested match",
		func(m *model.ReconciliationMatch) error { return m.Accept() }))
	cmd.AddCommand(matchesResolveCmd("reject", "Reject a suggested match",
		func(m *model.ReconciliationMatch) error { return m.Reject() }))
	return cmd
}

func matchesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [status]",
		Short: "List reconciliation matches by status (default: suggested)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			status := model.MatchStatusSuggested
			if len(args) == 1 {
				parsed, err := parseStatus(args[0])
				if err != nil {
					return err
				}
				status = parsed
			}

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			matches, err := db.GetMatchesByStatus(ctx, status)
			if err != nil {
				return fmt.Errorf("failed to load matches: %w", err)
			}
			if len(matches) == 0 {
				fmt.Printf("No %s matches.\n", status)
				return nil
			}

			for _, m := range matches {
				fmt.Printf("%-36s  txn %-12s  schedule %-12s  %s  score %.3f (%s)  variance %s\n",
					m.ID, m.TransactionID, m.ScheduleID,
					m.InstanceDate.Format("2006-01-02"),
					m.ConfidenceScore, m.ConfidenceLevel,
					m.AmountVariance.StringFixed(2))
			}
			return nil
		},
	}
	return cmd
}

// matchesResolveCmd builds accept and reject, which differ only in the entity
// transition they apply before persisting.
func matchesResolveCmd(verb, short string, transition func(*model.ReconciliationMatch) error) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <match-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			match, err := db.GetReconciliationMatch(ctx, args[0])
			if err != nil {
				return err
			}
			if err := transition(match); err != nil {
				return err
			}
			if err := db.UpdateReconciliationMatch(ctx, match); err != nil {
				return fmt.Errorf("failed to save match: %w", err)
			}

			fmt.Printf("Match %s is now %s.\n", match.ID, match.Status)
			return nil
		},
	}
}

func parseStatus(s string) (model.MatchStatus, error) {
	switch s {
	case "suggested":
		return model.MatchStatusSuggested, nil
	case "accepted":
		return model.MatchStatusAccepted, nil
	case "rejected":
		return model.MatchStatusRejected, nil
	case "auto-matched", "auto":
		return model.MatchStatusAutoMatched, nil
	}
	return "", fmt.Errorf("unknown status %q (want suggested, accepted, rejected, or auto-matched)", s)
}
