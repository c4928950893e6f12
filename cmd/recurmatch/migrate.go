package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			fmt.Println("Database schema is up to date.")
			return nil
		},
	}
}
