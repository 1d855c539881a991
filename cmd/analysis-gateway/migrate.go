// cmd/analysis-gateway/migrate.go
package main

import (
	"resume-analyzer/internal/common/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|reset|status|version]",
		Short: "Manage the analyses schema",
		Long: `Runs the embedded goose migrations against the configured database.
Defaults to "up" when no command is given.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "reset", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.connectSQL(cmd.Context()); err != nil {
				return err
			}
			return database.Migrate(a.sql.GetDB(), a.sql.Driver, command, a.log)
		},
	}
}
