package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"explainx/internal/database/migration"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := baseApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := migration.EnsureMigrated(cmd.Context(), a.db, a.log, a.cfg.Database.Host); err != nil {
				a.log.Error("migrate_failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
}
