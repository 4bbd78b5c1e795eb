package cmd

import (
	"context"

	"github.com/mahalbangetid-beep/scb-sub003/core/config"
	"github.com/mahalbangetid-beep/scb-sub003/core/database"
	"github.com/mahalbangetid-beep/scb-sub003/repository"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := database.NewDatabase(config.Global)
		if err != nil {
			return err
		}
		defer func() { _ = database.Close(db) }()

		logrus.Info("[MIGRATION] Migrating application tables...")
		if err := repository.AutoMigrate(context.Background(), db); err != nil {
			return err
		}
		logrus.Info("[MIGRATION] Done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
