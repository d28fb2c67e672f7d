package cmd

import (
	"studio-orders/config"
	"studio-orders/database"
	"studio-orders/internal/logging"

	"github.com/spf13/cobra"
)

func migrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(cfg.DBURL, cfg.SlowQuery)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			logging.Module("migrate").Info("schema up to date", "tables", len(database.Models()))
			return nil
		},
	}
}
