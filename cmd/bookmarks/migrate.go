package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patric-chuzhbe/bkmrk/internal/config"
	"github.com/patric-chuzhbe/bkmrk/internal/db/migrations"
	"github.com/patric-chuzhbe/bkmrk/internal/db/sqldb"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrateCmd.AddCommand(
		newMigrationCmd("up", "Apply all pending migrations", migrations.Up),
		newMigrationCmd("down", "Roll back the most recent migration", migrations.Down),
		newMigrationCmd("status", "Print the state of every migration", migrations.Status),
	)

	return migrateCmd
}

func newMigrationCmd(use, short string, command func(db *sql.DB, driver string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use + " [flags]",
		Short:              short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(config.WithArgs(args))
			if err != nil {
				return err
			}
			if cfg.DatabaseDSN == "" {
				return fmt.Errorf("the database DSN is not set: use -d or DATABASE_DSN")
			}

			database, err := sqldb.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := command(database.DB, cfg.DatabaseDriver); err != nil {
				return err
			}

			cmd.Printf("migrate %s: done\n", use)
			return nil
		},
	}
}
