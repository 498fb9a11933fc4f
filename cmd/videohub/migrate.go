package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/videohub/internal/config"
	"github.com/sakif/videohub/internal/repository/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSchema(func(db *sqlite.DB) error { return db.MigrateUp() })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration (drops all data)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSchema(func(db *sqlite.DB) error { return db.MigrateDown() })
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

// withSchema opens the database without migrating it and runs fn.
func withSchema(fn func(db *sqlite.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return fn(db)
}
