package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"intentio/backend/internal/config"
	"intentio/backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	database, applied, err := openDatabase(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	out := cmd.OutOrStdout()
	for _, name := range applied {
		fmt.Fprintf(out, "  applied %s\n", name)
	}
	if len(applied) == 0 {
		color.New(color.FgGreen, color.Bold).Fprintf(out, "✓ %s is up to date\n", cfg.Database.Path)
		return nil
	}
	color.New(color.FgGreen, color.Bold).Fprintf(out, "✓ %d migration(s) applied to %s\n", len(applied), cfg.Database.Path)
	return nil
}

// openDatabase opens the SQLite file and brings its schema up to date,
// returning the migrations it applied.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, []string, error) {
	database, err := db.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	migrations, err := db.Migrations(cfg.MigrationsDir)
	if err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	applied, err := db.RunMigrations(ctx, database, migrations)
	if err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database, applied, nil
}
