package cmd

import (
	"fmt"

	"github.com/fadbs/anidb-cache/internal/database"
	"github.com/fadbs/anidb-cache/internal/models"
	"github.com/fadbs/anidb-cache/pkg/config"
	"github.com/spf13/cobra"
)

// migrateCmd applies the GORM schema migration
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply the database schema for the AniDB metadata cache.

Creates or updates the series, title, episode, genre, and language
tables. Safe to run repeatedly; existing data is preserved.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.LogQueries)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied successfully")
	return nil
}
