package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/config"
	"github.com/ecotrace/carbon-tracker/database"
)

var (
	sqlitePath  string
	databaseURL string
	catalogPath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:           "carbontrack",
	Short:         "carbontrack records activities and reports their carbon footprint",
	Long:          "carbontrack serves the carbon footprint API and prints per-user footprint reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "db", "", "Path to SQLite database (overrides SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL or DSN (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Reference catalog YAML (overrides CATALOG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() config.Config {
	cfg := config.Load()
	if sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if catalogPath != "" {
		cfg.CatalogPath = catalogPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	config.InitLogger(cfg.LogLevel, cfg.LogFormat)
	return cfg
}

// withDB opens a migrated and seeded database and hands it to fn.
func withDB(ctx context.Context, cfg config.Config, fn func(db *gorm.DB, cat *catalog.Catalog) error) error {
	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	db, err := database.Open(database.Options{URL: cfg.DatabaseURL, SQLitePath: cfg.SQLitePath})
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close database")
			}
		}
	}()
	if err := database.Setup(ctx, db, cat); err != nil {
		return err
	}
	return fn(db, cat)
}
