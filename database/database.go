// Package database opens the gorm connection and prepares the schema.
package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects the backing store. A non-empty URL means postgres.
type Options struct {
	URL        string
	SQLitePath string
}

// Dialector picks the gorm dialector for opts and returns the driver name.
func Dialector(opts Options) (gorm.Dialector, string, error) {
	if opts.URL == "" {
		path := opts.SQLitePath
		if path == "" {
			path = "carbon.db"
		}
		return sqlite.Open(path), DriverSQLite, nil
	}
	dsn, err := NormalizeDSN(opts.URL)
	if err != nil {
		return nil, "", err
	}
	return postgres.Open(dsn), DriverPostgres, nil
}

// NormalizeDSN turns a postgres:// URL into a key/value DSN. Values that are
// already key/value pairs are returned untouched.
func NormalizeDSN(raw string) (string, error) {
	if !strings.HasPrefix(raw, "postgres://") && !strings.HasPrefix(raw, "postgresql://") {
		return raw, nil
	}
	dsn, err := pq.ParseURL(raw)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	return dsn, nil
}

var passwordPair = regexp.MustCompile(`password=(?:'(?:[^'\\]|\\.)*'|\S+)`)

// RedactDSN masks the password of a key/value DSN.
func RedactDSN(dsn string) string {
	return passwordPair.ReplaceAllString(dsn, "password=xxxxx")
}

// Target describes where opts points, safe for logs.
func Target(opts Options) (string, error) {
	if opts.URL == "" {
		if opts.SQLitePath == "" {
			return "carbon.db", nil
		}
		return opts.SQLitePath, nil
	}
	dsn, err := NormalizeDSN(opts.URL)
	if err != nil {
		return "", err
	}
	return RedactDSN(dsn), nil
}

// Open connects to the configured database.
func Open(opts Options) (*gorm.DB, error) {
	dialector, driver, err := Dialector(opts)
	if err != nil {
		return nil, err
	}
	target, err := Target(opts)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	log.Info().Str("driver", driver).Str("target", target).Msg("database connected")
	return db, nil
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.EmissionFactor{}, &models.Activity{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SeedCatalog loads the catalog's emission factors into an empty table.
func SeedCatalog(ctx context.Context, db *gorm.DB, cat *catalog.Catalog) (int, error) {
	n, err := models.NewEmissionFactorsRepository(db).Seed(ctx, cat.Factors())
	if err != nil {
		return 0, fmt.Errorf("seed emission factors: %w", err)
	}
	if n > 0 {
		log.Info().Int("factors", n).Str("catalog_version", cat.Version).Msg("emission factors seeded")
	}
	return n, nil
}

// Setup runs Migrate then SeedCatalog.
func Setup(ctx context.Context, db *gorm.DB, cat *catalog.Catalog) error {
	if err := Migrate(db); err != nil {
		return err
	}
	_, err := SeedCatalog(ctx, db, cat)
	return err
}
