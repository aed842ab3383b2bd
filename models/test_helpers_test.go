package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carbon.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "open db")
	require.NoError(t, db.AutoMigrate(&User{}, &EmissionFactor{}, &Activity{}), "migrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedFactors(t *testing.T, db *gorm.DB) []EmissionFactor {
	t.Helper()
	factors := []EmissionFactor{
		{Category: CategoryTransport, Subcategory: "voiture", ActivityName: "Voiture essence", Unit: "km", CO2Factor: 0.192, Source: "ADEME"},
		{Category: CategoryFood, Subcategory: "viande", ActivityName: "Boeuf", Unit: "kg", CO2Factor: 27.0, Source: "ADEME"},
		{Category: CategoryEnergy, Subcategory: "electricite", ActivityName: "Electricite", Unit: "kWh", CO2Factor: 0.057, Source: "ADEME"},
	}
	n, err := NewEmissionFactorsRepository(db).Seed(t.Context(), factors)
	require.NoError(t, err)
	require.Equal(t, len(factors), n)

	stored, err := NewEmissionFactorsRepository(db).GetAll(t.Context())
	require.NoError(t, err)
	return stored
}

func ptr(id uint) *uint { return &id }
