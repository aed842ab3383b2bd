package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type EmissionFactorsRepository struct {
	db *gorm.DB
}

// ErrEmissionFactorNotFound is returned when a factor id does not resolve.
var ErrEmissionFactorNotFound = errors.New("emission factor not found")

func NewEmissionFactorsRepository(db *gorm.DB) *EmissionFactorsRepository {
	return &EmissionFactorsRepository{db: db}
}

func (r *EmissionFactorsRepository) GetEmissionFactor(ctx context.Context, id uint) (*EmissionFactor, error) {
	var factor EmissionFactor
	if err := r.db.WithContext(ctx).First(&factor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmissionFactorNotFound
		}
		return nil, err
	}
	return &factor, nil
}

func (r *EmissionFactorsRepository) GetByCategory(ctx context.Context, category Category) ([]EmissionFactor, error) {
	var factors []EmissionFactor
	if err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("id ASC").
		Find(&factors).Error; err != nil {
		return nil, err
	}
	return factors, nil
}

func (r *EmissionFactorsRepository) GetAll(ctx context.Context) ([]EmissionFactor, error) {
	var factors []EmissionFactor
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&factors).Error; err != nil {
		return nil, err
	}
	return factors, nil
}

func (r *EmissionFactorsRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&EmissionFactor{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Seed inserts factors when the table is empty and reports how many rows
// were written. An already seeded table is left untouched.
func (r *EmissionFactorsRepository) Seed(ctx context.Context, factors []EmissionFactor) (int, error) {
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&EmissionFactor{}).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 || len(factors) == 0 {
			return nil
		}
		rows := make([]EmissionFactor, len(factors))
		copy(rows, factors)
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		inserted = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
