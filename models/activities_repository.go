package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type ActivitiesRepository struct {
	db *gorm.DB
}

// ErrActivityNotFound is returned when an activity is missing or owned by
// another user.
var ErrActivityNotFound = errors.New("activity not found")

func NewActivitiesRepository(db *gorm.DB) *ActivitiesRepository {
	return &ActivitiesRepository{
		db: db,
	}
}

// ActivitiesOnDate returns the user's activities on the exact calendar day.
func (r *ActivitiesRepository) ActivitiesOnDate(ctx context.Context, userID uint, day time.Time) ([]Activity, error) {
	var activities []Activity
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, CalendarDay(day)).
		Order("date ASC, id ASC").
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

// ActivitiesInRange returns the user's activities with from <= date <= to.
func (r *ActivitiesRepository) ActivitiesInRange(ctx context.Context, userID uint, from, to time.Time) ([]Activity, error) {
	var activities []Activity
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, CalendarDay(from), CalendarDay(to)).
		Order("date ASC, id ASC").
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

// ActivitiesSince returns the user's activities dated on or after from.
func (r *ActivitiesRepository) ActivitiesSince(ctx context.Context, userID uint, from time.Time) ([]Activity, error) {
	var activities []Activity
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, CalendarDay(from)).
		Order("date ASC, id ASC").
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

// History returns the user's activities newest first with their factor
// preloaded. A limit of 0 returns everything.
func (r *ActivitiesRepository) History(ctx context.Context, userID uint, limit int) ([]Activity, error) {
	var activities []Activity
	query := r.db.WithContext(ctx).
		Preload("EmissionFactor").
		Where("user_id = ?", userID).
		Order("date DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *ActivitiesRepository) Create(ctx context.Context, activity *Activity) error {
	activity.Date = CalendarDay(activity.Date)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(activity).Error
	})
}

// DeleteOwned removes the activity only when it belongs to userID.
func (r *ActivitiesRepository) DeleteOwned(ctx context.Context, userID, activityID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var activity Activity
		if err := tx.Where("id = ? AND user_id = ?", activityID, userID).First(&activity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return err
		}
		return tx.Delete(&activity).Error
	})
}

func (r *ActivitiesRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Activity{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// TotalEmissions sums quantity * co2_factor over every activity of every user.
func (r *ActivitiesRepository) TotalEmissions(ctx context.Context) (float64, error) {
	return r.sumEmissions(r.db.WithContext(ctx).Model(&Activity{}))
}

// UserTotalEmissions sums quantity * co2_factor over the user's activities.
func (r *ActivitiesRepository) UserTotalEmissions(ctx context.Context, userID uint) (float64, error) {
	return r.sumEmissions(r.db.WithContext(ctx).Model(&Activity{}).Where("activities.user_id = ?", userID))
}

func (r *ActivitiesRepository) sumEmissions(query *gorm.DB) (float64, error) {
	var total float64
	if err := query.
		Select("COALESCE(SUM(activities.quantity * emission_factors.co2_factor), 0)").
		Joins("JOIN emission_factors ON emission_factors.id = activities.emission_factor_id").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
