package models

import "time"

// Activity is a user-submitted record referencing an emission factor.
// Its emissions are Quantity multiplied by the factor's CO2Factor.
type Activity struct {
	ID               uint            `gorm:"primaryKey"`
	UserID           uint            `gorm:"not null;index:idx_activities_user_date"`
	EmissionFactorID *uint           `gorm:"index"`
	EmissionFactor   *EmissionFactor `gorm:"foreignKey:EmissionFactorID"`
	Quantity         float64         `gorm:"not null"`
	Date             time.Time       `gorm:"type:date;not null;index:idx_activities_user_date"`
	CreatedAt        time.Time
}

func (a *Activity) TableName() string {
	return "activities"
}

// CalendarDay truncates t to midnight UTC of its calendar date. Activity
// dates are always stored in this form.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
