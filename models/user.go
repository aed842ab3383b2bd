package models

import "time"

// User owns zero or more activities.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:100;not null"`
	Email        string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password;size:200;not null"`
	IsAdmin      bool   `gorm:"default:false"`
	CreatedAt    time.Time
}

func (u *User) TableName() string {
	return "users"
}
