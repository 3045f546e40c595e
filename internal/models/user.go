package models

import (
	"time"

	"gorm.io/gorm"
)

// User is one authenticated account, identified externally by its login provider id
type User struct {
	gorm.Model
	Email           string  `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null"`
	Name            string  `gorm:"not null;default:''"`
	ProviderUserID  string  `gorm:"column:provider_user_id;not null;default:''"`
	CalendarGrantID *string `gorm:"column:calendar_grant_id"`
	LastLoginAt     *time.Time

	// Associations
	AuthIdentities          []AuthIdentity           `gorm:"constraint:OnDelete:CASCADE;"`
	Submissions             []Submission             `gorm:"constraint:OnDelete:CASCADE;"`
	NotificationPreferences *NotificationPreferences `gorm:"constraint:OnDelete:CASCADE;"`
}

// HasCalendar reports whether the user connected an external calendar
func (u User) HasCalendar() bool {
	return u.CalendarGrantID != nil && *u.CalendarGrantID != ""
}
