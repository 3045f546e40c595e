package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Notification type tags
const (
	NotificationStatusChanged = "status_changed"
	NotificationWeeklyDigest  = "weekly_digest"
)

// Notification delivery outcomes
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// DeadlineNotificationType returns the type tag for an N-day deadline reminder
func DeadlineNotificationType(days int) string {
	return fmt.Sprintf("deadline_%d_days", days)
}

// DefaultReminderDays are the reminder offsets given to new preferences
var DefaultReminderDays = []int{7, 3, 1, 0}

// NotificationPreferences holds one user's email settings. Rows are created
// lazily with defaults on first access.
type NotificationPreferences struct {
	ID                   uint                     `gorm:"primaryKey" json:"-"`
	UserID               uint                     `gorm:"not null;uniqueIndex" json:"userId"`
	DeadlineReminders    bool                     `gorm:"not null" json:"deadlineReminders"`
	DeadlineReminderDays datatypes.JSONSlice[int] `gorm:"type:jsonb;not null" json:"deadlineReminderDays"`
	OverdueNotifications bool                     `gorm:"not null" json:"overdueNotifications"`
	StatusUpdates        bool                     `gorm:"not null" json:"statusUpdates"`
	WeeklyDigest         bool                     `gorm:"not null" json:"weeklyDigest"`
	EmailEnabled         bool                     `gorm:"not null" json:"emailEnabled"`
	CreatedAt            time.Time                `json:"createdAt"`
	UpdatedAt            time.Time                `json:"updatedAt"`
}

// TableName keeps the plural table name explicit
func (NotificationPreferences) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns the preferences every user starts with
func DefaultPreferences(userID uint) NotificationPreferences {
	days := make([]int, len(DefaultReminderDays))
	copy(days, DefaultReminderDays)
	return NotificationPreferences{
		UserID:               userID,
		DeadlineReminders:    true,
		DeadlineReminderDays: days,
		OverdueNotifications: true,
		StatusUpdates:        true,
		WeeklyDigest:         true,
		EmailEnabled:         true,
	}
}

// RemindsAt reports whether days is one of the configured reminder offsets
func (p NotificationPreferences) RemindsAt(days int) bool {
	for _, d := range p.DeadlineReminderDays {
		if d == days {
			return true
		}
	}
	return false
}

// Notification is the audit row of one email dispatch attempt
type Notification struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       uint        `gorm:"not null;index:idx_notifications_dedup,priority:1" json:"userId"`
	SubmissionID *string     `gorm:"type:uuid;index:idx_notifications_dedup,priority:2" json:"submissionId"`
	Submission   *Submission `gorm:"constraint:OnDelete:SET NULL;" json:"submission,omitempty"`
	Type         string      `gorm:"not null;index:idx_notifications_dedup,priority:3" json:"type"`
	SentAt       time.Time   `gorm:"not null;index" json:"sentAt"`
	Status       string      `gorm:"not null" json:"status"`
	ProviderID   string      `gorm:"not null;default:''" json:"providerId,omitempty"`
	Error        string      `gorm:"type:text;not null;default:''" json:"error,omitempty"`
}
