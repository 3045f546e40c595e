package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimdaga/ascend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferencesUpdate carries the fields a user may change. Nil fields keep
// their stored value.
type PreferencesUpdate struct {
	DeadlineReminders    *bool `json:"deadlineReminders"`
	DeadlineReminderDays []int `json:"deadlineReminderDays" validate:"omitempty,max=10,unique,dive,gte=0,lte=30"`
	OverdueNotifications *bool `json:"overdueNotifications"`
	StatusUpdates        *bool `json:"statusUpdates"`
	WeeklyDigest         *bool `json:"weeklyDigest"`
	EmailEnabled         *bool `json:"emailEnabled"`
}

// Preferences returns the user's preferences, creating the defaults on
// first access
func (s *Service) Preferences(ctx context.Context, userID uint) (models.NotificationPreferences, error) {
	return preferencesFor(s.db.WithContext(ctx), userID)
}

func preferencesFor(db *gorm.DB, userID uint) (models.NotificationPreferences, error) {
	var prefs models.NotificationPreferences
	err := db.Where("user_id = ?", userID).First(&prefs).Error
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return prefs, fmt.Errorf("failed to load preferences: %w", err)
	}

	prefs = models.DefaultPreferences(userID)
	// A concurrent first access may have inserted the row already
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&prefs).Error; err != nil {
		return prefs, fmt.Errorf("failed to create preferences: %w", err)
	}
	if prefs.ID == 0 {
		if err := db.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
			return prefs, fmt.Errorf("failed to load preferences: %w", err)
		}
	}
	return prefs, nil
}

// UpdatePreferences applies update to the user's preferences
func (s *Service) UpdatePreferences(ctx context.Context, userID uint, update PreferencesUpdate) (models.NotificationPreferences, error) {
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		return prefs, err
	}

	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&prefs.DeadlineReminders, update.DeadlineReminders)
	set(&prefs.OverdueNotifications, update.OverdueNotifications)
	set(&prefs.StatusUpdates, update.StatusUpdates)
	set(&prefs.WeeklyDigest, update.WeeklyDigest)
	set(&prefs.EmailEnabled, update.EmailEnabled)
	if update.DeadlineReminderDays != nil {
		prefs.DeadlineReminderDays = update.DeadlineReminderDays
	}

	err = s.db.WithContext(ctx).Model(&prefs).Updates(map[string]interface{}{
		"deadline_reminders":     prefs.DeadlineReminders,
		"deadline_reminder_days": prefs.DeadlineReminderDays,
		"overdue_notifications":  prefs.OverdueNotifications,
		"status_updates":         prefs.StatusUpdates,
		"weekly_digest":          prefs.WeeklyDigest,
		"email_enabled":          prefs.EmailEnabled,
	}).Error
	if err != nil {
		return prefs, fmt.Errorf("failed to update preferences: %w", err)
	}
	return prefs, nil
}
