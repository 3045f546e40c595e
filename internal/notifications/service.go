// Package notifications sends deadline reminders, weekly digests and status
// change notices, recording every attempt as a Notification row.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jimdaga/ascend/internal/email"
	"github.com/jimdaga/ascend/internal/logging"
	"github.com/jimdaga/ascend/internal/metrics"
	"github.com/jimdaga/ascend/internal/models"
	"gorm.io/gorm"
)

const (
	// lookahead bounds how far ahead deadlines are considered
	lookahead = 7 * 24 * time.Hour
	// dedupWindow is how long a sent reminder suppresses the same reminder
	dedupWindow = 24 * time.Hour
)

// ErrSubmissionNotFound is returned when a status notice names an unknown submission
var ErrSubmissionNotFound = errors.New("submission not found")

// Service runs the notification jobs
type Service struct {
	db     *gorm.DB
	sender email.Sender
	appURL string
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service sending through sender. appURL prefixes the
// links in every email.
func NewService(db *gorm.DB, sender email.Sender, appURL string, opts ...Option) *Service {
	s := &Service{
		db:     db,
		sender: sender,
		appURL: appURL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeadlineRunStats summarizes one deadline check
type DeadlineRunStats struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// DigestRunStats summarizes one weekly digest run
type DigestRunStats struct {
	Users   int `json:"users"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// DaysUntil is the number of started days between now and deadline, never
// negative
func DaysUntil(deadline, now time.Time) int {
	days := int(math.Ceil(deadline.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckDeadlines sends a reminder for every active submission whose
// deadline is between the start of today and a week from now, when the
// owner wants a reminder at that many days out and has not received the
// same reminder within the last day. A failure on one submission is
// recorded and the run continues.
func (s *Service) CheckDeadlines(ctx context.Context) (DeadlineRunStats, error) {
	logger := logging.FromContext(ctx)
	now := s.now().UTC()

	var subs []models.Submission
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("status IN ?", []models.Status{models.StatusSubmitted, models.StatusUnderReview}).
		Where("deadline IS NOT NULL AND deadline >= ? AND deadline <= ?", startOfDay(now), now.Add(lookahead)).
		Order("deadline ASC").
		Find(&subs).Error
	if err != nil {
		return DeadlineRunStats{}, fmt.Errorf("failed to load upcoming deadlines: %w", err)
	}

	stats := DeadlineRunStats{Checked: len(subs)}
	prefsByUser := map[uint]models.NotificationPreferences{}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		prefs, ok := prefsByUser[sub.UserID]
		if !ok {
			prefs, err = preferencesFor(s.db.WithContext(ctx), sub.UserID)
			if err != nil {
				logger.Error("Failed to load preferences", "user_id", sub.UserID, "error", err)
				stats.Failed++
				continue
			}
			prefsByUser[sub.UserID] = prefs
		}

		days := DaysUntil(*sub.Deadline, now)
		if !prefs.EmailEnabled || !prefs.DeadlineReminders || !prefs.RemindsAt(days) {
			stats.Skipped++
			continue
		}

		kind := models.DeadlineNotificationType(days)
		recent, err := s.sentRecently(ctx, sub.UserID, sub.ID, kind, now)
		if err != nil {
			logger.Error("Failed to check notification history", "submission_id", sub.ID, "error", err)
			stats.Failed++
			continue
		}
		if recent {
			stats.Skipped++
			continue
		}

		msg, err := email.DeadlineReminder(sub.User.Email, email.DeadlineReminderData{
			AppURL:     s.appURL,
			Submission: sub,
			DaysLeft:   days,
		})
		if err == nil {
			err = s.deliver(ctx, sub.UserID, &sub.ID, kind, msg)
		}
		if err != nil {
			logger.Warn("Deadline reminder failed", "submission_id", sub.ID, "type", kind, "error", err)
			stats.Failed++
			continue
		}
		stats.Sent++
	}

	logger.Info("Deadline check complete",
		"checked", stats.Checked,
		"sent", stats.Sent,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

// sentRecently reports whether a notification of kind for the submission
// was recorded within dedupWindow, whatever its outcome
func (s *Service) sentRecently(ctx context.Context, userID uint, submissionID, kind string, now time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND submission_id = ? AND type = ? AND sent_at >= ?", userID, submissionID, kind, now.Add(-dedupWindow)).
		Count(&count).Error
	return count > 0, err
}

// SendWeeklyDigests emails every user who wants a digest a summary of
// deadlines in the coming week and, if they opted in, overdue submissions
// still awaiting a response. Users with nothing to report are skipped.
func (s *Service) SendWeeklyDigests(ctx context.Context) (DigestRunStats, error) {
	logger := logging.FromContext(ctx)
	now := s.now().UTC()

	var users []models.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return DigestRunStats{}, fmt.Errorf("failed to load users: %w", err)
	}

	stats := DigestRunStats{Users: len(users)}
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		err := s.sendDigest(ctx, user, now)
		switch {
		case errors.Is(err, errNothingToSend):
			stats.Skipped++
		case err != nil:
			logger.Warn("Weekly digest failed", "user_id", user.ID, "error", err)
			stats.Failed++
		default:
			stats.Sent++
		}
	}

	logger.Info("Weekly digest complete",
		"users", stats.Users,
		"sent", stats.Sent,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

var errNothingToSend = errors.New("nothing to send")

func (s *Service) sendDigest(ctx context.Context, user models.User, now time.Time) error {
	db := s.db.WithContext(ctx)

	prefs, err := preferencesFor(db, user.ID)
	if err != nil {
		return err
	}
	if !prefs.WeeklyDigest || !prefs.EmailEnabled {
		return errNothingToSend
	}

	var upcoming []models.Submission
	if err := db.Where("user_id = ? AND deadline >= ? AND deadline <= ?", user.ID, now, now.Add(lookahead)).
		Order("deadline ASC").Find(&upcoming).Error; err != nil {
		return fmt.Errorf("failed to load upcoming deadlines: %w", err)
	}

	var overdue []models.Submission
	if prefs.OverdueNotifications {
		if err := db.Where("user_id = ? AND deadline < ? AND status = ?", user.ID, now, models.StatusSubmitted).
			Order("deadline ASC").Find(&overdue).Error; err != nil {
			return fmt.Errorf("failed to load overdue submissions: %w", err)
		}
	}

	if len(upcoming) == 0 && len(overdue) == 0 {
		return errNothingToSend
	}

	items := make([]email.DigestItem, 0, len(upcoming))
	for _, sub := range upcoming {
		items = append(items, email.DigestItem{Submission: sub, DaysLeft: DaysUntil(*sub.Deadline, now)})
	}

	msg, err := email.WeeklyDigest(user.Email, email.WeeklyDigestData{
		AppURL:   s.appURL,
		Upcoming: items,
		Overdue:  overdue,
	})
	if err != nil {
		return err
	}
	return s.deliver(ctx, user.ID, nil, models.NotificationWeeklyDigest, msg)
}

// NotifyStatusChange emails the owner that a submission moved from one
// status to another, if the owner wants status updates
func (s *Service) NotifyStatusChange(ctx context.Context, submissionID string, from, to models.Status) error {
	db := s.db.WithContext(ctx)

	var sub models.Submission
	err := db.Preload("User").Where("id = ?", submissionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSubmissionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}

	prefs, err := preferencesFor(db, sub.UserID)
	if err != nil {
		return err
	}
	if !prefs.EmailEnabled || !prefs.StatusUpdates {
		logging.FromContext(ctx).Debug("Status updates disabled, skipping", "user_id", sub.UserID)
		return nil
	}

	msg, err := email.StatusChange(sub.User.Email, email.StatusChangeData{
		AppURL:     s.appURL,
		Submission: sub,
		From:       from,
		To:         to,
	})
	if err != nil {
		return err
	}
	return s.deliver(ctx, sub.UserID, &sub.ID, models.NotificationStatusChanged, msg)
}

// deliver sends msg and records the attempt. A send failure is recorded and
// returned; a failure to record is only logged.
func (s *Service) deliver(ctx context.Context, userID uint, submissionID *string, kind string, msg email.Message) error {
	providerID, sendErr := s.sender.Send(ctx, msg)

	n := models.Notification{
		UserID:       userID,
		SubmissionID: submissionID,
		Type:         kind,
		SentAt:       s.now().UTC(),
		Status:       models.NotificationSent,
		ProviderID:   providerID,
	}
	if sendErr != nil {
		n.Status = models.NotificationFailed
		n.Error = sendErr.Error()
	}
	metrics.NotificationsTotal.WithLabelValues(kind, n.Status).Inc()

	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		logging.FromContext(ctx).Error("Failed to record notification",
			"user_id", userID,
			"type", kind,
			"error", err,
		)
	}
	return sendErr
}

// HistoryEntry is one recorded notification with its submission summary
type HistoryEntry struct {
	ID           uint      `json:"id"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	SentAt       time.Time `json:"sentAt"`
	SubmissionID *string   `json:"submissionId"`
	TheaterName  string    `json:"theaterName,omitempty"`
	ScriptTitle  string    `json:"scriptTitle,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// History returns the user's most recent notifications, newest first
func (s *Service) History(ctx context.Context, userID uint, limit int) ([]HistoryEntry, error) {
	var rows []models.Notification
	err := s.db.WithContext(ctx).
		Preload("Submission").
		Where("user_id = ?", userID).
		Order("sent_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load notification history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, n := range rows {
		e := HistoryEntry{
			ID:           n.ID,
			Type:         n.Type,
			Status:       n.Status,
			SentAt:       n.SentAt,
			SubmissionID: n.SubmissionID,
			Error:        n.Error,
		}
		if n.Submission != nil {
			e.TheaterName = n.Submission.TheaterName
			e.ScriptTitle = n.Submission.ScriptTitle
		}
		entries = append(entries, e)
	}
	return entries, nil
}
