package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimdaga/ascend/internal/logging"
	"github.com/jimdaga/ascend/internal/metrics"
	"github.com/jimdaga/ascend/internal/models"
	"github.com/jimdaga/ascend/internal/submissions"
)

var (
	// ErrNotConnected is returned when the owner has no calendar grant
	ErrNotConnected = errors.New("calendar not connected")
	// ErrNoDeadline is returned when a follow-up is requested for a
	// submission without a deadline
	ErrNoDeadline = errors.New("submission has no deadline")
)

// Bridge keeps calendar events in step with submissions
type Bridge struct {
	store    *submissions.Store
	provider Provider
	appURL   string
}

// NewBridge creates a Bridge writing event ids through store
func NewBridge(store *submissions.Store, provider Provider, appURL string) *Bridge {
	return &Bridge{store: store, provider: provider, appURL: appURL}
}

// SyncCalendar creates the deadline event for a submission that has none,
// or refreshes the existing one. Owners without a calendar are skipped.
func (b *Bridge) SyncCalendar(ctx context.Context, submissionID string) error {
	sub, err := b.store.GetByID(ctx, submissionID)
	if err != nil {
		return err
	}
	if !sub.User.HasCalendar() {
		return nil
	}
	grantID := *sub.User.CalendarGrantID

	if sub.CalendarEventID == nil || *sub.CalendarEventID == "" {
		if sub.Deadline == nil {
			return nil
		}
		return b.createDeadlineEvent(ctx, grantID, sub)
	}
	return b.updateDeadlineEvent(ctx, grantID, sub)
}

func (b *Bridge) createDeadlineEvent(ctx context.Context, grantID string, sub models.Submission) (err error) {
	defer func() { metrics.CalendarSyncTotal.WithLabelValues("create", metrics.Result(err)).Inc() }()

	calendarID, err := b.provider.PrimaryCalendarID(ctx, grantID)
	if err != nil {
		return fmt.Errorf("failed to find primary calendar: %w", err)
	}

	eventID, err := b.provider.CreateEvent(ctx, grantID, calendarID, DeadlineEvent(sub, b.appURL))
	if err != nil {
		return fmt.Errorf("failed to create calendar event: %w", err)
	}

	if err := b.store.SetCalendarEventID(ctx, sub.ID, eventID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("Created calendar event",
		"submission_id", sub.ID,
		"event_id", eventID,
	)
	return nil
}

func (b *Bridge) updateDeadlineEvent(ctx context.Context, grantID string, sub models.Submission) (err error) {
	defer func() { metrics.CalendarSyncTotal.WithLabelValues("update", metrics.Result(err)).Inc() }()

	calendarID, err := b.provider.PrimaryCalendarID(ctx, grantID)
	if err != nil {
		return fmt.Errorf("failed to find primary calendar: %w", err)
	}

	if err := b.provider.UpdateEvent(ctx, grantID, calendarID, *sub.CalendarEventID, DeadlinePatch(sub, b.appURL)); err != nil {
		return fmt.Errorf("failed to update calendar event: %w", err)
	}
	logging.FromContext(ctx).Info("Updated calendar event",
		"submission_id", sub.ID,
		"event_id", *sub.CalendarEventID,
	)
	return nil
}

// CreateFollowUp adds the follow-up event for one of the user's
// submissions and returns its id
func (b *Bridge) CreateFollowUp(ctx context.Context, userID uint, submissionID string) (eventID string, err error) {
	sub, err := b.store.GetByID(ctx, submissionID)
	if err != nil {
		return "", err
	}
	if sub.UserID != userID {
		return "", submissions.ErrNotFound
	}
	if !sub.User.HasCalendar() {
		return "", ErrNotConnected
	}
	if sub.Deadline == nil {
		return "", ErrNoDeadline
	}

	defer func() { metrics.CalendarSyncTotal.WithLabelValues("follow_up", metrics.Result(err)).Inc() }()

	grantID := *sub.User.CalendarGrantID
	calendarID, err := b.provider.PrimaryCalendarID(ctx, grantID)
	if err != nil {
		return "", fmt.Errorf("failed to find primary calendar: %w", err)
	}

	eventID, err = b.provider.CreateEvent(ctx, grantID, calendarID, FollowUpEvent(sub, b.appURL))
	if err != nil {
		return "", fmt.Errorf("failed to create follow-up event: %w", err)
	}
	if err := b.store.SetFollowUpEventID(ctx, sub.ID, eventID); err != nil {
		return "", err
	}
	return eventID, nil
}
