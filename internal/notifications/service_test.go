package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jimdaga/ascend/internal/email"
	"github.com/jimdaga/ascend/internal/models"
	"github.com/jimdaga/ascend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-" + msg.To, nil
}

func newTestService(t *testing.T) (*Service, *fakeSender, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	sender := &fakeSender{}
	svc := NewService(db, sender, "https://ascend.test", WithClock(func() time.Time { return testNow }))
	return svc, sender, db
}

func day(offset int) *time.Time {
	d := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

func addSubmission(t *testing.T, db *gorm.DB, userID uint, theater string, deadline *time.Time, status models.Status) models.Submission {
	t.Helper()
	sub := models.Submission{
		UserID:         userID,
		TheaterName:    theater,
		ScriptTitle:    "The Quiet Hour",
		SubmissionDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Deadline:       deadline,
		Status:         status,
	}
	require.NoError(t, db.Create(&sub).Error)
	return sub
}

func notifications(t *testing.T, db *gorm.DB) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, db.Order("id ASC").Find(&rows).Error)
	return rows
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"three days out", *day(3), 3},
		{"later today rounds up", testNow.Add(2 * time.Hour), 1},
		{"start of today", *day(0), 0},
		{"past clamps", *day(-4), 0},
		{"exactly one day", testNow.Add(24 * time.Hour), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.deadline, testNow))
		})
	}
}

func TestCheckDeadlines_SendsMatchingReminders(t *testing.T) {
	svc, sender, db := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "writer@example.com")

	due3 := addSubmission(t, db, user.ID, "Magic Theatre", day(3), models.StatusSubmitted)
	dueToday := addSubmission(t, db, user.ID, "Arena Stage", day(0), models.StatusUnderReview)
	addSubmission(t, db, user.ID, "Off Schedule", day(5), models.StatusSubmitted)
	addSubmission(t, db, user.ID, "Already Decided", day(3), models.StatusAccepted)
	addSubmission(t, db, user.ID, "Far Away", day(20), models.StatusSubmitted)
	addSubmission(t, db, user.ID, "Overdue", day(-2), models.StatusSubmitted)

	stats, err := svc.CheckDeadlines(ctx)
	require.NoError(t, err)
	assert.Equal(t, DeadlineRunStats{Checked: 3, Sent: 2, Skipped: 1}, stats)

	require.Len(t, sender.sent, 2)
	subjects := []string{sender.sent[0].Subject, sender.sent[1].Subject}
	assert.Contains(t, subjects, "Reminder: Magic Theatre response due in 3 days")
	assert.Contains(t, subjects, "Reminder: Arena Stage response due today")

	rows := notifications(t, db)
	require.Len(t, rows, 2)
	byType := map[string]models.Notification{}
	for _, n := range rows {
		byType[n.Type] = n
	}
	require.Contains(t, byType, "deadline_3_days")
	require.Contains(t, byType, "deadline_0_days")
	assert.Equal(t, due3.ID, *byType["deadline_3_days"].SubmissionID)
	assert.Equal(t, dueToday.ID, *byType["deadline_0_days"].SubmissionID)
	assert.Equal(t, models.NotificationSent, byType["deadline_3_days"].Status)
	assert.Equal(t, "msg-writer@example.com", byType["deadline_3_days"].ProviderID)
}

func TestCheckDeadlines_DoesNotResendWithinADay(t *testing.T) {
	svc, sender, db := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "writer@example.com")
	addSubmission(t, db, user.ID, "Magic Theatre", day(3), models.StatusSubmitted)

	_, err := svc.CheckDeadlines(ctx)
	require.NoError(t, err)
	stats, err := svc.CheckDeadlines(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 1, stats.Skipped)
	assert.Len(t, sender.sent, 1)
	assert.Len(t, notifications(t, db), 1)
}

func TestCheckDeadlines_RespectsPreferences(t *testing.T) {
	svc, sender, db := newTestService(t)
	ctx := context.Background()

	off := false
	muted := testutil.CreateUser(t, db, "muted@example.com")
	_, err := svc.UpdatePreferences(ctx, muted.ID, PreferencesUpdate{EmailEnabled: &off})
	require.NoError(t, err)
	addSubmission(t, db, muted.ID, "Magic Theatre", day(3), models.StatusSubmitted)

	custom := testutil.CreateUser(t, db, "custom@example.com")
	_, err = svc.UpdatePreferences(ctx, custom.ID, PreferencesUpdate{DeadlineReminderDays: []int{5}})
	require.NoError(t, err)
	addSubmission(t, db, custom.ID, "Arena Stage", day(3), models.StatusSubmitted)
	addSubmission(t, db, custom.ID, "Steppenwolf", day(5), models.StatusSubmitted)

	stats, err := svc.CheckDeadlines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 2, stats.Skipped)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "custom@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "Steppenwolf")
}

func TestCheckDeadlines_RecordsFailures(t *testing.T) {
	svc, sender, db := newTestService(t)
	sender.err = errors.New("smtp unavailable")
	user := testutil.CreateUser(t, db, "writer@example.com")
	addSubmission(t, db, user.ID, "Magic Theatre", day(1), models.StatusSubmitted)
	addSubmission(t, db, user.ID, "Arena Stage", day(7), models.StatusSubmitted)

	stats, err := svc.CheckDeadlines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Failed)

	rows := notifications(t, db)
	require.Len(t, rows, 2)
	for _, n := range rows {
		assert.Equal(t, models.NotificationFailed, n.Status)
		assert.Equal(t, "smtp unavailable", n.Error)
	}
}

func TestSendWeeklyDigests(t *testing.T) {
	svc, sender, db := newTestService(t)
	ctx := context.Background()

	busy := testutil.CreateUser(t, db, "busy@example.com")
	addSubmission(t, db, busy.ID, "Magic Theatre", day(3), models.StatusUnderReview)
	addSubmission(t, db, busy.ID, "Berkeley Rep", day(-10), models.StatusSubmitted)

	idle := testutil.CreateUser(t, db, "idle@example.com")
	addSubmission(t, db, idle.ID, "Cutting Ball", day(30), models.StatusSubmitted)

	off := false
	optedOut := testutil.CreateUser(t, db, "optout@example.com")
	_, err := svc.UpdatePreferences(ctx, optedOut.ID, PreferencesUpdate{WeeklyDigest: &off})
	require.NoError(t, err)
	addSubmission(t, db, optedOut.ID, "Arena Stage", day(2), models.StatusSubmitted)

	stats, err := svc.SendWeeklyDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, DigestRunStats{Users: 3, Sent: 1, Skipped: 2}, stats)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "busy@example.com", msg.To)
	assert.Equal(t, email.WeeklyDigestSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "Magic Theatre")
	assert.Contains(t, msg.HTML, "Berkeley Rep")

	rows := notifications(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotificationWeeklyDigest, rows[0].Type)
	assert.Nil(t, rows[0].SubmissionID)
}

func TestSendWeeklyDigests_OverdueOptOut(t *testing.T) {
	svc, sender, db := newTestService(t)
	ctx := context.Background()

	off := false
	user := testutil.CreateUser(t, db, "writer@example.com")
	_, err := svc.UpdatePreferences(ctx, user.ID, PreferencesUpdate{OverdueNotifications: &off})
	require.NoError(t, err)
	addSubmission(t, db, user.ID, "Berkeley Rep", day(-10), models.StatusSubmitted)

	stats, err := svc.SendWeeklyDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, sender.sent)
}

func TestNotifyStatusChange(t *testing.T) {
	svc, sender, db := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "writer@example.com")
	sub := addSubmission(t, db, user.ID, "Magic Theatre", nil, models.StatusAccepted)

	require.NoError(t, svc.NotifyStatusChange(ctx, sub.ID, models.StatusSubmitted, models.StatusAccepted))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Submission update: Magic Theatre - Accepted", sender.sent[0].Subject)

	rows := notifications(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotificationStatusChanged, rows[0].Type)

	off := false
	_, err := svc.UpdatePreferences(ctx, user.ID, PreferencesUpdate{StatusUpdates: &off})
	require.NoError(t, err)
	require.NoError(t, svc.NotifyStatusChange(ctx, sub.ID, models.StatusAccepted, models.StatusRejected))
	assert.Len(t, sender.sent, 1)

	err = svc.NotifyStatusChange(ctx, "00000000-0000-0000-0000-000000000000", models.StatusSubmitted, models.StatusAccepted)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestPreferences_LazyDefaults(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "writer@example.com")

	prefs, err := svc.Preferences(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, prefs.EmailEnabled)
	assert.Equal(t, []int{7, 3, 1, 0}, []int(prefs.DeadlineReminderDays))

	again, err := svc.Preferences(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, prefs.ID, again.ID)

	var count int64
	db.Model(&models.NotificationPreferences{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestUpdatePreferences_Partial(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "writer@example.com")

	off := false
	updated, err := svc.UpdatePreferences(ctx, user.ID, PreferencesUpdate{
		WeeklyDigest:         &off,
		DeadlineReminderDays: []int{14, 2},
	})
	require.NoError(t, err)
	assert.False(t, updated.WeeklyDigest)
	assert.True(t, updated.StatusUpdates)

	stored, err := svc.Preferences(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.WeeklyDigest)
	assert.Equal(t, []int{14, 2}, []int(stored.DeadlineReminderDays))
}

func TestHistory(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "writer@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	sub := addSubmission(t, db, user.ID, "Magic Theatre", day(3), models.StatusSubmitted)

	rows := []models.Notification{
		{UserID: user.ID, SubmissionID: &sub.ID, Type: "deadline_7_days", SentAt: testNow.Add(-96 * time.Hour), Status: models.NotificationSent},
		{UserID: user.ID, SubmissionID: &sub.ID, Type: "deadline_3_days", SentAt: testNow, Status: models.NotificationSent},
		{UserID: user.ID, Type: models.NotificationWeeklyDigest, SentAt: testNow.Add(-time.Hour), Status: models.NotificationFailed, Error: "boom"},
		{UserID: other.ID, Type: models.NotificationWeeklyDigest, SentAt: testNow, Status: models.NotificationSent},
	}
	require.NoError(t, db.Create(&rows).Error)

	entries, err := svc.History(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "deadline_3_days", entries[0].Type)
	assert.Equal(t, "Magic Theatre", entries[0].TheaterName)
	assert.Equal(t, models.NotificationWeeklyDigest, entries[1].Type)
	assert.Equal(t, "boom", entries[1].Error)
	assert.Empty(t, entries[1].TheaterName)
}
