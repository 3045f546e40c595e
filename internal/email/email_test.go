package email

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jimdaga/ascend/internal/config"
	"github.com/jimdaga/ascend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() models.Submission {
	deadline := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	return models.Submission{
		ID:             "sub-1",
		TheaterName:    "Magic <Theatre>",
		ScriptTitle:    "The Quiet Hour",
		SubmissionDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Deadline:       &deadline,
		Status:         models.StatusSubmitted,
	}
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "Reminder: Magic response due in 3 days", DeadlineReminderSubject("Magic", 3))
	assert.Equal(t, "Reminder: Magic response due in 1 day", DeadlineReminderSubject("Magic", 1))
	assert.Equal(t, "Reminder: Magic response due today", DeadlineReminderSubject("Magic", 0))
	assert.Equal(t, "Submission update: Magic - Accepted", StatusChangeSubject("Magic", models.StatusAccepted))
}

func TestDeadlineReminder(t *testing.T) {
	msg, err := DeadlineReminder("writer@example.com", DeadlineReminderData{
		AppURL:     "https://ascend.test",
		Submission: fixture(),
		DaysLeft:   3,
	})
	require.NoError(t, err)

	assert.Equal(t, "writer@example.com", msg.To)
	assert.Equal(t, "Reminder: Magic <Theatre> response due in 3 days", msg.Subject)
	assert.Contains(t, msg.HTML, "3 days remaining")
	assert.Contains(t, msg.HTML, "Magic &lt;Theatre&gt;")
	assert.Contains(t, msg.HTML, "Mar 13, 2025")
	assert.Contains(t, msg.HTML, "https://ascend.test/dashboard")
}

func TestDeadlineReminder_Today(t *testing.T) {
	msg, err := DeadlineReminder("writer@example.com", DeadlineReminderData{Submission: fixture()})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "Due Today!")
	assert.Contains(t, msg.HTML, "This deadline is today!")
}

func TestWeeklyDigest(t *testing.T) {
	upcoming := fixture()
	overdue := fixture()
	overdue.TheaterName = "Berkeley Rep"

	msg, err := WeeklyDigest("writer@example.com", WeeklyDigestData{
		Upcoming: []DigestItem{{Submission: upcoming, DaysLeft: 1}},
		Overdue:  []models.Submission{overdue},
	})
	require.NoError(t, err)

	assert.Equal(t, WeeklyDigestSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "Upcoming Deadlines")
	assert.Contains(t, msg.HTML, "(1 day)")
	assert.Contains(t, msg.HTML, "Overdue Responses")
	assert.Contains(t, msg.HTML, "Berkeley Rep")
}

func TestWeeklyDigest_OmitsEmptySections(t *testing.T) {
	msg, err := WeeklyDigest("writer@example.com", WeeklyDigestData{Overdue: []models.Submission{fixture()}})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "Upcoming Deadlines")
}

func TestStatusChange(t *testing.T) {
	sub := fixture()
	sub.Notes = "Offered a reading"

	msg, err := StatusChange("writer@example.com", StatusChangeData{
		Submission: sub,
		From:       models.StatusSubmitted,
		To:         models.StatusAccepted,
	})
	require.NoError(t, err)

	assert.Equal(t, "Submission update: Magic <Theatre> - Accepted", msg.Subject)
	assert.Contains(t, msg.HTML, "Offered a reading")
	assert.Contains(t, msg.HTML, "<strong>Accepted</strong>")
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	id, err := sender.Send(context.Background(), Message{To: "writer@example.com", Subject: "Hello"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "stub-"))
	assert.Contains(t, buf.String(), "subject=Hello")

	_, err = sender.Send(context.Background(), Message{Subject: "No one"})
	assert.Error(t, err)
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 2525, From: "Ascend <notifications@ascend.test>"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sender.Send(ctx, Message{To: "writer@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMessageID(t *testing.T) {
	id := messageID("Ascend <notifications@ascend.test>")
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@ascend.test>"))
}

func TestNewSender(t *testing.T) {
	_, stub := NewSender(&config.Config{EmailStub: true}).(*LogSender)
	assert.True(t, stub)

	_, smtp := NewSender(&config.Config{SMTPHost: "mail.test", SMTPPort: 587}).(*SMTPSender)
	assert.True(t, smtp)
}
