package calendar

import (
	"strings"
	"time"

	"github.com/jimdaga/ascend/internal/models"
)

const (
	eventDuration  = time.Hour
	followUpOffset = 30 * 24 * time.Hour
	displayLayout  = "Jan 2, 2006"
)

// EventTitle is the calendar title for a submission in status
func EventTitle(theater string, status models.Status) string {
	switch status {
	case models.StatusAccepted:
		return "✅ ACCEPTED: " + theater
	case models.StatusRejected:
		return "❌ Response from " + theater
	case models.StatusNoResponse:
		return "⏰ Follow up: " + theater
	default:
		return theater + " Response Due"
	}
}

// EventDescription is the calendar body for sub
func EventDescription(sub models.Submission, appURL string) string {
	var b strings.Builder
	b.WriteString("Script: " + sub.ScriptTitle + "\n")
	b.WriteString("Status: " + string(sub.Status) + "\n")
	b.WriteString("Submitted: " + sub.SubmissionDate.UTC().Format(displayLayout) + "\n")
	if sub.Deadline != nil {
		b.WriteString("Deadline: " + sub.Deadline.UTC().Format(displayLayout) + "\n")
	}
	b.WriteString("\nView in Ascend: " + dashboardURL(appURL))
	return b.String()
}

func dashboardURL(appURL string) string {
	return strings.TrimRight(appURL, "/") + "/dashboard"
}

func span(start time.Time) *EventWhen {
	return &EventWhen{
		StartTime: start.Unix(),
		EndTime:   start.Add(eventDuration).Unix(),
	}
}

// DeadlineEvent is the event created for a submission deadline, with an
// email reminder a day before and a popup an hour before
func DeadlineEvent(sub models.Submission, appURL string) EventInput {
	return EventInput{
		Title:       EventTitle(sub.TheaterName, sub.Status),
		Description: EventDescription(sub, appURL),
		When:        span(*sub.Deadline),
		Reminders: &Reminders{
			Overrides: []Reminder{
				{Minutes: 24 * 60, Method: "email"},
				{Minutes: 60, Method: "popup"},
			},
		},
	}
}

// DeadlinePatch is the update applied to an existing deadline event. The
// time moves only when the submission still has a deadline.
func DeadlinePatch(sub models.Submission, appURL string) EventInput {
	patch := EventInput{
		Title:       EventTitle(sub.TheaterName, sub.Status),
		Description: EventDescription(sub, appURL),
	}
	if sub.Deadline != nil {
		patch.When = span(*sub.Deadline)
	}
	return patch
}

// FollowUpEvent is the reminder to chase a submission 30 days after its
// deadline. sub must have a deadline.
func FollowUpEvent(sub models.Submission, appURL string) EventInput {
	deadline := sub.Deadline.UTC()
	var b strings.Builder
	b.WriteString(`Consider following up on "` + sub.ScriptTitle + `" submission.` + "\n")
	b.WriteString("Original deadline: " + deadline.Format(displayLayout) + "\n")
	b.WriteString("Submitted: " + sub.SubmissionDate.UTC().Format(displayLayout) + "\n")
	b.WriteString("\nView in Ascend: " + dashboardURL(appURL))

	return EventInput{
		Title:       "Follow-up: " + sub.TheaterName,
		Description: b.String(),
		When:        span(deadline.Add(followUpOffset)),
		Reminders: &Reminders{
			Overrides: []Reminder{{Minutes: 60, Method: "popup"}},
		},
	}
}
