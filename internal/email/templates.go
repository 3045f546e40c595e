package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/jimdaga/ascend/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("email").Funcs(template.FuncMap{
	"date":   displayDate,
	"plural": plural,
}).ParseFS(templateFS, "templates/*.html"))

// DeadlineReminderData fills the deadline reminder template
type DeadlineReminderData struct {
	AppURL     string
	Submission models.Submission
	DaysLeft   int
}

// DigestItem is an upcoming deadline in the weekly digest
type DigestItem struct {
	Submission models.Submission
	DaysLeft   int
}

// WeeklyDigestData fills the weekly digest template
type WeeklyDigestData struct {
	AppURL   string
	Upcoming []DigestItem
	Overdue  []models.Submission
}

// StatusChangeData fills the status change template
type StatusChangeData struct {
	AppURL     string
	Submission models.Submission
	From       models.Status
	To         models.Status
}

// DeadlineReminderSubject is the subject line of a reminder sent daysLeft
// days before the deadline
func DeadlineReminderSubject(theater string, daysLeft int) string {
	if daysLeft == 0 {
		return fmt.Sprintf("Reminder: %s response due today", theater)
	}
	return fmt.Sprintf("Reminder: %s response due in %d %s", theater, daysLeft, plural(daysLeft, "day"))
}

// WeeklyDigestSubject is the subject line of every weekly digest
const WeeklyDigestSubject = "Your Weekly Submission Summary"

// StatusChangeSubject is the subject line of a status change notice
func StatusChangeSubject(theater string, status models.Status) string {
	return fmt.Sprintf("Submission update: %s - %s", theater, status)
}

// DeadlineReminder builds the reminder email for to
func DeadlineReminder(to string, data DeadlineReminderData) (Message, error) {
	html, err := render("deadline_reminder.html", data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: DeadlineReminderSubject(data.Submission.TheaterName, data.DaysLeft), HTML: html}, nil
}

// WeeklyDigest builds the digest email for to
func WeeklyDigest(to string, data WeeklyDigestData) (Message, error) {
	html, err := render("weekly_digest.html", data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: WeeklyDigestSubject, HTML: html}, nil
}

// StatusChange builds the status change email for to
func StatusChange(to string, data StatusChangeData) (Message, error) {
	html, err := render("status_change.html", data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: StatusChangeSubject(data.Submission.TheaterName, data.To), HTML: html}, nil
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func displayDate(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("Jan 2, 2006")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("Jan 2, 2006")
	default:
		return ""
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
