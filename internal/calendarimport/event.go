// Package calendarimport turns calendar events into candidate submissions.
// Everything here is a pure function of its inputs.
package calendarimport

import (
	"time"

	"github.com/jimdaga/ascend/internal/models"
)

// Participant is an invitee on a calendar event
type Participant struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// When is the provider's event time. All-day events carry Date, multi-day
// events StartDate, and timed events StartTime as unix seconds.
type When struct {
	Date      string `json:"date,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	StartTime int64  `json:"start_time,omitempty"`
	EndTime   int64  `json:"end_time,omitempty"`
}

// DateString returns the event's date as the provider sent it, preferring
// Date, then StartDate, then StartTime rendered as RFC 3339 UTC
func (w When) DateString() string {
	switch {
	case w.Date != "":
		return w.Date
	case w.StartDate != "":
		return w.StartDate
	case w.StartTime > 0:
		return time.Unix(w.StartTime, 0).UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Event is a calendar event as returned by the provider
type Event struct {
	ID           string        `json:"id"`
	CalendarID   string        `json:"calendar_id,omitempty"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Location     string        `json:"location"`
	When         When          `json:"when"`
	Participants []Participant `json:"participants"`
}

// ParsedSubmission is a submission guessed from one event, pending user
// confirmation. EstimatedSubmissionDate and InferredStatus are heuristics
// the user is expected to correct.
type ParsedSubmission struct {
	TheaterName             string        `json:"theaterName"`
	ScriptTitle             string        `json:"scriptTitle"`
	Deadline                string        `json:"deadline,omitempty"`
	EstimatedSubmissionDate string        `json:"estimatedSubmissionDate,omitempty"`
	InferredStatus          models.Status `json:"inferredStatus"`
	ContactPerson           string        `json:"contactPerson,omitempty"`
	ContactEmail            string        `json:"contactEmail,omitempty"`
	Fee                     *float64      `json:"fee"`
	Notes                   string        `json:"notes"`
	CalendarEventID         string        `json:"calendarEventId,omitempty"`
	OriginalEventTitle      string        `json:"originalEventTitle"`
	Confidence              int           `json:"confidence"`
	NeedsReview             bool          `json:"needsReview"`
}
