package calendarimport

import (
	"time"

	"github.com/jimdaga/ascend/internal/models"
)

// Defaults applied to fields the parser could not fill
const (
	UnknownTheater = "Unknown Theater"
	UntitledScript = "Untitled Script"
	reviewMarker   = "\n\n⚠️ Needs review: Missing theater name or script title"
)

// ToSubmissions converts confirmed parses into submissions owned by userID.
// Missing names get placeholder values and a review note, and a missing
// submission date becomes today. The warnings summarize what needs review.
func ToSubmissions(items []ParsedSubmission, userID uint, today time.Time) ([]models.Submission, []string) {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	subs := make([]models.Submission, 0, len(items))
	var unknownTheater, untitled bool

	for _, p := range items {
		sub := models.Submission{
			UserID:         userID,
			TheaterName:    p.TheaterName,
			ScriptTitle:    p.ScriptTitle,
			SubmissionDate: today,
			Status:         p.InferredStatus,
			Fee:            p.Fee,
			ContactPerson:  p.ContactPerson,
			ContactEmail:   p.ContactEmail,
			Notes:          p.Notes,
		}

		if sub.TheaterName == "" {
			sub.TheaterName = UnknownTheater
			unknownTheater = true
		}
		if sub.ScriptTitle == "" {
			sub.ScriptTitle = UntitledScript
			untitled = true
		}
		if p.TheaterName == "" || p.ScriptTitle == "" {
			sub.Notes += reviewMarker
		}

		if d, ok := ParseEventDate(p.EstimatedSubmissionDate); ok {
			sub.SubmissionDate = d
		}
		if d, ok := ParseEventDate(p.Deadline); ok {
			sub.Deadline = &d
		}
		if !sub.Status.Valid() {
			sub.Status = models.StatusSubmitted
		}
		if p.Fee != nil && *p.Fee < 0 {
			sub.Fee = nil
		}
		if p.CalendarEventID != "" {
			id := p.CalendarEventID
			sub.CalendarEventID = &id
		}

		subs = append(subs, sub)
	}

	var warnings []string
	if unknownTheater {
		warnings = append(warnings, "Some submissions have unknown theater names and need review")
	}
	if untitled {
		warnings = append(warnings, "Some submissions have untitled scripts and need review")
	}
	return subs, warnings
}
