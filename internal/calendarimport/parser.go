package calendarimport

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jimdaga/ascend/internal/models"
)

const dateLayout = "2006-01-02"

// MaxConfidence caps the score returned by Confidence
const MaxConfidence = 5

// reviewThreshold is the confidence below which a parse is flagged
const reviewThreshold = 3

// theaterPatterns are tried against the title in order
var theaterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)submit(?:ting)? to (.+?)(?:\s|$)`),
	regexp.MustCompile(`(?i)(.+?) (?:deadline|response|submission)`),
	regexp.MustCompile(`(?i)(.+?) (?:theater|theatre|playhouse|rep|company)`),
	regexp.MustCompile(`(?i)(?:deadline|response) (?:from|for) (.+)`),
}

var (
	theaterSuffix  = regexp.MustCompile(`(?i)\s+(?:deadline|response|submission)$`)
	venueWord      = regexp.MustCompile(`(?i)theater|theatre|playhouse`)
	quotedTitle    = regexp.MustCompile(`"([^"]+)"`)
	labeledScript  = regexp.MustCompile(`(?i)(?:script|play):\s*([^\n]+)`)
	emailAddress   = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	labeledContact = regexp.MustCompile(`(?i)(?:contact|literary manager|director):\s*([^\n]+)`)
	feeAmount      = regexp.MustCompile(`\$(\d+(?:\.\d{2})?)`)
	freeEntry      = regexp.MustCompile(`(?i)free|no fee|no charge`)
)

// Parse extracts a candidate submission from ev. The result depends only on
// ev and now.
func Parse(ev Event, now time.Time) ParsedSubmission {
	theater, theaterFound := TheaterName(ev.Title, ev.Description)
	script := ScriptTitle(ev.Description)
	deadline := ev.When.DateString()
	confidence := Confidence(ev.Title, ev.Description)

	p := ParsedSubmission{
		TheaterName:        theater,
		ScriptTitle:        script,
		Deadline:           deadline,
		InferredStatus:     models.StatusSubmitted,
		ContactEmail:       ContactEmail(ev.Participants, ev.Description),
		ContactPerson:      ContactPerson(ev.Participants, ev.Description),
		Fee:                Fee(ev.Description),
		Notes:              Notes(ev.Title, ev.Description),
		CalendarEventID:    ev.ID,
		OriginalEventTitle: ev.Title,
		Confidence:         confidence,
		NeedsReview:        !theaterFound || script == "" || confidence < reviewThreshold,
	}

	if d, ok := ParseEventDate(deadline); ok {
		if estimated := d.AddDate(0, -2, 0); estimated.Before(now) {
			p.EstimatedSubmissionDate = estimated.Format(dateLayout)
		}
		if d.Before(now) {
			p.InferredStatus = models.StatusNoResponse
		}
	}

	return p
}

// TheaterName guesses the theater from the title patterns, then from the
// word before a venue noun in the description. found is false when it had
// to fall back to the raw title.
func TheaterName(title, description string) (name string, found bool) {
	for _, pattern := range theaterPatterns {
		m := pattern.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		theater := theaterSuffix.ReplaceAllString(strings.TrimSpace(m[1]), "")
		return strings.TrimSpace(theater), true
	}

	words := strings.Fields(description)
	for i, word := range words {
		if !venueWord.MatchString(word) {
			continue
		}
		if i > 0 {
			return words[i-1] + " " + word, true
		}
		break
	}

	return title, false
}

// ScriptTitle returns the first quoted string in the description, else a
// "script:" or "play:" labeled line, else ""
func ScriptTitle(description string) string {
	if m := quotedTitle.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	if m := labeledScript.FindStringSubmatch(description); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ContactEmail prefers the first participant with an email
func ContactEmail(participants []Participant, description string) string {
	for _, p := range participants {
		if p.Email != "" {
			return p.Email
		}
	}
	return emailAddress.FindString(description)
}

// ContactPerson prefers the first participant with a name
func ContactPerson(participants []Participant, description string) string {
	for _, p := range participants {
		if p.Name != "" {
			return p.Name
		}
	}
	if m := labeledContact.FindStringSubmatch(description); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Fee returns the first dollar amount, 0 when the description says the
// entry is free, or nil when unknown
func Fee(description string) *float64 {
	if m := feeAmount.FindStringSubmatch(description); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &v
		}
	}
	if freeEntry.MatchString(description) {
		zero := 0.0
		return &zero
	}
	return nil
}

type confidenceRule struct {
	inTitle bool
	words   []string
	points  int
}

var confidenceRules = []confidenceRule{
	{true, []string{"submission", "submit"}, 3},
	{true, []string{"deadline", "due"}, 2},
	{false, []string{"script", "play"}, 2},
	{false, []string{"theater", "theatre"}, 2},
	{true, []string{"response"}, 1},
	{false, []string{"playwright"}, 1},
	{false, []string{"festival", "contest"}, 1},
}

// Confidence scores how submission-like an event looks, from 0 to MaxConfidence
func Confidence(title, description string) int {
	title = strings.ToLower(title)
	description = strings.ToLower(description)

	score := 0
	for _, rule := range confidenceRules {
		text := description
		if rule.inTitle {
			text = title
		}
		for _, w := range rule.words {
			if strings.Contains(text, w) {
				score += rule.points
				break
			}
		}
	}

	if score > MaxConfidence {
		return MaxConfidence
	}
	return score
}

// Notes records where an imported submission came from
func Notes(title, description string) string {
	notes := `Imported from calendar: "` + title + `"`
	if description != "" {
		notes += "\n\nOriginal description: " + description
	}
	return notes
}

// ParseEventDate reads a date-only or RFC 3339 value as a UTC date
func ParseEventDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{dateLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
