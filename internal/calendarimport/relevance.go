package calendarimport

import (
	"sort"
	"strings"
)

var submissionKeywords = []string{
	"theater", "theatre", "playhouse", "rep", "company",
	"submission", "submit", "deadline", "due", "response",
	"play", "script", "playwright", "drama", "comedy",
	"contest", "competition", "festival", "reading",
}

var timeKeywords = []string{"deadline", "due", "response", "follow up", "followup"}

// minRelevance is the lowest score FilterRelevant keeps
const minRelevance = 2

// ScoredEvent is an event with its relevance score
type ScoredEvent struct {
	Event
	RelevanceScore int `json:"relevanceScore"`
}

// RelevanceScore rates how likely ev is a submission event. hasKeyword
// reports whether any submission keyword appears at all.
func RelevanceScore(ev Event) (score int, hasKeyword bool) {
	title := strings.ToLower(ev.Title)
	description := strings.ToLower(ev.Description)
	content := title + " " + description + " " + strings.ToLower(ev.Location)

	hasKeyword = containsAny(content, submissionKeywords)
	if hasKeyword {
		score += 2
	}
	if containsAny(content, timeKeywords) {
		score++
	}
	if strings.Contains(title, "submit") {
		score += 2
	}
	if strings.Contains(description, "theater") || strings.Contains(description, "theatre") {
		score++
	}
	return score, hasKeyword
}

// FilterRelevant keeps events that mention a submission keyword and score
// at least minRelevance, highest score first. Ties keep input order.
func FilterRelevant(events []Event) []ScoredEvent {
	scored := make([]ScoredEvent, 0, len(events))
	for _, ev := range events {
		score, hasKeyword := RelevanceScore(ev)
		if !hasKeyword || score < minRelevance {
			continue
		}
		scored = append(scored, ScoredEvent{Event: ev, RelevanceScore: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	return scored
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
