package submissions

import (
	"strings"
	"time"
)

// DateLayout is the ISO date-only layout used on the wire and in exports
const DateLayout = "2006-01-02"

// dateLayouts are tried in order by ParseDate
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseDate parses a calendar date in any supported layout. Times with a
// clock component are truncated to their UTC date. Impossible dates such as
// 2024-02-30 fail.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// IsValidDate reports whether raw parses to a real calendar date
func IsValidDate(raw string) bool {
	_, ok := ParseDate(raw)
	return ok
}

// FormatDate renders t as YYYY-MM-DD, or "" for nil
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
