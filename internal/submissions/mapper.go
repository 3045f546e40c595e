package submissions

import "strings"

// Field names a submission attribute a CSV column can map to
type Field string

// Importable fields
const (
	FieldTheaterName    Field = "theaterName"
	FieldScriptTitle    Field = "scriptTitle"
	FieldSubmissionDate Field = "submissionDate"
	FieldDeadline       Field = "deadline"
	FieldStatus         Field = "status"
	FieldFee            Field = "fee"
	FieldContactPerson  Field = "contactPerson"
	FieldContactEmail   Field = "contactEmail"
	FieldNotes          Field = "notes"
	FieldResponseDate   Field = "responseDate"
)

// RequiredFields must be mapped before an import can run
var RequiredFields = []Field{FieldTheaterName, FieldScriptTitle, FieldSubmissionDate}

// ColumnMapping maps a submission field to the CSV header holding it
type ColumnMapping map[Field]string

// Missing returns the required fields that have no column
func (m ColumnMapping) Missing() []Field {
	var missing []Field
	for _, f := range RequiredFields {
		if strings.TrimSpace(m[f]) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

type mappingRule struct {
	field Field
	match func(lower string) bool
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// mappingRules are evaluated in order; the first match decides a column.
// Any header containing "response" is claimed by deadline before the
// responseDate rule is reached.
var mappingRules = []mappingRule{
	{FieldTheaterName, func(s string) bool { return containsAny(s, "theater", "theatre", "venue", "company") }},
	{FieldScriptTitle, func(s string) bool { return containsAny(s, "script", "play", "title", "work") }},
	{FieldSubmissionDate, func(s string) bool {
		return containsAny(s, "date", "submitted") && containsAny(s, "submit", "sent")
	}},
	{FieldDeadline, func(s string) bool { return containsAny(s, "deadline", "due", "response") }},
	{FieldStatus, func(s string) bool { return containsAny(s, "status", "state") }},
	{FieldFee, func(s string) bool { return containsAny(s, "fee", "cost", "amount") }},
	{FieldContactPerson, func(s string) bool { return strings.Contains(s, "contact") && strings.Contains(s, "person") }},
	{FieldContactEmail, func(s string) bool {
		return strings.Contains(s, "email") || (strings.Contains(s, "contact") && !strings.Contains(s, "person"))
	}},
	{FieldNotes, func(s string) bool { return containsAny(s, "note", "comment", "description") }},
	{FieldResponseDate, func(s string) bool { return strings.Contains(s, "response") && strings.Contains(s, "date") }},
}

// AutoMapColumns guesses a field for each header by keyword. A column maps
// to at most one field and the first column claiming a field keeps it.
func AutoMapColumns(headers []string) ColumnMapping {
	mapping := ColumnMapping{}
	for _, header := range headers {
		lower := strings.ToLower(strings.TrimSpace(header))
		if lower == "" {
			continue
		}
		for _, rule := range mappingRules {
			if !rule.match(lower) {
				continue
			}
			if _, taken := mapping[rule.field]; !taken {
				mapping[rule.field] = header
			}
			break
		}
	}
	return mapping
}
