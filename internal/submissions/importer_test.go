package submissions

import (
	"testing"
	"time"

	"github.com/jimdaga/ascend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMapping = ColumnMapping{
	FieldTheaterName:    "Theater",
	FieldScriptTitle:    "Script",
	FieldSubmissionDate: "Submitted",
	FieldDeadline:       "Deadline",
	FieldStatus:         "Status",
	FieldFee:            "Fee",
	FieldContactEmail:   "Email",
	FieldResponseDate:   "Response Date",
}

func TestValidateRows_Valid(t *testing.T) {
	rows := []map[string]string{
		{
			"Theater":   "Magic Theatre",
			"Script":    "The Quiet Hour",
			"Submitted": "2025-01-15",
			"Deadline":  "03/01/2025",
			"Status":    "pending",
			"Fee":       "$1,025.50",
			"Email":     "lit@magic.org",
		},
	}

	result := ValidateRows(7, rows, testMapping)

	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Valid, 1)

	sub := result.Valid[0]
	assert.EqualValues(t, 7, sub.UserID)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), sub.SubmissionDate)
	require.NotNil(t, sub.Deadline)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *sub.Deadline)
	assert.Equal(t, models.StatusUnderReview, sub.Status)
	require.NotNil(t, sub.Fee)
	assert.InDelta(t, 1025.50, *sub.Fee, 0.001)
	assert.Equal(t, "lit@magic.org", sub.ContactEmail)
	assert.Nil(t, sub.ResponseDate)
}

func TestValidateRows_MissingStatusDefaults(t *testing.T) {
	rows := []map[string]string{{"Theater": "A", "Script": "B", "Submitted": "2025-01-15"}}

	result := ValidateRows(1, rows, testMapping)

	require.Len(t, result.Valid, 1)
	assert.Equal(t, models.StatusSubmitted, result.Valid[0].Status)
	assert.Empty(t, result.Warnings)
}

func TestValidateRows_Errors(t *testing.T) {
	rows := []map[string]string{
		{"Theater": "", "Script": "", "Submitted": ""},
		{"Theater": "A", "Script": "B", "Submitted": "2024-02-30"},
		{"Theater": "A", "Script": "B", "Submitted": "2025-01-15"},
	}

	result := ValidateRows(1, rows, testMapping)

	assert.Equal(t, []string{
		"Row 1: Theater name is required",
		"Row 1: Script title is required",
		"Row 1: Submission date is required",
		"Row 2: Invalid submission date format",
	}, result.Errors)
	assert.True(t, result.HasErrors())
	assert.Len(t, result.Valid, 1)
}

func TestValidateRows_Warnings(t *testing.T) {
	rows := []map[string]string{
		{
			"Theater":       "A",
			"Script":        "B",
			"Submitted":     "2025-01-15",
			"Deadline":      "soon",
			"Response Date": "later",
			"Fee":           "-5",
			"Status":        "ghosted",
		},
		{"Theater": "A", "Script": "B", "Submitted": "2025-01-15", "Fee": "twenty"},
		{"Theater": "A", "Script": "B", "Submitted": "2025-01-15", "Fee": "NaN"},
		{"Theater": "A", "Script": "B", "Submitted": "2025-01-15", "Fee": "Infinity"},
		{"Theater": "A", "Script": "B", "Submitted": "2025-01-15", "Fee": "$100,000,000"},
	}

	result := ValidateRows(1, rows, testMapping)

	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{
		"Row 1: Invalid deadline date format - will be ignored",
		"Row 1: Invalid response date format - will be ignored",
		`Row 1: Unknown status "ghosted" - will be set to Submitted`,
		"Row 1: Invalid fee amount - will be ignored",
		"Row 2: Invalid fee amount - will be ignored",
		"Row 3: Invalid fee amount - will be ignored",
		"Row 4: Invalid fee amount - will be ignored",
		"Row 5: Invalid fee amount - will be ignored",
	}, result.Warnings)

	require.Len(t, result.Valid, 5)
	for _, sub := range result.Valid {
		assert.Nil(t, sub.Fee)
	}
	first := result.Valid[0]
	assert.Nil(t, first.Deadline)
	assert.Nil(t, first.ResponseDate)
	assert.Nil(t, first.Fee)
	assert.Equal(t, models.StatusSubmitted, first.Status)
}

func TestParseFee(t *testing.T) {
	fee, ok := ParseFee(" $25 ")
	require.True(t, ok)
	assert.InDelta(t, 25.0, fee, 0.001)

	fee, ok = ParseFee("0")
	require.True(t, ok)
	assert.Zero(t, fee)

	fee, ok = ParseFee("$99,999,999.99")
	require.True(t, ok)
	assert.InDelta(t, MaxFee, fee, 0.001)

	for _, raw := range []string{"", "$", "-1", "abc", "NaN", "nan", "Inf", "-Inf", "Infinity", "1e300", "100000000"} {
		_, ok := ParseFee(raw)
		assert.False(t, ok, raw)
	}
}
