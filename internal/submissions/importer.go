package submissions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jimdaga/ascend/internal/models"
)

// ImportResult is the outcome of validating a batch of CSV rows
type ImportResult struct {
	Errors   []string
	Warnings []string
	Valid    []models.Submission
}

// HasErrors reports whether any row was rejected
func (r ImportResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ValidateRows converts raw rows into submissions for userID using mapping.
// Rows missing a required field or with an unreadable submission date are
// reported in Errors and left out of Valid. Recoverable problems become
// Warnings and the affected field is cleared.
func ValidateRows(userID uint, rows []map[string]string, mapping ColumnMapping) ImportResult {
	var result ImportResult

	for i, row := range rows {
		n := i + 1
		get := func(f Field) string {
			col, ok := mapping[f]
			if !ok || col == "" {
				return ""
			}
			return strings.TrimSpace(row[col])
		}

		theater := get(FieldTheaterName)
		script := get(FieldScriptTitle)
		submitted := get(FieldSubmissionDate)

		rowOK := true
		if theater == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Theater name is required", n))
			rowOK = false
		}
		if script == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Script title is required", n))
			rowOK = false
		}
		if submitted == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Submission date is required", n))
			rowOK = false
		}

		submissionDate, dateOK := ParseDate(submitted)
		if submitted != "" && !dateOK {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Invalid submission date format", n))
			rowOK = false
		}
		if !rowOK {
			continue
		}

		sub := models.Submission{
			UserID:         userID,
			TheaterName:    theater,
			ScriptTitle:    script,
			SubmissionDate: submissionDate,
			Status:         models.StatusSubmitted,
			ContactPerson:  get(FieldContactPerson),
			ContactEmail:   get(FieldContactEmail),
			Notes:          get(FieldNotes),
		}

		if raw := get(FieldDeadline); raw != "" {
			if d, ok := ParseDate(raw); ok {
				sub.Deadline = &d
			} else {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: Invalid deadline date format - will be ignored", n))
			}
		}

		if raw := get(FieldResponseDate); raw != "" {
			if d, ok := ParseDate(raw); ok {
				sub.ResponseDate = &d
			} else {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: Invalid response date format - will be ignored", n))
			}
		}

		if raw := get(FieldStatus); raw != "" {
			if !KnownStatus(raw) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: Unknown status %q - will be set to Submitted", n, raw))
			}
			sub.Status = NormalizeStatus(raw)
		}

		if raw := get(FieldFee); raw != "" {
			if fee, ok := ParseFee(raw); ok {
				sub.Fee = &fee
			} else {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: Invalid fee amount - will be ignored", n))
			}
		}

		result.Valid = append(result.Valid, sub)
	}

	return result
}

// MaxFee is the largest amount the fee column (NUMERIC(10,2)) holds
const MaxFee = 99999999.99

// ParseFee reads a finite amount between 0 and MaxFee, ignoring "$" and
// thousands separators
func ParseFee(raw string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, false
	}
	fee, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(fee) || math.IsInf(fee, 0) || fee < 0 || fee > MaxFee {
		return 0, false
	}
	return fee, true
}
