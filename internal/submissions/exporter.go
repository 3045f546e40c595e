package submissions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jimdaga/ascend/internal/models"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ErrUnsupportedFormat is returned for export formats other than csv and json
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportFilter narrows an export. Empty or "all" status matches every status.
// Dates are inclusive bounds on the submission date.
type ExportFilter struct {
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
}

var csvHeader = []string{
	"Theater Name",
	"Script Title",
	"Submission Date",
	"Deadline",
	"Status",
	"Fee",
	"Contact Person",
	"Contact Email",
	"Notes",
	"Response Date",
}

// WriteCSV writes subs with a header row, one line per submission
func WriteCSV(w io.Writer, subs []models.Submission) error {
	if _, err := io.WriteString(w, strings.Join(csvHeader, ",")+"\n"); err != nil {
		return err
	}

	for _, s := range subs {
		submitted := s.SubmissionDate
		fields := []string{
			s.TheaterName,
			s.ScriptTitle,
			FormatDate(&submitted),
			FormatDate(s.Deadline),
			string(s.Status),
			formatFee(s.Fee),
			s.ContactPerson,
			s.ContactEmail,
			s.Notes,
			FormatDate(s.ResponseDate),
		}
		for i := range fields {
			fields[i] = EscapeCSVField(fields[i])
		}
		if _, err := io.WriteString(w, strings.Join(fields, ",")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes subs as a JSON array
func WriteJSON(w io.Writer, subs []models.Submission) error {
	if subs == nil {
		subs = []models.Submission{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(subs)
}

// Write serializes subs in format
func Write(w io.Writer, format string, subs []models.Submission) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, subs)
	case FormatJSON:
		return WriteJSON(w, subs)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ExportFilename is the download name for an export taken at now
func ExportFilename(format string, now time.Time) string {
	return fmt.Sprintf("submissions-%s.%s", now.UTC().Format(DateLayout), format)
}

func formatFee(fee *float64) string {
	if fee == nil {
		return "Free"
	}
	return "$" + strconv.FormatFloat(*fee, 'f', -1, 64)
}
