package submissions

import (
	"strings"

	"github.com/jimdaga/ascend/internal/models"
)

// statusSynonyms maps lower-cased input to a canonical status
var statusSynonyms = map[string]models.Status{
	"submitted":    models.StatusSubmitted,
	"under review": models.StatusUnderReview,
	"in review":    models.StatusUnderReview,
	"pending":      models.StatusUnderReview,
	"accepted":     models.StatusAccepted,
	"approved":     models.StatusAccepted,
	"rejected":     models.StatusRejected,
	"declined":     models.StatusRejected,
	"no response":  models.StatusNoResponse,
}

// NormalizeStatus maps free-form status text to one of the five statuses.
// Unknown input becomes Submitted.
func NormalizeStatus(raw string) models.Status {
	if status, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return models.StatusSubmitted
}

// KnownStatus reports whether NormalizeStatus recognizes raw
func KnownStatus(raw string) bool {
	_, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}
