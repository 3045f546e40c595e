package submissions

import (
	"context"
	"time"

	"github.com/jimdaga/ascend/internal/logging"
	"github.com/jimdaga/ascend/internal/models"
)

// Dispatcher runs best-effort side effects after a write has committed.
// Implementations must not block the caller on provider I/O and report
// nothing back; failures are logged where they happen.
type Dispatcher interface {
	NotifyStatusChange(ctx context.Context, submissionID string, from, to models.Status)
	SyncCalendar(ctx context.Context, submissionID string)
}

// NopDispatcher drops every side effect
type NopDispatcher struct{}

func (NopDispatcher) NotifyStatusChange(context.Context, string, models.Status, models.Status) {}
func (NopDispatcher) SyncCalendar(context.Context, string) {}

// Service applies submission writes and fans out their side effects
type Service struct {
	store      *Store
	dispatcher Dispatcher
}

// NewService creates a Service. A nil dispatcher disables side effects.
func NewService(store *Store, dispatcher Dispatcher) *Service {
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	return &Service{store: store, dispatcher: dispatcher}
}

// Store exposes the underlying store for read paths
func (s *Service) Store() *Store {
	return s.store
}

// List returns the user's submissions matching filter
func (s *Service) List(ctx context.Context, userID uint, filter ExportFilter) ([]models.Submission, error) {
	return s.store.List(ctx, userID, filter)
}

// Get returns one of the user's submissions
func (s *Service) Get(ctx context.Context, userID uint, id string) (models.Submission, error) {
	return s.store.Get(ctx, userID, id)
}

// Create stores sub and schedules a calendar event when it has a deadline
func (s *Service) Create(ctx context.Context, sub *models.Submission) error {
	if err := s.store.Create(ctx, sub); err != nil {
		return err
	}

	if sub.Deadline != nil {
		s.dispatcher.SyncCalendar(ctx, sub.ID)
	}
	return nil
}

// Update replaces the editable fields of the user's submission id with
// those of changes. A status change notifies the user; a status or deadline
// change refreshes the calendar event.
func (s *Service) Update(ctx context.Context, userID uint, id string, changes models.Submission) (models.Submission, error) {
	existing, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return existing, err
	}

	updated := existing
	updated.TheaterName = changes.TheaterName
	updated.ScriptTitle = changes.ScriptTitle
	updated.SubmissionDate = changes.SubmissionDate
	updated.Deadline = changes.Deadline
	updated.Fee = changes.Fee
	updated.ContactPerson = changes.ContactPerson
	updated.ContactEmail = changes.ContactEmail
	updated.Notes = changes.Notes
	updated.ResponseDate = changes.ResponseDate
	if changes.Status != "" {
		updated.Status = changes.Status
	}

	if err := s.store.Update(ctx, &updated); err != nil {
		return existing, err
	}

	statusChanged := updated.Status != existing.Status
	deadlineChanged := !sameDate(updated.Deadline, existing.Deadline)

	if statusChanged {
		logging.FromContext(ctx).Info("Submission status changed",
			"submission_id", id,
			"from", existing.Status,
			"to", updated.Status,
		)
		s.dispatcher.NotifyStatusChange(ctx, id, existing.Status, updated.Status)
	}
	if statusChanged || deadlineChanged {
		s.dispatcher.SyncCalendar(ctx, id)
	}

	return updated, nil
}

// Delete removes the user's submission
func (s *Service) Delete(ctx context.Context, userID uint, id string) error {
	return s.store.Delete(ctx, userID, id)
}

// Import validates CSV rows and, only when every row is valid, writes them
// in one transaction. The result always carries the validation outcome.
func (s *Service) Import(ctx context.Context, userID uint, rows []map[string]string, mapping ColumnMapping) (ImportResult, error) {
	result := ValidateRows(userID, rows, mapping)
	if result.HasErrors() {
		return result, nil
	}

	if err := s.store.CreateBatch(ctx, result.Valid); err != nil {
		return result, err
	}

	logging.FromContext(ctx).Info("Imported submissions",
		"user_id", userID,
		"imported", len(result.Valid),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// ImportBatch writes already-converted submissions in one transaction
func (s *Service) ImportBatch(ctx context.Context, subs []models.Submission) error {
	return s.store.CreateBatch(ctx, subs)
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UTC().Format(DateLayout) == b.UTC().Format(DateLayout)
}
