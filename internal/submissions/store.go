package submissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimdaga/ascend/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a submission does not exist or belongs to
// another user
var ErrNotFound = errors.New("submission not found")

// Store persists submissions. Every query is scoped to the owning user.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store on db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) owned(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).Where("user_id = ?", userID)
}

// List returns the user's submissions, newest submission date first
func (s *Store) List(ctx context.Context, userID uint, filter ExportFilter) ([]models.Submission, error) {
	q := s.owned(ctx, userID)
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		q = q.Where("submission_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("submission_date <= ?", *filter.EndDate)
	}

	var subs []models.Submission
	if err := q.Order("submission_date DESC").Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

// Get loads one submission owned by userID
func (s *Store) Get(ctx context.Context, userID uint, id string) (models.Submission, error) {
	var sub models.Submission
	err := s.owned(ctx, userID).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sub, ErrNotFound
	}
	if err != nil {
		return sub, fmt.Errorf("failed to load submission: %w", err)
	}
	return sub, nil
}

// GetByID loads a submission and its owner without an owner check.
// Background jobs use it after the owning request has already been
// authorized.
func (s *Store) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sub, ErrNotFound
	}
	if err != nil {
		return sub, fmt.Errorf("failed to load submission: %w", err)
	}
	return sub, nil
}

// Create inserts sub
func (s *Store) Create(ctx context.Context, sub *models.Submission) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// CreateBatch inserts all subs in one transaction. Either every row is
// written or none is.
func (s *Store) CreateBatch(ctx context.Context, subs []models.Submission) error {
	if len(subs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range subs {
			if err := tx.Create(&subs[i]).Error; err != nil {
				return fmt.Errorf("failed to import submission %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// Update writes every mutable field of sub. The owner and id are taken from
// sub itself.
func (s *Store) Update(ctx context.Context, sub *models.Submission) error {
	result := s.owned(ctx, sub.UserID).Model(&models.Submission{}).Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"theater_name":    sub.TheaterName,
			"script_title":    sub.ScriptTitle,
			"submission_date": sub.SubmissionDate,
			"deadline":        sub.Deadline,
			"status":          sub.Status,
			"fee":             sub.Fee,
			"contact_person":  sub.ContactPerson,
			"contact_email":   sub.ContactEmail,
			"notes":           sub.Notes,
			"response_date":   sub.ResponseDate,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update submission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a submission owned by userID
func (s *Store) Delete(ctx context.Context, userID uint, id string) error {
	result := s.owned(ctx, userID).Where("id = ?", id).Delete(&models.Submission{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete submission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCalendarEventID records the provider event mirroring the deadline
func (s *Store) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	return s.setColumn(ctx, id, "calendar_event_id", &eventID)
}

// ClearCalendarEventID forgets the provider event, e.g. after it was deleted
// on the provider side
func (s *Store) ClearCalendarEventID(ctx context.Context, eventID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("calendar_event_id = ?", eventID).
		Update("calendar_event_id", nil)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear calendar event: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SetFollowUpEventID records the follow-up reminder event
func (s *Store) SetFollowUpEventID(ctx context.Context, id, eventID string) error {
	return s.setColumn(ctx, id, "follow_up_event_id", &eventID)
}

func (s *Store) setColumn(ctx context.Context, id, column string, value *string) error {
	result := s.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("failed to set %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
