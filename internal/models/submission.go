package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a submission. Transitions are unconstrained.
type Status string

// Submission status values
const (
	StatusSubmitted   Status = "Submitted"
	StatusUnderReview Status = "Under Review"
	StatusAccepted    Status = "Accepted"
	StatusRejected    Status = "Rejected"
	StatusNoResponse  Status = "No Response"
)

// Statuses lists every valid status in display order
var Statuses = []Status{
	StatusSubmitted,
	StatusUnderReview,
	StatusAccepted,
	StatusRejected,
	StatusNoResponse,
}

// Valid reports whether s is one of the five known statuses
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Active reports whether a submission in this status still awaits a response
func (s Status) Active() bool {
	return s == StatusSubmitted || s == StatusUnderReview
}

// Submission is one script sent to one theater, owned by a single user
type Submission struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"userId"`
	User            User       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	TheaterName     string     `gorm:"not null" json:"theaterName"`
	ScriptTitle     string     `gorm:"not null" json:"scriptTitle"`
	SubmissionDate  time.Time  `gorm:"not null;index" json:"submissionDate"`
	Deadline        *time.Time `gorm:"index" json:"deadline"`
	Status          Status     `gorm:"not null;index" json:"status"`
	Fee             *float64   `gorm:"type:numeric(10,2)" json:"fee"`
	ContactPerson   string     `gorm:"not null;default:''" json:"contactPerson"`
	ContactEmail    string     `gorm:"not null;default:''" json:"contactEmail"`
	Notes           string     `gorm:"type:text;not null;default:''" json:"notes"`
	ResponseDate    *time.Time `json:"responseDate"`
	CalendarEventID *string    `json:"calendarEventId"`
	FollowUpEventID *string    `json:"followUpEventId"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = StatusSubmitted
	}
	return nil
}
