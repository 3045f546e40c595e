// Package worker runs notification jobs and submission side effects, on
// asynq when Redis is configured and in process otherwise.
package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/ascend/internal/models"
)

// Task type constants
const (
	TaskNotifyStatusChange = "submission:notify-status"
	TaskSyncCalendar       = "submission:sync-calendar"
	TaskDeadlineCheck      = "notifications:deadline-check"
	TaskWeeklyDigest       = "notifications:weekly-digest"
)

// StatusChangePayload is the body of a TaskNotifyStatusChange task
type StatusChangePayload struct {
	SubmissionID string        `json:"submission_id"`
	From         models.Status `json:"from"`
	To           models.Status `json:"to"`
}

// SyncCalendarPayload is the body of a TaskSyncCalendar task
type SyncCalendarPayload struct {
	SubmissionID string `json:"submission_id"`
}

// Side effects run once. A failed email or calendar call is logged, not
// retried.
func sideEffectOpts(timeout time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
		asynq.Retention(24 * time.Hour),
	}
}

// NewStatusChangeTask builds the status change notice task
func NewStatusChangeTask(submissionID string, from, to models.Status, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(StatusChangePayload{SubmissionID: submissionID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TaskNotifyStatusChange, payload, sideEffectOpts(timeout)...), nil
}

// NewSyncCalendarTask builds the calendar sync task
func NewSyncCalendarTask(submissionID string, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(SyncCalendarPayload{SubmissionID: submissionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TaskSyncCalendar, payload, sideEffectOpts(timeout)...), nil
}

// newJobTask builds a periodic job task. Unique keeps a second scheduler
// from running the same job twice in one window.
func newJobTask(taskType string) *asynq.Task {
	return asynq.NewTask(
		taskType,
		nil,
		asynq.MaxRetry(0),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Hour),
	)
}
