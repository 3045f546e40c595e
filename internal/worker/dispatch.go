package worker

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/ascend/internal/logging"
	"github.com/jimdaga/ascend/internal/models"
)

// StatusNotifier sends the status change notice
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, submissionID string, from, to models.Status) error
}

// CalendarSyncer mirrors a submission into its owner's calendar
type CalendarSyncer interface {
	SyncCalendar(ctx context.Context, submissionID string) error
}

// Enqueuer dispatches submission side effects as asynq tasks
type Enqueuer struct {
	client  *asynq.Client
	timeout time.Duration
}

// NewEnqueuer creates an Enqueuer on redisURL. Each task runs with timeout.
func NewEnqueuer(redisURL string, timeout time.Duration) (*Enqueuer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	return &Enqueuer{client: asynq.NewClient(opt), timeout: timeout}, nil
}

// Close closes the asynq client connection
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// NotifyStatusChange enqueues the status change notice. Enqueue failures
// are logged.
func (e *Enqueuer) NotifyStatusChange(ctx context.Context, submissionID string, from, to models.Status) {
	task, err := NewStatusChangeTask(submissionID, from, to, e.timeout)
	if err == nil {
		_, err = e.client.EnqueueContext(ctx, task)
	}
	if err != nil {
		logging.FromContext(ctx).Error("Failed to enqueue status notice", "submission_id", submissionID, "error", err)
	}
}

// SyncCalendar enqueues the calendar sync. Enqueue failures are logged.
func (e *Enqueuer) SyncCalendar(ctx context.Context, submissionID string) {
	task, err := NewSyncCalendarTask(submissionID, e.timeout)
	if err == nil {
		_, err = e.client.EnqueueContext(ctx, task)
	}
	if err != nil {
		logging.FromContext(ctx).Error("Failed to enqueue calendar sync", "submission_id", submissionID, "error", err)
	}
}

// InlineDispatcher runs submission side effects in background goroutines.
// Each runs detached from the request with its own timeout, and its error
// is logged.
type InlineDispatcher struct {
	notifier StatusNotifier
	syncer   CalendarSyncer
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewInlineDispatcher creates an InlineDispatcher. A nil syncer disables
// calendar sync.
func NewInlineDispatcher(notifier StatusNotifier, syncer CalendarSyncer, timeout time.Duration) *InlineDispatcher {
	return &InlineDispatcher{notifier: notifier, syncer: syncer, timeout: timeout}
}

// NotifyStatusChange sends the status change notice in the background
func (d *InlineDispatcher) NotifyStatusChange(ctx context.Context, submissionID string, from, to models.Status) {
	if d.notifier == nil {
		return
	}
	d.run(ctx, "status notice", submissionID, func(ctx context.Context) error {
		return d.notifier.NotifyStatusChange(ctx, submissionID, from, to)
	})
}

// SyncCalendar syncs the calendar in the background
func (d *InlineDispatcher) SyncCalendar(ctx context.Context, submissionID string) {
	if d.syncer == nil {
		return
	}
	d.run(ctx, "calendar sync", submissionID, func(ctx context.Context) error {
		return d.syncer.SyncCalendar(ctx, submissionID)
	})
}

func (d *InlineDispatcher) run(parent context.Context, name, submissionID string, fn func(context.Context) error) {
	logger := logging.FromContext(parent)
	ctx := context.WithoutCancel(parent)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			logger.Error("Side effect failed", "task", name, "submission_id", submissionID, "error", err)
		}
	}()
}

// Wait blocks until every started side effect has finished
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
