package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/ascend/internal/config"
	"github.com/jimdaga/ascend/internal/logging"
	"github.com/jimdaga/ascend/internal/metrics"
	"github.com/jimdaga/ascend/internal/models"
	"github.com/jimdaga/ascend/internal/notifications"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServices struct {
	mu        sync.Mutex
	notices   []StatusChangePayload
	syncs     []string
	deadlines int
	digests   int
	err       error
	deadline  bool
}

func (f *fakeServices) NotifyStatusChange(ctx context.Context, id string, from, to models.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, StatusChangePayload{SubmissionID: id, From: from, To: to})
	_, f.deadline = ctx.Deadline()
	return f.err
}

func (f *fakeServices) SyncCalendar(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, id)
	return f.err
}

func (f *fakeServices) CheckDeadlines(context.Context) (notifications.DeadlineRunStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines++
	return notifications.DeadlineRunStats{}, f.err
}

func (f *fakeServices) SendWeeklyDigests(context.Context) (notifications.DigestRunStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.digests++
	return notifications.DigestRunStats{}, f.err
}

func TestNewStatusChangeTask(t *testing.T) {
	task, err := NewStatusChangeTask("sub-1", models.StatusSubmitted, models.StatusAccepted, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TaskNotifyStatusChange, task.Type())

	var payload StatusChangePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, StatusChangePayload{SubmissionID: "sub-1", From: models.StatusSubmitted, To: models.StatusAccepted}, payload)
}

func TestHandleStatusChange(t *testing.T) {
	svc := &fakeServices{}
	handle := handleStatusChange(logging.Discard(), svc)

	task, err := NewStatusChangeTask("sub-1", models.StatusSubmitted, models.StatusRejected, time.Minute)
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), task))
	require.Len(t, svc.notices, 1)
	assert.Equal(t, models.StatusRejected, svc.notices[0].To)

	err = handle(context.Background(), asynq.NewTask(TaskNotifyStatusChange, []byte(`{`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	svc.err = errors.New("smtp down")
	assert.ErrorContains(t, handle(context.Background(), task), "smtp down")
}

func TestHandleSyncCalendar(t *testing.T) {
	svc := &fakeServices{}
	task, err := NewSyncCalendarTask("sub-2", time.Minute)
	require.NoError(t, err)

	require.NoError(t, handleSyncCalendar(logging.Discard(), svc)(context.Background(), task))
	assert.Equal(t, []string{"sub-2"}, svc.syncs)

	require.NoError(t, handleSyncCalendar(logging.Discard(), nil)(context.Background(), task))

	err = handleSyncCalendar(logging.Discard(), svc)(context.Background(), asynq.NewTask(TaskSyncCalendar, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestJobHandlersRecordMetrics(t *testing.T) {
	svc := &fakeServices{}
	before := testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues("deadline_check", "success"))

	require.NoError(t, handleDeadlineCheck(logging.Discard(), svc)(context.Background(), newJobTask(TaskDeadlineCheck)))
	require.NoError(t, handleWeeklyDigest(logging.Discard(), svc)(context.Background(), newJobTask(TaskWeeklyDigest)))
	assert.Equal(t, 1, svc.deadlines)
	assert.Equal(t, 1, svc.digests)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues("deadline_check", "success")))

	svc.err = errors.New("db down")
	failedBefore := testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues("weekly_digest", "error"))
	assert.Error(t, RunWeeklyDigest(context.Background(), svc))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues("weekly_digest", "error")))
}

func TestInlineDispatcher(t *testing.T) {
	svc := &fakeServices{}
	d := NewInlineDispatcher(svc, svc, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	d.NotifyStatusChange(ctx, "sub-1", models.StatusSubmitted, models.StatusAccepted)
	d.SyncCalendar(ctx, "sub-1")
	cancel()
	d.Wait()

	require.Len(t, svc.notices, 1)
	assert.True(t, svc.deadline)
	assert.Equal(t, []string{"sub-1"}, svc.syncs)
}

func TestInlineDispatcher_SwallowsErrorsAndNilSyncer(t *testing.T) {
	svc := &fakeServices{err: errors.New("boom")}
	d := NewInlineDispatcher(svc, nil, time.Second)

	d.NotifyStatusChange(context.Background(), "sub-1", models.StatusSubmitted, models.StatusAccepted)
	d.SyncCalendar(context.Background(), "sub-1")
	d.Wait()

	assert.Len(t, svc.notices, 1)
	assert.Empty(t, svc.syncs)
}

func TestNewCron(t *testing.T) {
	cfg := &config.Config{
		NotificationTimezone:  "America/Los_Angeles",
		DeadlineCheckSchedule: "0 9 * * *",
		WeeklyDigestSchedule:  "0 8 * * 0",
	}
	c, err := newCron(cfg, &fakeServices{}, logging.Discard())
	require.NoError(t, err)
	require.Len(t, c.Entries(), 2)
	assert.Equal(t, "America/Los_Angeles", c.Location().String())

	cfg.WeeklyDigestSchedule = "not a schedule"
	_, err = newCron(cfg, &fakeServices{}, logging.Discard())
	assert.ErrorContains(t, err, "weekly digest")
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, location("Mars/Olympus"))
}
