package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/ascend/internal/config"
	"github.com/jimdaga/ascend/internal/logging"
	"github.com/jimdaga/ascend/internal/metrics"
	"github.com/jimdaga/ascend/internal/notifications"
)

const concurrency = 5

// Jobs are the periodic notification runs
type Jobs interface {
	CheckDeadlines(ctx context.Context) (notifications.DeadlineRunStats, error)
	SendWeeklyDigests(ctx context.Context) (notifications.DigestRunStats, error)
}

// Handlers are the services the worker calls. Syncer may be nil when no
// calendar provider is configured.
type Handlers struct {
	Notifier StatusNotifier
	Syncer   CalendarSyncer
	Jobs     Jobs
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the asynq worker server and blocks until a shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, h Handlers) error {
	srv, mux, err := newServer(cfg, h)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start starts the asynq worker without blocking and returns a stop
// function. Use this for embedded mode so the caller can coordinate
// shutdown.
func Start(cfg *config.Config, h Handlers) (stop func(), err error) {
	srv, mux, err := newServer(cfg, h)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, h Handlers) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     concurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	logger.Info("Worker starting", "concurrency", concurrency)
	return srv, newMux(logger, h), nil
}

func newMux(logger *slog.Logger, h Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskNotifyStatusChange, handleStatusChange(logger, h.Notifier))
	mux.HandleFunc(TaskSyncCalendar, handleSyncCalendar(logger, h.Syncer))
	mux.HandleFunc(TaskDeadlineCheck, handleDeadlineCheck(logger, h.Jobs))
	mux.HandleFunc(TaskWeeklyDigest, handleWeeklyDigest(logger, h.Jobs))
	return mux
}

func handleStatusChange(logger *slog.Logger, notifier StatusNotifier) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload StatusChangePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.SubmissionID == "" {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		ctx = logging.WithContext(ctx, logger.With("submission_id", payload.SubmissionID))
		if err := notifier.NotifyStatusChange(ctx, payload.SubmissionID, payload.From, payload.To); err != nil {
			return fmt.Errorf("status notice failed: %w", err)
		}
		return nil
	}
}

func handleSyncCalendar(logger *slog.Logger, syncer CalendarSyncer) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload SyncCalendarPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.SubmissionID == "" {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		if syncer == nil {
			logger.Debug("Calendar sync disabled, dropping task", "submission_id", payload.SubmissionID)
			return nil
		}

		ctx = logging.WithContext(ctx, logger.With("submission_id", payload.SubmissionID))
		if err := syncer.SyncCalendar(ctx, payload.SubmissionID); err != nil {
			return fmt.Errorf("calendar sync failed: %w", err)
		}
		return nil
	}
}

func handleDeadlineCheck(logger *slog.Logger, jobs Jobs) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		return RunDeadlineCheck(logging.WithContext(ctx, logger), jobs)
	}
}

func handleWeeklyDigest(logger *slog.Logger, jobs Jobs) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		return RunWeeklyDigest(logging.WithContext(ctx, logger), jobs)
	}
}

// RunDeadlineCheck runs the deadline check once and records the outcome
func RunDeadlineCheck(ctx context.Context, jobs Jobs) error {
	_, err := jobs.CheckDeadlines(ctx)
	metrics.JobRunsTotal.WithLabelValues("deadline_check", metrics.Result(err)).Inc()
	return err
}

// RunWeeklyDigest runs the weekly digest once and records the outcome
func RunWeeklyDigest(ctx context.Context, jobs Jobs) error {
	_, err := jobs.SendWeeklyDigests(ctx)
	metrics.JobRunsTotal.WithLabelValues("weekly_digest", metrics.Result(err)).Inc()
	return err
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)
	}
}
