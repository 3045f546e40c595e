package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/ascend/internal/config"
	"github.com/jimdaga/ascend/internal/logging"
	"github.com/robfig/cron/v3"
)

func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

// StartScheduler registers the notification jobs as asynq periodic tasks.
// Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: location(cfg.NotificationTimezone),
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	if _, err := scheduler.Register(cfg.DeadlineCheckSchedule, newJobTask(TaskDeadlineCheck)); err != nil {
		return nil, fmt.Errorf("failed to register deadline check schedule: %w", err)
	}
	if _, err := scheduler.Register(cfg.WeeklyDigestSchedule, newJobTask(TaskWeeklyDigest)); err != nil {
		return nil, fmt.Errorf("failed to register weekly digest schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info(
		"Scheduler started",
		"deadline_check", cfg.DeadlineCheckSchedule,
		"weekly_digest", cfg.WeeklyDigestSchedule,
		"timezone", cfg.NotificationTimezone,
	)

	return func() { scheduler.Shutdown() }, nil
}

// StartCron runs the notification jobs on an in-process cron scheduler,
// for deployments without Redis. Returns a stop function that waits for a
// running job to finish.
func StartCron(cfg *config.Config, jobs Jobs) (stop func(), err error) {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	c, err := newCron(cfg, jobs, logger)
	if err != nil {
		return nil, err
	}
	c.Start()

	slog.Info(
		"In-process scheduler started",
		"deadline_check", cfg.DeadlineCheckSchedule,
		"weekly_digest", cfg.WeeklyDigestSchedule,
		"timezone", cfg.NotificationTimezone,
	)

	return func() { <-c.Stop().Done() }, nil
}

func newCron(cfg *config.Config, jobs Jobs, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(location(cfg.NotificationTimezone)))

	run := func(name string, fn func(context.Context, Jobs) error) func() {
		return func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := fn(logging.WithContext(ctx, logger), jobs); err != nil {
				logger.Error("Scheduled job failed", "job", name, "error", err)
			}
		}
	}

	if _, err := c.AddFunc(cfg.DeadlineCheckSchedule, run("deadline_check", RunDeadlineCheck)); err != nil {
		return nil, fmt.Errorf("failed to register deadline check schedule: %w", err)
	}
	if _, err := c.AddFunc(cfg.WeeklyDigestSchedule, run("weekly_digest", RunWeeklyDigest)); err != nil {
		return nil, fmt.Errorf("failed to register weekly digest schedule: %w", err)
	}
	return c, nil
}
