package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/ascend/internal/apperrors"
	"github.com/jimdaga/ascend/internal/auth"
	"github.com/jimdaga/ascend/internal/calendar"
	"github.com/jimdaga/ascend/internal/config"
	"github.com/jimdaga/ascend/internal/database"
	"github.com/jimdaga/ascend/internal/directory"
	"github.com/jimdaga/ascend/internal/email"
	"github.com/jimdaga/ascend/internal/health"
	"github.com/jimdaga/ascend/internal/models"
	"github.com/jimdaga/ascend/internal/notifications"
	"github.com/jimdaga/ascend/internal/server"
	"github.com/jimdaga/ascend/internal/streams"
	"github.com/jimdaga/ascend/internal/submissions"
	"github.com/jimdaga/ascend/internal/worker"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app holds the long-lived collaborators shared by every run mode
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB

	store         *submissions.Store
	notifications *notifications.Service
	calendar      *calendar.Client
	bridge        *calendar.Bridge

	closers []func()
}

func bootstrap(cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("failed to initialize token encryption: %w", err)
		}
	} else {
		slog.Warn("ENCRYPTION_KEY not set, OAuth tokens will be stored unencrypted")
	}

	store := submissions.NewStore(db)
	client := calendar.NewClient(cfg.CalendarAPIURL, cfg.CalendarAPIKey, cfg.CalendarStub)

	a := &app{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		store:         store,
		notifications: notifications.NewService(db, email.NewSender(cfg), cfg.AppURL),
		calendar:      client,
		bridge:        calendar.NewBridge(store, client, cfg.AppURL),
	}
	a.onClose(func() {
		if err := database.Close(db); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	})
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close runs the registered closers in reverse order
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) workerHandlers() worker.Handlers {
	return worker.Handlers{
		Notifier: a.notifications,
		Syncer:   a.bridge,
		Jobs:     a.notifications,
	}
}

// dispatcher enqueues side effects on asynq when Redis is configured and
// otherwise runs them in-process
func (a *app) dispatcher() (submissions.Dispatcher, error) {
	if a.cfg.RedisURL == "" {
		inline := worker.NewInlineDispatcher(a.notifications, a.bridge, a.cfg.SideEffectTimeout)
		a.onClose(inline.Wait)
		return inline, nil
	}

	enqueuer, err := worker.NewEnqueuer(a.cfg.RedisURL, a.cfg.SideEffectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create task enqueuer: %w", err)
	}
	a.onClose(func() { _ = enqueuer.Close() })
	return enqueuer, nil
}

// startScheduler runs the periodic jobs when ENABLE_SCHEDULER is set
func (a *app) startScheduler() error {
	if !a.cfg.EnableScheduler {
		slog.Info("Scheduler disabled")
		return nil
	}

	var (
		stop func()
		err  error
	)
	if a.cfg.RedisURL != "" {
		stop, err = worker.StartScheduler(a.cfg)
	} else {
		stop, err = worker.StartCron(a.cfg, a.notifications)
	}
	if err != nil {
		return err
	}
	a.onClose(stop)
	return nil
}

// startStreamConsumer processes queued calendar webhook events
func (a *app) startStreamConsumer(name string) error {
	stop, err := streams.Start(a.cfg.RedisURL, name, streams.HandleWebhookEvent(a.store))
	if err != nil {
		return err
	}
	a.onClose(stop)
	return nil
}

func (a *app) readyChecks() ([]health.Check, error) {
	checks := []health.Check{{
		Name: "database",
		Ping: func(ctx context.Context) error { return database.Ping(ctx, a.db) },
	}}
	if a.cfg.RedisURL == "" {
		return checks, nil
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	a.onClose(func() { _ = rdb.Close() })

	return append(checks, health.Check{
		Name: "redis",
		Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}), nil
}

func (a *app) serverDeps() (*server.Deps, error) {
	dispatcher, err := a.dispatcher()
	if err != nil {
		return nil, err
	}
	checks, err := a.readyChecks()
	if err != nil {
		return nil, err
	}
	reg, err := directory.Load()
	if err != nil {
		return nil, err
	}

	apperrors.SetDebug(!a.cfg.IsProduction())
	auth.InitProviders(a.cfg)

	calendarDeps := calendar.Deps{
		DB:       a.db,
		Provider: a.calendar,
		OAuth: calendar.NewOAuth(calendar.OAuthConfig{
			BaseURL:     a.cfg.CalendarAPIURL,
			ClientID:    a.cfg.CalendarClientID,
			APIKey:      a.cfg.CalendarAPIKey,
			RedirectURL: a.cfg.CalendarCallbackURL,
			StateSecret: a.cfg.SessionSecret,
			StubMode:    a.cfg.CalendarStub,
		}),
		Bridge:        a.bridge,
		WebhookSecret: a.cfg.CalendarWebhookSecret,
		AppURL:        a.cfg.AppURL,
		Now:           time.Now,
	}
	if a.cfg.RedisURL != "" {
		publisher, err := streams.NewPublisher(a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = publisher.Close() })
		calendarDeps.Publisher = publisher
	}

	return &server.Deps{
		Config:        a.cfg,
		DB:            a.db,
		Logger:        a.logger,
		Submissions:   submissions.NewService(a.store, dispatcher),
		Notifications: a.notifications,
		Calendar:      calendarDeps,
		Directory:     reg,
		ReadyChecks:   checks,
		Now:           time.Now,
	}, nil
}
