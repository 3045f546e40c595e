package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jimdaga/ascend/internal/config"
	"github.com/jimdaga/ascend/internal/logging"
	"github.com/jimdaga/ascend/internal/server"
	"github.com/jimdaga/ascend/internal/worker"
)

// Run modes, selected by the first argument
const (
	modeServer   = "server"
	modeWorker   = "worker"
	modeEmbedded = "embedded"
)

const shutdownTimeout = 10 * time.Second

func main() {
	mode := modeServer
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(mode, cfg, logger); err != nil {
		slog.Error("Exiting", "mode", mode, "error", err)
		os.Exit(1)
	}
}

func run(mode string, cfg *config.Config, logger *slog.Logger) error {
	switch mode {
	case modeServer, modeWorker, modeEmbedded:
	default:
		return fmt.Errorf("unknown mode %q, expected %s, %s or %s", mode, modeServer, modeWorker, modeEmbedded)
	}
	if mode != modeServer && cfg.RedisURL == "" {
		return fmt.Errorf("%s mode requires REDIS_URL", mode)
	}

	a, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if mode == modeWorker {
		return runWorker(a)
	}

	if mode == modeEmbedded {
		stop, err := worker.Start(cfg, a.workerHandlers())
		if err != nil {
			return err
		}
		a.onClose(stop)
		if err := a.startStreamConsumer("embedded-" + hostname()); err != nil {
			return err
		}
	}
	if err := a.startScheduler(); err != nil {
		return err
	}

	deps, err := a.serverDeps()
	if err != nil {
		return err
	}
	return serveHTTP(cfg, server.NewRouter(*deps))
}

// runWorker blocks in the asynq server until SIGINT or SIGTERM
func runWorker(a *app) error {
	if err := a.startStreamConsumer("worker-" + hostname()); err != nil {
		return err
	}
	if err := a.startScheduler(); err != nil {
		return err
	}

	slog.Info("Starting worker", "env", a.cfg.Env)
	return worker.Run(a.cfg, a.workerHandlers())
}

func serveHTTP(cfg *config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "local"
	}
	return name
}
