// Package main runs the task history HTTP service.
//
// Configuration comes from TASKS_* environment variables (see config.FromEnv).
// The process serves until SIGINT or SIGTERM, then drains in-flight requests.
//
// Exit codes:
//   - 0: clean shutdown
//   - 1: configuration, storage, or listener failure
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/JamesPrial/task-history/internal/config"
	"github.com/JamesPrial/task-history/internal/httpapi"
	"github.com/JamesPrial/task-history/internal/logger"
	"github.com/JamesPrial/task-history/internal/metrics"
	"github.com/JamesPrial/task-history/internal/service"
	"github.com/JamesPrial/task-history/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// run serves until ctx is cancelled and returns the process exit code.
func run(ctx context.Context, stderr io.Writer) int {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, stderr)

	store, closeStore, err := storage.Open(ctx, cfg.StorageOptions(log))
	if err != nil {
		log.Error("failed to open storage", "backend", cfg.Backend, "error", err)
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("failed to close storage", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	svc := service.New(store, service.WithLogger(log), service.WithMetrics(m))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(svc, httpapi.WithLogger(log), httpapi.WithMetrics(m, reg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("task service listening",
			"addr", cfg.Addr,
			"env", cfg.Env,
			"base_url", cfg.BaseURL,
			"backend", cfg.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("task service stopped", "error", err)
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stderr)
	stop()
	os.Exit(code)
}
