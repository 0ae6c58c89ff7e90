// Package httpapi exposes the task orchestrator over HTTP.
//
// Routes live under /api/v1/tasks. Successful responses are wrapped as
// {"data", "message", "code"}; failures as {"message", "error", "data": []}.
// Not-found maps to 404, validation failures to 400, illegal status
// transitions to 409, bodies that are not JSON to 415, and everything else
// to 500.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JamesPrial/task-history/internal/metrics"
	"github.com/JamesPrial/task-history/internal/service"
	"github.com/JamesPrial/task-history/internal/task"
)

// Banner is served at the root path.
const Banner = "Task history service v1"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Service is the subset of the orchestrator the handlers call.
type Service interface {
	CreateTask(ctx context.Context, input task.Input) (task.Task, error)
	UpdateTask(ctx context.Context, id string, input task.Input) (task.Task, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	ListTasks(ctx context.Context, filter service.ListFilter) ([]task.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type routerConfig struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	timeout  time.Duration
}

type Option func(c *routerConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *routerConfig) {
		c.logger = logger
	}
}

// WithMetrics records request latency into m and serves gatherer at /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(c *routerConfig) {
		c.metrics = m
		c.gatherer = gatherer
	}
}

// WithTimeout bounds each request's context. The default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *routerConfig) {
		c.timeout = d
	}
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc Service, opts ...Option) http.Handler {
	cfg := routerConfig{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	h := &Handler{svc: svc, logger: cfg.logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.logger))
	if cfg.metrics != nil {
		r.Use(latency(cfg.metrics))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(Banner))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, cfg.logger, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/tasks", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.timeout))
		r.Use(requireJSON(cfg.logger))
		h.Register(r)
	})

	return r
}
