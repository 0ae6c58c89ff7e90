// Package service orchestrates task creation, change-tracked updates, and the
// pass-through reads and deletes over a storage.Store.
//
// The service owns no state besides its collaborators. An update is a read,
// an in-memory diff, and at most one write; concurrent updates to the same
// task are last-writer-wins.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JamesPrial/task-history/internal/metrics"
	"github.com/JamesPrial/task-history/internal/storage"
	"github.com/JamesPrial/task-history/internal/task"
	"github.com/JamesPrial/task-history/internal/tracking"
	"github.com/JamesPrial/task-history/internal/validate"
)

// Service is the task orchestrator.
type Service struct {
	store   storage.Store
	engine  *tracking.Engine
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock replaces time.Now for history timestamps and due-date checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithEngine replaces the change-tracking engine built from
// tracking.DefaultRegistry.
func WithEngine(e *tracking.Engine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

// New constructs a Service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.engine == nil {
		s.engine = tracking.NewEngine(tracking.DefaultRegistry(s.now), s.now)
	}
	return s
}

// ListFilter narrows ListTasks. The zero value matches every task.
type ListFilter struct {
	Status task.Status
}

// CreateTask validates input and stores a new task whose history holds the
// single creation entry.
//
// title, status, and dueDate are required. An absent or unrecognized priority
// becomes task.DefaultPriority instead of failing.
func (s *Service) CreateTask(ctx context.Context, input task.Input) (task.Task, error) {
	t, err := s.buildTask(input)
	if err != nil {
		return task.Task{}, s.reject(ctx, "create", err)
	}

	created, err := s.store.Create(ctx, t)
	if err != nil {
		return task.Task{}, s.reject(ctx, "create", err)
	}

	s.logger.InfoContext(ctx, "task created",
		"task_id", created.ID,
		"status", created.Status,
		"priority", created.Priority,
	)
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	return created, nil
}

func (s *Service) buildTask(input task.Input) (task.Task, error) {
	if err := validate.RequiredFieldsPresent(input, task.RequiredOnCreate, task.OmitOnCreate); err != nil {
		return task.Task{}, err
	}

	now := s.now()
	title, err := validate.RequiredString(input[task.FieldTitle], string(task.FieldTitle), task.MinTitleLength)
	if err != nil {
		return task.Task{}, err
	}
	status, err := validate.RequiredEnum(input[task.FieldStatus], string(task.FieldStatus), task.Statuses)
	if err != nil {
		return task.Task{}, err
	}
	dueDate, err := validate.FutureDate(input[task.FieldDueDate], string(task.FieldDueDate), now)
	if err != nil {
		return task.Task{}, err
	}
	description, err := validate.OptionalString(input[task.FieldDescription], string(task.FieldDescription), task.MaxDescriptionLength)
	if err != nil {
		return task.Task{}, err
	}
	priority, err := validate.RequiredEnum(input[task.FieldPriority], string(task.FieldPriority), task.Priorities)
	if err != nil {
		priority = task.DefaultPriority
	}

	return task.Task{
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
		Tags:        validate.UniqueTags(input[task.FieldTags]),
		History: []task.HistoryEntry{{
			Timestamp:   now,
			ChangeType:  task.ChangeTaskCreated,
			Description: task.CreatedDescription,
		}},
	}, nil
}

// UpdateTask applies the recognized fields of input to the task id and
// appends one history entry per changed field.
//
// When nothing changes the stored task is returned and no write is issued.
// Otherwise the changes and the extended history go to the store in a single
// Update call.
func (s *Service) UpdateTask(ctx context.Context, id string, input task.Input) (task.Task, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return task.Task{}, s.reject(ctx, "update", err)
	}

	result, err := s.engine.Diff(current, input)
	if err != nil {
		return task.Task{}, s.reject(ctx, "update", err)
	}

	if result.Empty() {
		s.logger.DebugContext(ctx, "task update changed nothing", "task_id", id)
		if s.metrics != nil {
			s.metrics.ObserveUpdate(0)
		}
		return current, nil
	}

	history := slices.Concat(current.History, result.History)
	updated, err := s.store.Update(ctx, id, task.Update{
		Changes: result.Changes,
		History: history,
	})
	if errors.Is(err, storage.ErrNotFound) {
		err = &task.NotFoundError{ID: id}
	}
	if err != nil {
		return task.Task{}, s.reject(ctx, "update", err)
	}

	s.logger.InfoContext(ctx, "task updated",
		"task_id", id,
		"fields", result.Changes.Fields(),
		"history_entries", len(result.History),
	)
	if s.metrics != nil {
		s.metrics.ObserveUpdate(len(result.History))
	}
	return updated, nil
}

// GetTask returns the task id.
func (s *Service) GetTask(ctx context.Context, id string) (task.Task, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return task.Task{}, s.reject(ctx, "get", err)
	}
	return t, nil
}

// ListTasks returns every task in creation order, narrowed by filter.
func (s *Service) ListTasks(ctx context.Context, filter ListFilter) ([]task.Task, error) {
	if filter.Status != "" {
		if _, err := validate.RequiredEnum(filter.Status, string(task.FieldStatus), task.Statuses); err != nil {
			return nil, s.reject(ctx, "list", err)
		}
	}

	all, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, s.reject(ctx, "list", err)
	}
	if filter.Status == "" {
		return all, nil
	}
	return slices.DeleteFunc(all, func(t task.Task) bool {
		return t.Status != filter.Status
	}), nil
}

// DeleteTask removes the task id. Deleting an unknown task fails with a
// NotFoundError.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if !validID(id) {
		return s.reject(ctx, "delete", &task.NotFoundError{ID: id})
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return s.reject(ctx, "delete", err)
	}
	if !removed {
		return s.reject(ctx, "delete", &task.NotFoundError{ID: id})
	}

	s.logger.InfoContext(ctx, "task deleted", "task_id", id)
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
	return nil
}

// find loads id, reporting malformed and unknown identifiers alike as
// NotFoundError.
func (s *Service) find(ctx context.Context, id string) (task.Task, error) {
	if !validID(id) {
		return task.Task{}, &task.NotFoundError{ID: id}
	}
	t, err := s.store.FindByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return task.Task{}, &task.NotFoundError{ID: id}
	}
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func validID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// reject logs and counts a failed operation and returns err unchanged.
func (s *Service) reject(ctx context.Context, operation string, err error) error {
	kind := task.KindOf(err)
	level := slog.LevelWarn
	if kind == task.KindStore {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "task "+operation+" rejected",
		"kind", kind.String(),
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.IncrementRejected(operation, kind.String())
	}
	return err
}
