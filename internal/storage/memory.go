package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/JamesPrial/task-history/internal/task"
)

// MemoryStore keeps tasks in process memory. Reads and writes exchange
// copies so callers never alias stored slices.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]task.Task
	order []string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]task.Task)}
}

func (s *MemoryStore) Create(_ context.Context, t task.Task) (task.Task, error) {
	t = stampNew(t, utcNow())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	return t.Clone(), nil
}

func (s *MemoryStore) FindAll(_ context.Context) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]task.Task, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.tasks[id].Clone())
	}
	return result, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, ErrNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, upd task.Update) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tasks[id]
	if !ok {
		return task.Task{}, ErrNotFound
	}
	next, err := applyUpdate(current, upd, utcNow())
	if err != nil {
		return task.Task{}, err
	}
	s.tasks[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return true, nil
}
