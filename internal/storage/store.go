// Package storage provides the task record store contract and its backends.
//
// Every backend implements Store: an in-memory map, a JSON file, SQLite,
// and PostgreSQL. CachedStore decorates any of them with a Redis read-through
// cache. Backends assign identifiers and timestamps; they never validate
// task content.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JamesPrial/task-history/internal/task"
)

// ErrNotFound is returned (possibly wrapped) when no record exists for an
// identifier. It is the same sentinel as task.ErrNotFound.
var ErrNotFound = task.ErrNotFound

// Store defines the contract for task persistence.
type Store interface {
	// Create persists t, assigning a new identifier and the creation and
	// update timestamps. Any ID or timestamps already on t are ignored.
	Create(ctx context.Context, t task.Task) (task.Task, error)

	// FindAll returns every task in creation order. It returns an empty,
	// non-nil slice when the store is empty.
	FindAll(ctx context.Context) ([]task.Task, error)

	// FindByID returns the task with the given identifier, or ErrNotFound.
	FindByID(ctx context.Context, id string) (task.Task, error)

	// Update applies the changes and replaces the history in a single write,
	// refreshing UpdatedAt. Returns ErrNotFound when the record no longer
	// exists.
	Update(ctx context.Context, id string, upd task.Update) (task.Task, error)

	// Delete removes the task. It reports true iff exactly one record was
	// removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// stampNew prepares t for insertion.
func stampNew(t task.Task, now time.Time) task.Task {
	t = t.Clone()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	return t
}

// applyUpdate returns a copy of t with upd applied.
func applyUpdate(t task.Task, upd task.Update, now time.Time) (task.Task, error) {
	next := t.Clone()
	if err := upd.Changes.ApplyTo(&next); err != nil {
		return task.Task{}, err
	}
	next.History = append([]task.HistoryEntry{}, upd.History...)
	next.UpdatedAt = now
	return next, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
