package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JamesPrial/task-history/internal/task"
)

// JSONBackend implements Store on a single JSON file holding an array of
// tasks.
//
// Every write rewrites the whole file through a temporary file and os.Rename
// so an interrupted write never leaves a truncated file behind. A mutex
// serializes read-modify-write cycles within the process; separate processes
// sharing the file are not coordinated.
type JSONBackend struct {
	// Path is the absolute path to the JSON file.
	Path string

	mu sync.Mutex
}

// NewJSONBackend creates a JSONBackend for the given file path. Parent
// directories are created on first write.
func NewJSONBackend(path string) *JSONBackend {
	return &JSONBackend{Path: path}
}

// load reads every task from the file. A missing or empty file yields an
// empty slice. Unlike a log, a task file that fails to parse is an error:
// starting fresh would silently drop records.
func (b *JSONBackend) load() ([]task.Task, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return make([]task.Task, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}
	if len(data) == 0 {
		return make([]task.Task, 0), nil
	}

	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse task file %s: %w", b.Path, err)
	}
	if tasks == nil {
		tasks = make([]task.Task, 0)
	}
	for i := range tasks {
		tasks[i] = tasks[i].Clone()
	}
	return tasks, nil
}

// save atomically replaces the file with tasks, written with 2-space
// indentation and a trailing newline.
func (b *JSONBackend) save(tasks []task.Task) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create task directory: %w", err)
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	data = append(data, '\n')

	tmpFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", writeErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, b.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace task file: %w", err)
	}
	return nil
}

func (b *JSONBackend) Create(_ context.Context, t task.Task) (task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks, err := b.load()
	if err != nil {
		return task.Task{}, err
	}
	t = stampNew(t, utcNow())
	if err := b.save(append(tasks, t)); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (b *JSONBackend) FindAll(_ context.Context) ([]task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

func (b *JSONBackend) FindByID(_ context.Context, id string) (task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks, err := b.load()
	if err != nil {
		return task.Task{}, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return task.Task{}, ErrNotFound
}

func (b *JSONBackend) Update(_ context.Context, id string, upd task.Update) (task.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks, err := b.load()
	if err != nil {
		return task.Task{}, err
	}
	for i, t := range tasks {
		if t.ID != id {
			continue
		}
		next, err := applyUpdate(t, upd, utcNow())
		if err != nil {
			return task.Task{}, err
		}
		tasks[i] = next
		if err := b.save(tasks); err != nil {
			return task.Task{}, err
		}
		return next, nil
	}
	return task.Task{}, ErrNotFound
}

func (b *JSONBackend) Delete(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks, err := b.load()
	if err != nil {
		return false, err
	}
	kept := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tasks) {
		return false, nil
	}
	if err := b.save(kept); err != nil {
		return false, err
	}
	return true, nil
}
