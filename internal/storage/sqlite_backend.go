package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JamesPrial/task-history/internal/task"

	_ "modernc.org/sqlite" // register sqlite driver
)

// schemaDDL defines the database schema for the SQLite backend.
//
// Tags and history are stored as JSON text; timestamps as RFC 3339 text in UTC
// so they sort lexically.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    priority TEXT NOT NULL DEFAULT 'Medium',
    due_date TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    history TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// sqliteTimeLayout keeps a fixed width so text comparison orders correctly.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteBackend implements Store using SQLite in WAL mode.
type SQLiteBackend struct {
	// DBPath is the absolute path to the SQLite database file.
	DBPath string

	db *sql.DB
}

// NewSQLiteBackend opens the database at dbPath and initializes the schema.
// Parent directories are created if they don't exist.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	backend := &SQLiteBackend{DBPath: dbPath}

	db, err := backend.connect()
	if err != nil {
		return nil, err
	}
	backend.db = db

	if err := backend.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return backend, nil
}

// connect opens the database with WAL journaling. A single connection avoids
// SQLITE_BUSY between writers of the same process.
func (b *SQLiteBackend) connect() (*sql.DB, error) {
	dir := filepath.Dir(b.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", b.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	return db, nil
}

func (b *SQLiteBackend) ensureSchema() error {
	if _, err := b.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func formatSQLiteTime(t time.Time) any {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (task.Task, error) {
	var t task.Task
	var status, priority, dueDate, createdAt, updatedAt string
	var tagsJSON, historyJSON string

	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status, &priority, &dueDate,
		&tagsJSON, &historyJSON, &createdAt, &updatedAt,
	); err != nil {
		return task.Task{}, err
	}
	t.Status = task.Status(status)
	t.Priority = task.Priority(priority)

	var err error
	if t.DueDate, err = parseSQLiteTime(dueDate); err != nil {
		return task.Task{}, fmt.Errorf("failed to parse due_date: %w", err)
	}
	if t.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return task.Task{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return task.Task{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if err := decodeJSONColumns(&t, []byte(tagsJSON), []byte(historyJSON)); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (b *SQLiteBackend) Create(ctx context.Context, t task.Task) (task.Task, error) {
	t = stampNew(t, utcNow())

	tagsJSON, err := encodeJSON(t.Tags, "[]")
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to encode tags: %w", err)
	}
	historyJSON, err := encodeJSON(t.History, "[]")
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to encode history: %w", err)
	}

	_, err = b.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority),
		formatSQLiteTime(t.DueDate), tagsJSON, historyJSON,
		formatSQLiteTime(t.CreatedAt), formatSQLiteTime(t.UpdatedAt),
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}
	return b.FindByID(ctx, t.ID)
}

func (b *SQLiteBackend) FindAll(ctx context.Context) ([]task.Task, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]task.Task, 0)
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

func (b *SQLiteBackend) FindByID(ctx context.Context, id string) (task.Task, error) {
	row := b.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrNotFound
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to load task %s: %w", id, err)
	}
	return t, nil
}

// Update issues a single UPDATE covering the changed columns, the history,
// and updated_at.
func (b *SQLiteBackend) Update(ctx context.Context, id string, upd task.Update) (task.Task, error) {
	clauses, err := encodeChanges(upd.Changes, formatSQLiteTime)
	if err != nil {
		return task.Task{}, err
	}
	historyJSON, err := encodeJSON(upd.History, "[]")
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to encode history: %w", err)
	}
	clauses = append(clauses,
		setClause{"history", historyJSON},
		setClause{"updated_at", formatSQLiteTime(utcNow())},
	)

	assignments := make([]string, len(clauses))
	args := make([]any, 0, len(clauses)+1)
	for i, c := range clauses {
		assignments[i] = c.column + " = ?"
		args = append(args, c.value)
	}
	args = append(args, id)

	res, err := b.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(assignments, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to update task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return task.Task{}, ErrNotFound
	}
	return b.FindByID(ctx, id)
}

func (b *SQLiteBackend) Delete(ctx context.Context, id string) (bool, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}
