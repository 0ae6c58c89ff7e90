// Package task defines the task record, its audit history, and the error
// kinds shared by the change-tracking engine, the orchestrator, and the
// stores.
package task

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists every valid Status in declaration order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// Priority ranks a task. The zero value is not a valid priority.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists every valid Priority in declaration order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// DefaultPriority is assigned at creation when no valid priority is given.
const DefaultPriority = PriorityMedium

// ChangeType classifies a history entry.
type ChangeType string

const (
	ChangeTaskCreated  ChangeType = "Task Created"
	ChangeFieldUpdated ChangeType = "Field Updated"
)

// CreatedDescription is the description of the single entry seeded at creation.
const CreatedDescription = "New task was created."

// MinTitleLength is the minimum number of trimmed characters in a title.
const MinTitleLength = 3

// MaxDescriptionLength caps the trimmed description.
const MaxDescriptionLength = 500

// HistoryEntry is one immutable audit-trail item.
//
// OldValue and NewValue hold the validated values of the changed field. After
// a round trip through a JSON-backed store they come back as their JSON
// representations (strings and []any).
type HistoryEntry struct {
	Timestamp    time.Time  `json:"timestamp"`
	ChangeType   ChangeType `json:"changeType"`
	FieldChanged Field      `json:"fieldChanged,omitempty"`
	OldValue     any        `json:"oldValue,omitempty"`
	NewValue     any        `json:"newValue,omitempty"`
	Description  string     `json:"description"`
}

// Task is the record under management.
type Task struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      Status         `json:"status"`
	Priority    Priority       `json:"priority"`
	DueDate     time.Time      `json:"dueDate"`
	Tags        []string       `json:"tags"`
	History     []HistoryEntry `json:"history"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Clone returns a copy of t that shares no slices with it.
func (t Task) Clone() Task {
	c := t
	c.Tags = slices.Clone(t.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	c.History = slices.Clone(t.History)
	if c.History == nil {
		c.History = []HistoryEntry{}
	}
	return c
}

// Update is the single write the orchestrator submits to a store: the
// validated field values plus the complete, already merged history.
type Update struct {
	Changes Changes
	History []HistoryEntry
}
