package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JamesPrial/task-history/internal/task"
)

// fieldColumns maps each mutable field to its column in the SQL backends.
var fieldColumns = map[task.Field]string{
	task.FieldTitle:       "title",
	task.FieldDescription: "description",
	task.FieldStatus:      "status",
	task.FieldPriority:    "priority",
	task.FieldDueDate:     "due_date",
	task.FieldTags:        "tags",
}

// taskColumns is the select list shared by the SQL backends.
const taskColumns = `id, title, description, status, priority, due_date, tags, history, created_at, updated_at`

// setClause is one column assignment of an UPDATE statement.
type setClause struct {
	column string
	value  any
}

// encodeChanges converts validated changes into column assignments, in
// registry order. Dates are passed through formatTime and tags are
// JSON-encoded.
func encodeChanges(changes task.Changes, formatTime func(time.Time) any) ([]setClause, error) {
	clauses := make([]setClause, 0, len(changes))
	for _, field := range changes.Fields() {
		column := fieldColumns[field]
		value := changes[field]

		switch v := value.(type) {
		case string:
			clauses = append(clauses, setClause{column, v})
		case task.Status:
			clauses = append(clauses, setClause{column, string(v)})
		case task.Priority:
			clauses = append(clauses, setClause{column, string(v)})
		case time.Time:
			clauses = append(clauses, setClause{column, formatTime(v)})
		case []string:
			encoded, err := encodeJSON(v, "[]")
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s: %w", field, err)
			}
			clauses = append(clauses, setClause{column, encoded})
		default:
			return nil, fmt.Errorf("field %q: unexpected value type %T", field, value)
		}
	}
	return clauses, nil
}

// encodeJSON marshals v, substituting empty for nil slices.
func encodeJSON[T any](v []T, empty string) (string, error) {
	if len(v) == 0 {
		return empty, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeJSONColumns fills the tags and history of t from their stored JSON.
func decodeJSONColumns(t *task.Task, tagsJSON, historyJSON []byte) error {
	t.Tags = []string{}
	t.History = []task.HistoryEntry{}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &t.Tags); err != nil {
			return fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &t.History); err != nil {
			return fmt.Errorf("failed to decode history: %w", err)
		}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.History == nil {
		t.History = []task.HistoryEntry{}
	}
	return nil
}
