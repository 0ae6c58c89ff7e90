package task

import (
	"fmt"
	"slices"
	"time"
)

// Field identifies a key of a task as it appears in raw input.
type Field string

// Mutable fields, in the order the change-tracking registry declares them.
const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldStatus      Field = "status"
	FieldPriority    Field = "priority"
	FieldDueDate     Field = "dueDate"
	FieldTags        Field = "tags"
)

// Store-managed fields. Raw input may carry them; they are never validated
// as user data.
const (
	FieldID        Field = "id"
	FieldCreatedAt Field = "createdAt"
	FieldUpdatedAt Field = "updatedAt"
	FieldHistory   Field = "history"
)

// MutableFields lists the fields a caller may set, in registry order.
var MutableFields = []Field{
	FieldTitle, FieldDescription, FieldStatus, FieldPriority, FieldDueDate, FieldTags,
}

// RequiredOnCreate lists the fields that must be present when creating a task.
var RequiredOnCreate = []Field{FieldTitle, FieldStatus, FieldDueDate}

// OmitOnCreate lists the keys skipped by the generic presence check at
// creation: store-managed keys and optional fields with dedicated handling.
var OmitOnCreate = []Field{
	FieldID, FieldCreatedAt, FieldUpdatedAt, FieldHistory,
	FieldDescription, FieldPriority, FieldTags,
}

// IsMutable reports whether f is a field callers may set.
func (f Field) IsMutable() bool {
	return slices.Contains(MutableFields, f)
}

// Input is a raw, unvalidated partial task. A field is present only when its
// key exists; a present key may still hold nil.
type Input map[Field]any

// Changes maps a mutable field to its validated, normalized new value.
//
// Value types per field: title, description string; status Status;
// priority Priority; dueDate time.Time; tags []string.
type Changes map[Field]any

// Fields returns the changed fields in registry order.
func (c Changes) Fields() []Field {
	out := make([]Field, 0, len(c))
	for _, f := range MutableFields {
		if _, ok := c[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ApplyTo writes every change onto t. It fails without touching t when a
// value has the wrong type for its field or the field is not mutable.
func (c Changes) ApplyTo(t *Task) error {
	next := *t
	for field, value := range c {
		if err := setField(&next, field, value); err != nil {
			return err
		}
	}
	*t = next
	return nil
}

func setField(t *Task, field Field, value any) error {
	var ok bool
	switch field {
	case FieldTitle:
		t.Title, ok = value.(string)
	case FieldDescription:
		t.Description, ok = value.(string)
	case FieldStatus:
		t.Status, ok = value.(Status)
	case FieldPriority:
		t.Priority, ok = value.(Priority)
	case FieldDueDate:
		t.DueDate, ok = value.(time.Time)
	case FieldTags:
		var tags []string
		tags, ok = value.([]string)
		t.Tags = slices.Clone(tags)
	default:
		return fmt.Errorf("field %q is not mutable", field)
	}
	if !ok {
		return fmt.Errorf("field %q: unexpected value type %T", field, value)
	}
	return nil
}

// Value returns the current value of a mutable field of t, typed as in Changes.
func (t Task) Value(field Field) (any, bool) {
	switch field {
	case FieldTitle:
		return t.Title, true
	case FieldDescription:
		return t.Description, true
	case FieldStatus:
		return t.Status, true
	case FieldPriority:
		return t.Priority, true
	case FieldDueDate:
		return t.DueDate, true
	case FieldTags:
		return slices.Clone(t.Tags), true
	}
	return nil, false
}
