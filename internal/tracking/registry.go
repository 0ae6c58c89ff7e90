// Package tracking computes validated field-level diffs of a task and the
// audit entries that describe them.
//
// A Registry holds one Descriptor per mutable field, in a fixed order. The
// Engine walks the registry against a stored task and a raw partial input
// and either returns every change with its history entries or fails as a
// whole.
package tracking

import (
	"fmt"
	"strings"
	"time"

	"github.com/JamesPrial/task-history/internal/task"
	"github.com/JamesPrial/task-history/internal/validate"
)

// PreprocessFunc turns a raw input value into a candidate. It may consult the
// current task. Returning keep=false skips the field.
type PreprocessFunc func(raw any, current task.Task) (candidate any, keep bool, err error)

// ValidateFunc validates and normalizes a candidate into its final value.
type ValidateFunc func(candidate any, field task.Field) (any, error)

// CompareFunc reports whether the value changed.
type CompareFunc func(old, updated any) bool

// DescribeFunc renders the human-readable summary of a change.
type DescribeFunc func(old, updated any) string

// GuardFunc enforces a business invariant on a detected change, before it is
// staged.
type GuardFunc func(old, updated any) error

// Descriptor declares how one mutable field is validated, compared, and
// described. Only Field is required.
type Descriptor struct {
	Field      task.Field
	Preprocess PreprocessFunc
	Validate   ValidateFunc
	Compare    CompareFunc
	Describe   DescribeFunc
	Guard      GuardFunc
}

// Registry is an ordered, immutable set of descriptors.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry builds a registry. Descriptors keep the given order; a field
// may appear only once and must be mutable.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	seen := make(map[task.Field]bool, len(descriptors))
	for _, d := range descriptors {
		if !d.Field.IsMutable() {
			return nil, fmt.Errorf("descriptor for non-mutable field %q", d.Field)
		}
		if seen[d.Field] {
			return nil, fmt.Errorf("duplicate descriptor for field %q", d.Field)
		}
		seen[d.Field] = true
	}
	return &Registry{descriptors: append([]Descriptor(nil), descriptors...)}, nil
}

// Descriptors returns a copy of the registered descriptors in order.
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descriptors...)
}

// DefaultRegistry returns the task registry: title, description, status,
// priority, dueDate, tags. now supplies the reference instant for due-date
// validation.
func DefaultRegistry(now func() time.Time) *Registry {
	r, err := NewRegistry(
		Descriptor{
			Field: task.FieldTitle,
			Validate: func(candidate any, field task.Field) (any, error) {
				return validate.RequiredString(candidate, string(field), task.MinTitleLength)
			},
			Describe: quoted("Title"),
		},
		Descriptor{
			Field: task.FieldDescription,
			Validate: func(candidate any, field task.Field) (any, error) {
				return validate.OptionalString(candidate, string(field), task.MaxDescriptionLength)
			},
		},
		Descriptor{
			Field: task.FieldStatus,
			Validate: func(candidate any, field task.Field) (any, error) {
				return validate.RequiredEnum(candidate, string(field), task.Statuses)
			},
			Guard:    completedIsFinal,
			Describe: quoted("Status"),
		},
		Descriptor{
			Field: task.FieldPriority,
			// Unlike creation, an invalid priority on update is rejected
			// rather than replaced by the default.
			Preprocess: func(raw any, _ task.Task) (any, bool, error) {
				p, err := validate.RequiredEnum(raw, string(task.FieldPriority), task.Priorities)
				if err != nil {
					return nil, false, err
				}
				return p, true, nil
			},
			Describe: quoted("Priority"),
		},
		Descriptor{
			Field: task.FieldDueDate,
			Validate: func(candidate any, field task.Field) (any, error) {
				return validate.FutureDate(candidate, string(field), now())
			},
			Compare:  datesDiffer,
			Describe: describeDueDate(now),
		},
		Descriptor{
			Field: task.FieldTags,
			Validate: func(candidate any, _ task.Field) (any, error) {
				return validate.UniqueTags(candidate), nil
			},
			Compare:  tagsDiffer,
			Describe: describeTags,
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

func completedIsFinal(old, updated any) error {
	if old == task.StatusCompleted && updated != task.StatusCompleted {
		return &task.InvariantError{Field: task.FieldStatus, From: old, To: updated}
	}
	return nil
}

func quoted(label string) DescribeFunc {
	return func(old, updated any) string {
		return fmt.Sprintf("%s changed from %q to %q.", label, fmt.Sprint(old), fmt.Sprint(updated))
	}
}

// describeDueDate prints both dates in the clock's zone, the zone date-only
// input is parsed in.
func describeDueDate(now func() time.Time) DescribeFunc {
	return func(old, updated any) string {
		loc := now().Location()
		return fmt.Sprintf("Due Date changed from %q to %q.", dateOnly(old, loc), dateOnly(updated, loc))
	}
}

func dateOnly(v any, loc *time.Location) string {
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return "N/A"
	}
	return t.In(loc).Format(time.DateOnly)
}

func describeTags(old, updated any) string {
	return fmt.Sprintf("Tags updated from [%s] to [%s].",
		strings.Join(asStrings(old), ", "), strings.Join(asStrings(updated), ", "))
}
