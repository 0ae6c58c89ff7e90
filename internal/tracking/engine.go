package tracking

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/JamesPrial/task-history/internal/task"
)

// Result is the outcome of a successful diff. Both parts are empty when
// nothing changed.
type Result struct {
	Changes task.Changes
	History []task.HistoryEntry
}

// Empty reports whether the diff produced neither changes nor history.
func (r Result) Empty() bool {
	return len(r.Changes) == 0 && len(r.History) == 0
}

// Engine applies a Registry to a stored task and a raw partial input. It is
// pure and synchronous: no I/O, no shared mutable state.
type Engine struct {
	registry *Registry
	now      func() time.Time
}

// NewEngine returns an engine over registry. A nil now defaults to time.Now.
func NewEngine(registry *Registry, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{registry: registry, now: now}
}

// Diff computes the validated changes of input against current and one
// "Field Updated" entry per changed field, in registry order.
//
// The first failing field aborts the diff: no partial Result is returned.
func (e *Engine) Diff(current task.Task, input task.Input) (Result, error) {
	changes := task.Changes{}
	var history []task.HistoryEntry

	for _, d := range e.registry.descriptors {
		raw, present := input[d.Field]
		if !present {
			continue
		}

		candidate := raw
		if d.Preprocess != nil {
			var keep bool
			var err error
			candidate, keep, err = d.Preprocess(raw, current)
			if err != nil {
				return Result{}, err
			}
			if !keep {
				continue
			}
		}

		value, err := finalize(d, candidate)
		if err != nil {
			return Result{}, err
		}

		old, _ := current.Value(d.Field)
		changed := defaultChanged
		if d.Compare != nil {
			changed = d.Compare
		}
		if !changed(old, value) {
			continue
		}

		if d.Guard != nil {
			if err := d.Guard(old, value); err != nil {
				return Result{}, err
			}
		}

		describe := defaultDescription(d.Field)
		if d.Describe != nil {
			describe = d.Describe
		}

		changes[d.Field] = value
		history = append(history, task.HistoryEntry{
			Timestamp:    e.now(),
			ChangeType:   task.ChangeFieldUpdated,
			FieldChanged: d.Field,
			OldValue:     old,
			NewValue:     value,
			Description:  describe(old, value),
		})
	}

	return Result{Changes: changes, History: history}, nil
}

// finalize runs the descriptor's validator, or trims text when none is
// declared.
func finalize(d Descriptor, candidate any) (any, error) {
	if d.Validate != nil {
		return d.Validate(candidate, d.Field)
	}
	if s, ok := candidate.(string); ok {
		return strings.TrimSpace(s), nil
	}
	return candidate, nil
}

func defaultDescription(field task.Field) DescribeFunc {
	return func(old, updated any) string {
		return fmt.Sprintf("%s changed from %q to %q.", field, fmt.Sprint(old), fmt.Sprint(updated))
	}
}

// defaultChanged compares collections as sets and dates by instant; anything
// else by deep equality.
func defaultChanged(old, updated any) bool {
	if isStringList(old) && isStringList(updated) {
		return tagsDiffer(old, updated)
	}
	if _, ok := old.(time.Time); ok {
		if _, ok := updated.(time.Time); ok {
			return datesDiffer(old, updated)
		}
	}
	return !reflect.DeepEqual(old, updated)
}

func isStringList(v any) bool {
	switch v.(type) {
	case []string, []any:
		return true
	}
	return false
}

// datesDiffer treats two zero or missing dates as equal.
func datesDiffer(old, updated any) bool {
	a, aok := old.(time.Time)
	b, bok := updated.(time.Time)
	aok = aok && !a.IsZero()
	bok = bok && !b.IsZero()
	if !aok && !bok {
		return false
	}
	if !aok || !bok {
		return true
	}
	return !a.Equal(b)
}

// tagsDiffer compares two lists as deduplicated sets, ignoring order.
func tagsDiffer(old, updated any) bool {
	return !slices.Equal(sortedSet(asStrings(old)), sortedSet(asStrings(updated)))
}

func sortedSet(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

func asStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}
