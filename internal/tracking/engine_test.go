package tracking_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/task-history/internal/task"
	"github.com/JamesPrial/task-history/internal/tracking"
	"github.com/JamesPrial/task-history/internal/validate"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

var now = time.Date(2030, 6, 15, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func newEngine() *tracking.Engine {
	return tracking.NewEngine(tracking.DefaultRegistry(clock), clock)
}

func current() task.Task {
	return task.Task{
		ID:          "8f14e45f-ceea-467f-a0e6-0b3f4b6c2d10",
		Title:       "Current title",
		Description: "current description",
		Status:      task.StatusPending,
		Priority:    task.PriorityMedium,
		DueDate:     time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC),
		Tags:        []string{"a", "b"},
		History:     []task.HistoryEntry{{ChangeType: task.ChangeTaskCreated, Description: task.CreatedDescription}},
	}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestDefaultRegistry_Order(t *testing.T) {
	t.Parallel()
	var fields []task.Field
	for _, d := range tracking.DefaultRegistry(clock).Descriptors() {
		fields = append(fields, d.Field)
	}
	assert.Equal(t, task.MutableFields, fields)
}

func TestNewRegistry_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		descriptors []tracking.Descriptor
		errContains string
	}{
		{
			name:        "duplicate field",
			descriptors: []tracking.Descriptor{{Field: task.FieldTitle}, {Field: task.FieldTitle}},
			errContains: "duplicate",
		},
		{
			name:        "store-managed field",
			descriptors: []tracking.Descriptor{{Field: task.FieldHistory}},
			errContains: "non-mutable",
		},
		{
			name:        "unknown field",
			descriptors: []tracking.Descriptor{{Field: "color"}},
			errContains: "non-mutable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tracking.NewRegistry(tt.descriptors...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestRegistry_DescriptorsIsACopy(t *testing.T) {
	t.Parallel()
	r := tracking.DefaultRegistry(clock)
	d := r.Descriptors()
	d[0].Field = task.FieldTags
	assert.Equal(t, task.FieldTitle, r.Descriptors()[0].Field)
}

// ---------------------------------------------------------------------------
// Diff: no-op paths
// ---------------------------------------------------------------------------

func TestDiff_NoChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input task.Input
	}{
		{name: "empty input", input: task.Input{}},
		{name: "unrecognized keys", input: task.Input{"color": "blue", task.FieldHistory: []any{}}},
		{name: "identical title", input: task.Input{task.FieldTitle: "Current title"}},
		{name: "title differing by padding", input: task.Input{task.FieldTitle: "  Current title  "}},
		{name: "tags reordered with duplicates", input: task.Input{task.FieldTags: []string{"b", "a", "b"}}},
		{name: "same due date as string", input: task.Input{task.FieldDueDate: "2030-07-01"}},
		{name: "same due date other zone", input: task.Input{task.FieldDueDate: "2030-07-01T02:00:00+02:00"}},
		{name: "same priority", input: task.Input{task.FieldPriority: "Medium"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := newEngine().Diff(current(), tt.input)
			require.NoError(t, err)
			assert.True(t, res.Empty(), "got changes %v", res.Changes)
		})
	}
}

// ---------------------------------------------------------------------------
// Diff: changes
// ---------------------------------------------------------------------------

func TestDiff_SingleChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    task.Input
		field    task.Field
		newValue any
		desc     string
	}{
		{
			name:     "title trimmed",
			input:    task.Input{task.FieldTitle: "  Better title "},
			field:    task.FieldTitle,
			newValue: "Better title",
			desc:     `Title changed from "Current title" to "Better title".`,
		},
		{
			name:     "description cleared by null",
			input:    task.Input{task.FieldDescription: nil},
			field:    task.FieldDescription,
			newValue: "",
			desc:     `description changed from "current description" to "".`,
		},
		{
			name:     "status",
			input:    task.Input{task.FieldStatus: "Completed"},
			field:    task.FieldStatus,
			newValue: task.StatusCompleted,
			desc:     `Status changed from "Pending" to "Completed".`,
		},
		{
			name:     "priority",
			input:    task.Input{task.FieldPriority: "High"},
			field:    task.FieldPriority,
			newValue: task.PriorityHigh,
			desc:     `Priority changed from "Medium" to "High".`,
		},
		{
			name:     "due date",
			input:    task.Input{task.FieldDueDate: "2030-06-20"},
			field:    task.FieldDueDate,
			newValue: time.Date(2030, 6, 20, 0, 0, 0, 0, time.UTC),
			desc:     `Due Date changed from "2030-07-01" to "2030-06-20".`,
		},
		{
			name:     "tags",
			input:    task.Input{task.FieldTags: []any{"a", " c "}},
			field:    task.FieldTags,
			newValue: []string{"a", "c"},
			desc:     "Tags updated from [a, b] to [a, c].",
		},
		{
			name:     "tags cleared",
			input:    task.Input{task.FieldTags: nil},
			field:    task.FieldTags,
			newValue: []string{},
			desc:     "Tags updated from [a, b] to [].",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cur := current()
			res, err := newEngine().Diff(cur, tt.input)
			require.NoError(t, err)

			require.Len(t, res.Changes, 1)
			assert.Equal(t, tt.newValue, res.Changes[tt.field])

			require.Len(t, res.History, 1)
			entry := res.History[0]
			old, _ := cur.Value(tt.field)
			assert.Equal(t, task.ChangeFieldUpdated, entry.ChangeType)
			assert.Equal(t, tt.field, entry.FieldChanged)
			assert.Equal(t, old, entry.OldValue)
			assert.Equal(t, tt.newValue, entry.NewValue)
			assert.Equal(t, tt.desc, entry.Description)
			assert.Equal(t, now, entry.Timestamp)
		})
	}
}

func TestDiff_HistoryFollowsRegistryOrder(t *testing.T) {
	t.Parallel()
	res, err := newEngine().Diff(current(), task.Input{
		task.FieldTags:        []string{"z"},
		task.FieldDueDate:     "2030-12-31",
		task.FieldDescription: "new",
		task.FieldTitle:       "Another title",
	})
	require.NoError(t, err)

	var order []task.Field
	for _, h := range res.History {
		order = append(order, h.FieldChanged)
	}
	assert.Equal(t, []task.Field{task.FieldTitle, task.FieldDescription, task.FieldDueDate, task.FieldTags}, order)
	assert.Equal(t, order, res.Changes.Fields())
}

func TestDiff_DoesNotMutateCurrent(t *testing.T) {
	t.Parallel()
	cur := current()
	_, err := newEngine().Diff(cur, task.Input{task.FieldTags: []string{"x"}, task.FieldTitle: "Changed"})
	require.NoError(t, err)
	assert.Equal(t, current(), cur)
}

// ---------------------------------------------------------------------------
// Diff: failures
// ---------------------------------------------------------------------------

func TestDiff_FailsAsAWhole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     task.Input
		wantKind  task.Kind
		wantField string
	}{
		{
			name:      "late field invalid after earlier valid change",
			input:     task.Input{task.FieldTitle: "Fine title", task.FieldDueDate: "2020-01-01"},
			wantKind:  task.KindValidation,
			wantField: "dueDate",
		},
		{
			name:      "first invalid field wins",
			input:     task.Input{task.FieldTitle: "x", task.FieldStatus: "Bogus"},
			wantKind:  task.KindValidation,
			wantField: "title",
		},
		{
			name:      "invalid priority is rejected",
			input:     task.Input{task.FieldPriority: "Critical"},
			wantKind:  task.KindValidation,
			wantField: "priority",
		},
		{
			name:      "null title",
			input:     task.Input{task.FieldTitle: nil},
			wantKind:  task.KindValidation,
			wantField: "title",
		},
		{
			name:      "description too long",
			input:     task.Input{task.FieldDescription: strings.Repeat("d", task.MaxDescriptionLength+1)},
			wantKind:  task.KindValidation,
			wantField: "description",
		},
		{
			name:      "null due date",
			input:     task.Input{task.FieldDueDate: nil},
			wantKind:  task.KindValidation,
			wantField: "dueDate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := newEngine().Diff(current(), tt.input)
			require.Error(t, err)
			assert.True(t, res.Empty(), "no partial result on failure")
			assert.Equal(t, tt.wantKind, task.KindOf(err))

			var vErr *validate.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestDiff_CompletedIsFinal(t *testing.T) {
	t.Parallel()
	cur := current()
	cur.Status = task.StatusCompleted

	for _, target := range []string{"Pending", "In Progress"} {
		res, err := newEngine().Diff(cur, task.Input{task.FieldStatus: target})
		require.Error(t, err)
		assert.True(t, res.Empty())
		assert.Equal(t, task.KindInvariant, task.KindOf(err))

		var inv *task.InvariantError
		require.True(t, errors.As(err, &inv))
		assert.Equal(t, task.StatusCompleted, inv.From)
	}

	res, err := newEngine().Diff(cur, task.Input{task.FieldStatus: "Completed"})
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestDiff_InvalidStatusOnCompletedIsValidationError(t *testing.T) {
	t.Parallel()
	cur := current()
	cur.Status = task.StatusCompleted
	_, err := newEngine().Diff(cur, task.Input{task.FieldStatus: "Nope"})
	assert.Equal(t, task.KindValidation, task.KindOf(err))
}

// ---------------------------------------------------------------------------
// Custom registries
// ---------------------------------------------------------------------------

func TestDiff_CustomDescriptorDefaults(t *testing.T) {
	t.Parallel()
	reg, err := tracking.NewRegistry(tracking.Descriptor{Field: task.FieldTitle})
	require.NoError(t, err)
	engine := tracking.NewEngine(reg, clock)

	res, err := engine.Diff(current(), task.Input{task.FieldTitle: "  Trimmed without validator  "})
	require.NoError(t, err)
	require.Len(t, res.History, 1)
	assert.Equal(t, "Trimmed without validator", res.Changes[task.FieldTitle])
	assert.Equal(t, `title changed from "Current title" to "Trimmed without validator".`, res.History[0].Description)

	res, err = engine.Diff(current(), task.Input{task.FieldStatus: "Completed"})
	require.NoError(t, err)
	assert.True(t, res.Empty(), "fields without a descriptor are ignored")
}

func TestDiff_PreprocessCanSkip(t *testing.T) {
	t.Parallel()
	reg, err := tracking.NewRegistry(tracking.Descriptor{
		Field: task.FieldTitle,
		Preprocess: func(raw any, cur task.Task) (any, bool, error) {
			return raw, cur.Status != task.StatusCompleted, nil
		},
	})
	require.NoError(t, err)
	engine := tracking.NewEngine(reg, clock)

	cur := current()
	cur.Status = task.StatusCompleted
	res, err := engine.Diff(cur, task.Input{task.FieldTitle: "Ignored"})
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestNewEngine_NilClockUsesNow(t *testing.T) {
	t.Parallel()
	engine := tracking.NewEngine(tracking.DefaultRegistry(time.Now), nil)
	before := time.Now()
	res, err := engine.Diff(current(), task.Input{task.FieldTitle: "Fresh title"})
	require.NoError(t, err)
	require.Len(t, res.History, 1)
	assert.False(t, res.History[0].Timestamp.Before(before))
}

func TestDiff_DueDateDescriptionUsesClockZone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		offset int
	}{
		{name: "east of UTC", offset: 2 * 60 * 60},
		{name: "west of UTC", offset: -7 * 60 * 60},
		{name: "far east", offset: 14 * 60 * 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			zone := time.FixedZone(tt.name, tt.offset)
			zoned := func() time.Time { return time.Date(2030, 5, 1, 12, 0, 0, 0, zone) }
			engine := tracking.NewEngine(tracking.DefaultRegistry(zoned), zoned)

			cur := current()
			cur.DueDate = time.Date(2030, 5, 5, 0, 0, 0, 0, zone).UTC()

			res, err := engine.Diff(cur, task.Input{task.FieldDueDate: "2030-05-10"})
			require.NoError(t, err)
			require.Len(t, res.History, 1)
			assert.Equal(t, `Due Date changed from "2030-05-05" to "2030-05-10".`, res.History[0].Description)
		})
	}
}
