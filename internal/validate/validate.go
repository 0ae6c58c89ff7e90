// Package validate provides the pure validators used when creating and
// updating tasks.
//
// Every validator either returns a normalized value or fails with a
// *ValidationError naming the offending field and the violated constraint.
// Validators never accumulate errors: the first violation wins.
package validate

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidationError reports a malformed, missing, or out-of-constraint value.
type ValidationError struct {
	// Field is the name of the offending field as supplied by the caller.
	Field string

	// Constraint is a human-readable description of the violated rule.
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Constraint)
}

func fail(field, format string, args ...any) error {
	return &ValidationError{Field: field, Constraint: fmt.Sprintf(format, args...)}
}

// RequiredString validates that value is a string with at least minLength
// characters after trimming, and returns the trimmed string.
//
// A minLength below 1 is treated as 1.
func RequiredString(value any, field string, minLength int) (string, error) {
	if minLength < 1 {
		minLength = 1
	}
	s, ok := value.(string)
	if !ok {
		return "", fail(field, "is required and must be at least %d characters long.", minLength)
	}
	trimmed := strings.TrimSpace(s)
	if len([]rune(trimmed)) < minLength {
		return "", fail(field, "is required and must be at least %d characters long.", minLength)
	}
	return trimmed, nil
}

// OptionalString trims a string value and enforces an upper bound on its
// length. A nil value yields the empty string. maxLength <= 0 disables the
// bound.
func OptionalString(value any, field string, maxLength int) (string, error) {
	if value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fail(field, "must be a string.")
	}
	trimmed := strings.TrimSpace(s)
	if maxLength > 0 && len([]rune(trimmed)) > maxLength {
		return "", fail(field, "cannot exceed %d characters.", maxLength)
	}
	return trimmed, nil
}

// RequiredEnum validates that value is one of allowed and returns the
// matched member. Matching is exact: no trimming or case folding.
func RequiredEnum[T ~string](value any, field string, allowed []T) (T, error) {
	var zero T
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case T:
		s = string(v)
	default:
		return zero, fail(field, "is required.")
	}
	if i := slices.Index(allowed, T(s)); i >= 0 {
		return allowed[i], nil
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return zero, fail(field, "must be one of: %s.", strings.Join(names, ", "))
}

// dateLayouts are tried in order when a due date arrives as text.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseDate converts a time value or date-like string into a time.Time.
// Strings without a zone are interpreted in loc.
func ParseDate(value any, loc *time.Location) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// FutureDate validates that value is a date no earlier than midnight of the
// day containing now. Only the date is compared; the time of day carried by
// value is kept in the returned time. The boundary is inclusive.
func FutureDate(value any, field string, now time.Time) (time.Time, error) {
	if value == nil {
		return time.Time{}, fail(field, "is required.")
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return time.Time{}, fail(field, "is required.")
	}
	date, ok := ParseDate(value, now.Location())
	if !ok {
		return time.Time{}, fail(field, "is not a valid date.")
	}
	if date.Before(StartOfDay(now)) {
		return time.Time{}, fail(field, "cannot be in the past.")
	}
	return date, nil
}

// StartOfDay returns midnight of the day containing t, in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// UniqueTags trims every tag, drops empty ones, and removes duplicates while
// preserving first-seen order. It accepts []string or []any; anything else,
// including nil, yields an empty slice. Non-string members are ignored.
// It never fails.
func UniqueTags(tags any) []string {
	var raw []string
	switch v := tags.(type) {
	case []string:
		raw = v
	case []any:
		// Decoded JSON arrays land here; numbers, objects, and nulls are
		// dropped rather than rejected.
		raw = make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	seen := make(map[string]struct{}, len(raw))
	result := make([]string, 0, len(raw))
	for _, tag := range raw {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// RequiredFieldsPresent checks, in order, every key of required that is not
// listed in omit. It fails on the first key whose value is absent, nil, or a
// blank string.
func RequiredFieldsPresent[K ~string](data map[K]any, required, omit []K) error {
	for _, key := range required {
		if slices.Contains(omit, key) {
			continue
		}
		value, ok := data[key]
		if !ok || value == nil {
			return fail(string(key), "is required and cannot be empty.")
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return fail(string(key), "is required and cannot be empty.")
		}
	}
	return nil
}
