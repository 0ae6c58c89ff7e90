package task

import (
	"errors"
	"fmt"

	"github.com/JamesPrial/task-history/internal/validate"
)

// ErrNotFound is the sentinel every missing-record failure matches.
var ErrNotFound = errors.New("task not found")

// NotFoundError reports an unknown, missing, or malformed task identifier.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return "task ID is required"
	}
	return fmt.Sprintf("task with ID %s not found", e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvariantError reports an illegal state transition. The only transition
// currently rejected is moving a completed task back to another status.
type InvariantError struct {
	Field Field
	From  any
	To    any
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("cannot change task %s from %q back to %q", e.Field, e.From, e.To)
}

// Kind discriminates the failures callers need to tell apart.
type Kind int

const (
	// KindStore covers persistence failures and anything unclassified.
	KindStore Kind = iota
	KindValidation
	KindNotFound
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant"
	default:
		return "store"
	}
}

// KindOf classifies err. A nil error is reported as KindStore; callers check
// for nil first.
func KindOf(err error) Kind {
	var validationErr *validate.ValidationError
	var invariantErr *InvariantError
	switch {
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &invariantErr):
		return KindInvariant
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindStore
	}
}
