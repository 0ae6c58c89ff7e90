// Package payload turns raw request bodies and argument maps into task.Input.
//
// Decoding keeps the distinction the change-tracking engine relies on: a key
// that is absent stays absent, while a key sent as JSON null is present with a
// nil value.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JamesPrial/task-history/internal/task"
	"github.com/JamesPrial/task-history/internal/validate"
)

// BodyField names the request body in validation errors.
const BodyField = "body"

// Decode reads one JSON object from r.
//
// Empty input decodes to an empty Input. Anything that is not a single JSON
// object fails with a *validate.ValidationError so callers report it as bad
// input.
func Decode(r io.Reader) (task.Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (task.Input, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return task.Input{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed(err)
	}
	if raw == nil {
		return nil, &validate.ValidationError{Field: BodyField, Constraint: "must be a JSON object."}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &validate.ValidationError{Field: BodyField, Constraint: "must contain a single JSON object."}
	}
	return FromMap(raw), nil
}

func malformed(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &validate.ValidationError{Field: BodyField, Constraint: "must be a JSON object."}
	}
	return &validate.ValidationError{Field: BodyField, Constraint: "is not valid JSON."}
}

// FromMap converts decoded arguments into an Input. Keys are copied as-is;
// the engine ignores the ones that are not mutable fields.
func FromMap(args map[string]any) task.Input {
	in := make(task.Input, len(args))
	for k, v := range args {
		in[task.Field(k)] = v
	}
	return in
}

// SplitTags parses a comma-separated tag list as typed on a command line.
// Normalization is left to the validators.
func SplitTags(s string) []any {
	if strings.TrimSpace(s) == "" {
		return []any{}
	}
	parts := strings.Split(s, ",")
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}
