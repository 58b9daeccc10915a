package stde

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrReferentialIntegrity = errors.New("referential integrity violated")
)

// ValidationError reports a malformed field value rejected at a mutation
// boundary. The target keeps its prior value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an operation on an element the machine does not own.
type NotFoundError struct {
	Kind string // "signal", "state", "transition"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ReferentialIntegrityError reports a transition whose endpoints are not
// states of the same machine, or an index that does not resolve.
type ReferentialIntegrityError struct {
	Index  int // transition index, -1 when not yet added
	Reason string
}

func (e *ReferentialIntegrityError) Error() string {
	if e.Index < 0 {
		return "transition: " + e.Reason
	}
	return fmt.Sprintf("transition %d: %s", e.Index, e.Reason)
}

func (e *ReferentialIntegrityError) Is(target error) bool { return target == ErrReferentialIntegrity }
