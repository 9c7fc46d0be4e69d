// Package migerr defines the error categories from which every failure
// surfaced by the migration engine is built, and attaches changeset/operation
// context as errors propagate upward. No error is recovered locally inside
// topology analysis or commit planning (see spec §7): callers wrap with
// WithContext and let it bubble to the CLI boundary.
package migerr

import (
	"errors"
	"fmt"
)

// Category distinguishes the kinds of failure the engine can report.
type Category int

const (
	// Configuration covers unmapped authors, malformed root-path-change
	// arguments, and ambiguous or conflicting CLI input.
	Configuration Category = iota
	// Precondition covers a non-empty or already-populated target.
	Precondition
	// Invariant covers defects either in the analyzer or in the History
	// Source data: out-of-order registry operations, branch lookups that
	// unexpectedly return nothing, missing commit-index entries. Fatal.
	Invariant
	// PoorlyUnderstoodCombination covers a change whose flag combination
	// the model has not validated (e.g. Rename alongside other flags).
	// Fatal by design: the operator must inspect rather than the tool guess.
	PoorlyUnderstoodCombination
	// NotImplemented covers symbolic links, a root rename on a mapping
	// that carries a subdir remap, and a root-path move outside the
	// original root.
	NotImplemented
	// TransientIO covers failures from the History Source or Object
	// Store, surfaced only after the I/O layer's own retry policy is
	// exhausted.
	TransientIO
)

func (c Category) String() string {
	switch c {
	case Configuration:
		return "ConfigurationError"
	case Precondition:
		return "PreconditionFailure"
	case Invariant:
		return "InvariantViolation"
	case PoorlyUnderstoodCombination:
		return "PoorlyUnderstoodCombination"
	case NotImplemented:
		return "NotImplemented"
	case TransientIO:
		return "TransientIOFailure"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying cause with a category and, once attached, the
// changeset and operation that were being processed.
type Error struct {
	Category   Category
	Changeset  int // 0 if not yet attached to a changeset
	Operation  string
	Err        error
}

func (e *Error) Error() string {
	if e.Changeset == 0 && e.Operation == "" {
		return fmt.Sprintf("%s: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("%s: changeset %d (%s): %v", e.Category, e.Changeset, e.Operation, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a categorized error from a message.
func New(cat Category, msg string) error {
	return &Error{Category: cat, Err: errors.New(msg)}
}

// Wrap builds a categorized error around an existing error.
func Wrap(cat Category, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Category: cat, Err: err}
}

// WithContext attaches changeset/operation context to err, if err is (or
// wraps) a *Error. If err is not a *Error, it is wrapped as Invariant, since
// an uncategorized failure surfacing from engine internals is itself a
// defect worth flagging.
func WithContext(err error, changeset int, operation string) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		if me.Changeset == 0 {
			me.Changeset = changeset
		}
		if me.Operation == "" {
			me.Operation = operation
		}
		return me
	}
	return &Error{Category: Invariant, Changeset: changeset, Operation: operation, Err: err}
}

// Is reports whether err carries the given category.
func Is(err error, cat Category) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Category == cat
	}
	return false
}
