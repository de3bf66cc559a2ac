// Package simerrors implements the typed error taxonomy of spec §7. The
// teacher has no single file defining a closed error taxonomy; this package
// is grounded instead on the wrap-with-context idiom used throughout the
// teacher repo at nearly every fallible call site (fmt.Errorf("...: %w",
// err), e.g. datalog/storage/badger_store.go and datalog/planner), lifted
// into a small Kind enum so callers can tell error categories apart
// without string-matching messages.
package simerrors

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories of spec §7.
type Kind int

const (
	// CompileTime: model inconsistency caught at load time; no run begins.
	CompileTime Kind = iota
	// TypeError: incompatible units, non-boolean selector, cast without force.
	TypeError
	// CircularDependency: resolution path revisits an attribute in flight.
	CircularDependency
	// DomainError: map operation outside declared domain without `unbounded`.
	DomainError
	// AssertionFailed: a user-authored assert.* group returned false.
	AssertionFailed
	// ExternalError: external-data fetch failure, exhausted its one retry.
	ExternalError
)

func (k Kind) String() string {
	switch k {
	case CompileTime:
		return "CompileTimeError"
	case TypeError:
		return "TypeError"
	case CircularDependency:
		return "CircularDependencyError"
	case DomainError:
		return "DomainError"
	case AssertionFailed:
		return "AssertionFailedError"
	case ExternalError:
		return "ExternalError"
	default:
		return "UnknownError"
	}
}

// SimError is the engine's wrapped error type: a Kind plus the model
// coordinates needed to report it (entity path, attribute, timestep).
type SimError struct {
	Kind      Kind
	EntityID  int64
	Attribute string
	Timestep  int
	Substep   string
	Message   string
	Cause     error
}

func (e *SimError) Error() string {
	loc := fmt.Sprintf("entity=%d attribute=%s timestep=%d", e.EntityID, e.Attribute, e.Timestep)
	if e.Substep != "" {
		loc += " substep=" + e.Substep
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Message, loc, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, loc)
}

func (e *SimError) Unwrap() error { return e.Cause }

// New builds a SimError of the given kind.
func New(kind Kind, entityID int64, attribute string, timestep int, message string) *SimError {
	return &SimError{Kind: kind, EntityID: entityID, Attribute: attribute, Timestep: timestep, Message: message}
}

// Wrap builds a SimError of the given kind, preserving cause for errors.Is/As.
func Wrap(kind Kind, entityID int64, attribute string, timestep int, message string, cause error) *SimError {
	return &SimError{Kind: kind, EntityID: entityID, Attribute: attribute, Timestep: timestep, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *SimError, reporting ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var se *SimError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// IsFatal reports whether err aborts the run: true for every *SimError
// kind. An ExternalError only reaches this point after the resolver has
// already spent its one retry, so it is fatal too.
func IsFatal(err error) bool {
	_, ok := KindOf(err)
	return ok
}
