package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the filestore taxonomy. Each typed error below matches
// its sentinel under errors.Is.
var (
	ErrDuplicateHandler = errors.New("duplicate handler")
	ErrKeyNotFound      = errors.New("no handler registered")
	ErrNotFound         = errors.New("document not found")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrIntegrity        = errors.New("integrity violation")
)

// DuplicateHandlerError reports an attempt to bind a spec that is already
// bound to a different handler factory without overwrite.
type DuplicateHandlerError struct {
	Spec      string
	Existing  string // name of the bound factory
	Requested string // name of the rejected factory
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("handler for spec %q already registered (%s); cannot register %s without overwrite",
		e.Spec, e.Existing, e.Requested)
}

func (e *DuplicateHandlerError) Is(target error) bool { return target == ErrDuplicateHandler }

// KeyNotFoundError reports a spec with no handler in any registry layer.
type KeyNotFoundError struct {
	Spec string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("no handler registered for spec %q", e.Spec)
}

func (e *KeyNotFoundError) Is(target error) bool { return target == ErrKeyNotFound }

// NotFoundError reports a missing resource or datum document.
type NotFoundError struct {
	Kind string // ResourceCollection or DatumCollection
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports kwargs that fail a spec schema, or mismatched
// bulk-insert input lengths (Expected and Found set, Keys empty).
type ValidationError struct {
	Spec     string
	Kind     string   // "resource" or "datum"
	Keys     []string // offending keys, sorted
	Expected int
	Found    int
	Err      error // underlying schema error, if any
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Spec != "" {
		fmt.Fprintf(&b, " for %s %s", e.Spec, e.Kind)
	}
	if len(e.Keys) > 0 {
		fmt.Fprintf(&b, ": offending keys [%s]", strings.Join(e.Keys, ", "))
	}
	if e.Expected != e.Found {
		fmt.Fprintf(&b, ": expected %d items, found %d", e.Expected, e.Found)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError reports a datum id that is already taken.
type ConflictError struct {
	DatumID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("datum %q already exists", e.DatumID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// IntegrityError reports a handler that produced a different number of frames
// than the datum asked for.
type IntegrityError struct {
	Expected int
	Found    int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("expected %d frames, found %d frames", e.Expected, e.Found)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }
