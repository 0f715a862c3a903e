package rocrate

import (
	"errors"
	"fmt"
)

// Sentinel errors for common crate error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrNotFound indicates a referenced local path, metadata file or
	// entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCrate indicates a structural problem with a crate being
	// loaded: no metadata descriptor at either conventional filename, or
	// a missing or ambiguous root data entity.
	ErrInvalidCrate = errors.New("invalid crate")

	// ErrInvalidReference indicates a malformed entity reference: a bare
	// mapping without an @id, or a remote hasPart entry that is not a
	// strict relative path.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidOperation indicates an operation the graph forbids, such
	// as deleting the root dataset or the metadata descriptor, or
	// requesting an unsupported workflow conversion.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidKey indicates an attempt to set, delete or append to a
	// reserved "@"-prefixed property key through the public entity API.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidPath indicates a destination path that is not relative,
	// or otherwise cannot address a location inside the crate.
	ErrInvalidPath = errors.New("invalid path")

	// ErrUnknownName indicates a lookup of an unregistered language,
	// test service or application name.
	ErrUnknownName = errors.New("unknown name")
)

// Error kinds categorize errors by their type.
const (
	// KindNotFound represents errors where a file or entity was not found.
	KindNotFound = "not_found"

	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindStructure represents structural errors in a crate being loaded.
	KindStructure = "structure"

	// KindOperation represents operations forbidden by graph invariants.
	KindOperation = "operation"

	// KindNetwork represents errors related to remote content access.
	KindNetwork = "network"

	// KindIO represents errors reading or writing crate payload bytes.
	KindIO = "io"
)

// CrateError is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category of
// error.
//
// CrateError implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
type CrateError struct {
	// Op is the operation that failed (e.g., "Crate.Delete", "File.Write").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindValidation).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional),
	// such as the entity identifier or path involved.
	Context map[string]any
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *CrateError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rocrate: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("rocrate: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("rocrate: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *CrateError) Unwrap() error {
	return e.Err
}

// Is implements error matching for CrateError, allowing comparison based on
// the underlying error or on another CrateError's Op and Kind.
func (e *CrateError) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*CrateError); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
		return false
	}
	return errors.Is(e.Err, target)
}

// newError builds a CrateError wrapping err for the given operation.
func newError(op, kind string, err error) *CrateError {
	return &CrateError{Op: op, Kind: kind, Err: err}
}

// newErrorf builds a CrateError whose underlying error wraps sentinel with
// a formatted detail message.
func newErrorf(op, kind string, sentinel error, format string, args ...any) *CrateError {
	return &CrateError{
		Op:   op,
		Kind: kind,
		Err:  fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...),
	}
}
