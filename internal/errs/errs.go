// Package errs defines the typed error kinds shared across the job
// engine, mirroring the small sentinel/typed error style the package
// uses throughout (see envexec.Status, envexec.FileErrorType).
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a structural failure of the job engine. Child process
// faults (non-empty stderr, SIGKILL, non-zero exit) are never represented
// as a Kind: they are adjudicated into verdicts, not errors.
type Kind int

const (
	// InvalidSpec means the caller supplied a JobSpec violating an
	// invariant (missing main, mismatched stdin/expected_output length,
	// unsafe file name). Reported to the caller; no Job is created.
	InvalidSpec Kind = iota
	// InvalidState means the Job's lifecycle was driven out of order
	// (Execute before Prime, etc). Programmer error, never user-facing.
	InvalidState
	// Spawn means a sandboxed child process could not be started.
	Spawn
	// Filesystem means prime or cleanup failed on a filesystem operation.
	Filesystem
)

func (k Kind) String() string {
	switch k {
	case InvalidSpec:
		return "InvalidSpec"
	case InvalidState:
		return "InvalidState"
	case Spawn:
		return "Spawn"
	case Filesystem:
		return "Filesystem"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with a Kind so callers can classify it
// without string matching.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given Kind. A nil err still produces a
// classifiable error carrying only the Kind's description.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf formats a message and wraps it with the given Kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
