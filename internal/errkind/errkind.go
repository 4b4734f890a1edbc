// Package errkind classifies pipeline errors into the small set of
// kinds the engine and CLI layer need to make decisions on, while
// still carrying a stack trace via github.com/pkg/errors.
package errkind

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is a closed enumeration of the error categories the pipeline
// distinguishes between. See spec §7.
type Kind int

const (
	// Unknown is the zero value; Of returns it for errors that were
	// never classified.
	Unknown Kind = iota
	InvalidArgument
	InvalidConfiguration
	Unsupported
	NotFound
	PermissionDenied
	SchemaIncompatible
	TypeMismatch
	ConstraintViolation
	ScriptError
	ScriptTimeout
	Transient
	Cancelled
	Corrupt
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidConfiguration:
		return "InvalidConfiguration"
	case Unsupported:
		return "Unsupported"
	case NotFound:
		return "NotFound"
	case PermissionDenied:
		return "PermissionDenied"
	case SchemaIncompatible:
		return "SchemaIncompatible"
	case TypeMismatch:
		return "TypeMismatch"
	case ConstraintViolation:
		return "ConstraintViolation"
	case ScriptError:
		return "ScriptError"
	case ScriptTimeout:
		return "ScriptTimeout"
	case Transient:
		return "Transient"
	case Cancelled:
		return "Cancelled"
	case Corrupt:
		return "Corrupt"
	default:
		return "Unknown"
	}
}

// kindError pairs a Kind with an underlying, stack-carrying error.
type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string { return fmt.Sprintf("%s: %s", e.kind, e.cause) }
func (e *kindError) Unwrap() error { return e.cause }

// New creates a new error of the given kind with a stack trace
// attached at the call site.
func New(kind Kind, msg string) error {
	return &kindError{kind: kind, cause: errors.New(msg)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &kindError{kind: kind, cause: errors.Errorf(format, args...)}
}

// Wrap annotates err with a kind and a message, capturing a stack
// trace if err does not already carry one.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, cause: errors.Wrap(err, msg)}
}

// Of returns the Kind attached to err, or Unknown if none was
// attached anywhere in its cause chain.
func Of(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return Unknown
}

// Is reports whether err is classified as kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}

// Retryable reports whether an error of this kind should be retried by
// the writer's retry policy: any non-cancellation, non-configuration
// error (spec §4.H). Cancellation must propagate immediately, and a
// configuration error will fail identically on every attempt, so
// neither is worth a retry; everything else (including a data-level
// error that may well recur) gets the full retry budget.
func Retryable(err error) bool {
	switch Of(err) {
	case Cancelled, InvalidConfiguration:
		return false
	default:
		return true
	}
}
