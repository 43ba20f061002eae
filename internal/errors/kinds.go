package errors

import (
	stderrors "errors"
	"fmt"
)

// Error kinds. Every error returned by the tracker or a storage backend wraps
// exactly one of these so callers can classify it with errors.Is.
var (
	ErrNotFound        = stderrors.New("not found")
	ErrInactive        = stderrors.New("habit is inactive")
	ErrInvalidArgument = stderrors.New("invalid argument")
	ErrStoreFailure    = stderrors.New("store failure")
)

// kindError pairs a kind sentinel with a message and an optional cause.
type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	switch {
	case e.msg == "" && e.cause == nil:
		return e.kind.Error()
	case e.cause == nil:
		return fmt.Sprintf("%s: %s", e.kind, e.msg)
	case e.msg == "":
		return fmt.Sprintf("%s: %v", e.kind, e.cause)
	default:
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// NotFound reports a missing habit or completion reference.
func NotFound(format string, args ...interface{}) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Inactive reports an action attempted on a deactivated habit.
func Inactive(format string, args ...interface{}) error {
	return &kindError{kind: ErrInactive, msg: fmt.Sprintf(format, args...)}
}

// InvalidArgument reports malformed caller input.
func InvalidArgument(format string, args ...interface{}) error {
	return &kindError{kind: ErrInvalidArgument, msg: fmt.Sprintf(format, args...)}
}

// StoreFailure wraps a persistence error. The cause stays reachable through
// errors.Is/As but is otherwise opaque to callers.
func StoreFailure(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var ke *kindError
	if stderrors.As(cause, &ke) {
		return cause
	}
	return &kindError{kind: ErrStoreFailure, msg: op, cause: cause}
}

// Kind returns a stable name for the error kind of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case stderrors.Is(err, ErrNotFound):
		return "not_found"
	case stderrors.Is(err, ErrInactive):
		return "inactive"
	case stderrors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case stderrors.Is(err, ErrStoreFailure):
		return "store_failure"
	default:
		return "unknown"
	}
}
