// Package errors defines the sentinel errors of the build pipeline and an
// AppError wrapper that maps failures to process exit codes.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentifier marks a document without an id field. It aborts
	// the whole build; no artifact is written.
	ErrMissingIdentifier = errors.New("document has no id field")
	// ErrUnsupportedFieldType marks a configured field whose value is not a
	// string, number, or null. The field is skipped, the build continues.
	ErrUnsupportedFieldType = errors.New("unsupported field value type")
	// ErrTermDecoding marks a trie edge label that is not valid UTF-8.
	// Terms are text-only at insertion time, so this is a corrupted
	// invariant and fatal.
	ErrTermDecoding = errors.New("term is not valid UTF-8")
	// ErrInvalidSchema marks a malformed index schema.
	ErrInvalidSchema = errors.New("invalid index schema")
	// ErrSourceUnavailable marks a document source that cannot be reached.
	ErrSourceUnavailable = errors.New("document source unavailable")
	// ErrSinkUnavailable marks an artifact sink that cannot be reached.
	ErrSinkUnavailable = errors.New("artifact sink unavailable")
)

// Exit codes reported by the minidex binary.
const (
	ExitUsage    = 2
	ExitSchema   = 3
	ExitCorpus   = 4
	ExitBuild    = 5
	ExitTransfer = 6
	ExitInternal = 1
)

// AppError wraps a sentinel error with context and an exit code.
type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps sentinel with a message and exit code.
func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

// Newf wraps sentinel with a formatted message and exit code.
func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidSchema):
		return ExitSchema
	case errors.Is(err, ErrSourceUnavailable):
		return ExitCorpus
	case errors.Is(err, ErrMissingIdentifier), errors.Is(err, ErrTermDecoding):
		return ExitBuild
	case errors.Is(err, ErrSinkUnavailable):
		return ExitTransfer
	default:
		return ExitInternal
	}
}
