// Package errors provides the structured error taxonomy shared by every
// archivum component: each error carries a Kind, the operation and path it
// occurred against, and an optional cause for chaining.
package errors

import (
	"fmt"

	"github.com/ankit-chaubey/archivum/foundry"
)

// Kind classifies an error for exit-code mapping and continue_on_error handling.
type Kind string

const (
	// InputError is a bad CLI argument or config value; never retried.
	InputError Kind = "INPUT"
	// IOError is a missing source file, unreadable part, or permission denial.
	IOError Kind = "IO"
	// FormatError is malformed index JSON, an unknown schema version, or a
	// tar record that fails header validation.
	FormatError Kind = "FORMAT"
	// IntegrityError is a seal mismatch, missing part, or digest mismatch.
	IntegrityError Kind = "INTEGRITY"
	// SecurityError is a path-traversal or symlink-escape attempt.
	SecurityError Kind = "SECURITY"
)

var exitCodeByKind = map[Kind]foundry.ExitCode{
	InputError:     foundry.ExitInvalidArgument,
	IOError:        foundry.ExitFileReadError,
	FormatError:    foundry.ExitDataCorrupt,
	IntegrityError: foundry.ExitDataCorrupt,
	SecurityError:  foundry.ExitSecurityViolation,
}

// Error is the archivum error envelope. It implements error and Unwrap, and
// renders as "archivum <op> failed: <message> [<kind>] (path: <path>)".
// The cause chain is not part of that string; CausedBy returns it for the
// CLI's indented "caused by:" lines.
type Error struct {
	Kind      Kind
	Message   string
	Operation string
	Path      string
	Cause     error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("archivum %s failed: %s [%s] (path: %s)", e.Operation, e.Message, e.Kind, e.Path)
	}
	return fmt.Sprintf("archivum %s failed: %s [%s]", e.Operation, e.Message, e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// ExitCode maps the error kind to a process exit code.
func (e *Error) ExitCode() foundry.ExitCode {
	if code, ok := exitCodeByKind[e.Kind]; ok {
		return code
	}
	return foundry.ExitFailure
}

// CausedBy renders the indented "caused by:" chain for human-readable output.
func (e *Error) CausedBy() []string {
	var lines []string
	cause := e.Cause
	for cause != nil {
		lines = append(lines, cause.Error())
		u, ok := cause.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cause = u.Unwrap()
	}
	return lines
}

// New creates an Error with a literal message.
func New(kind Kind, op, path, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Operation: op, Path: path, Cause: cause}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, op, path string, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Operation: op, Path: path, Cause: cause}
}
