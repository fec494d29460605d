// Package errors provides structured error types for the pipios installer.
//
// Every failure surfaced by the resolution and installation engine carries a
// machine-readable [Code], so callers can apply the per-branch error policy
// without string matching:
//
//   - VERSION_PARSE, SPECIFIER_PARSE: malformed versions, constraints or
//     dependency lines
//   - NOT_FOUND: package or pinned version absent from the registry
//   - INCOMPATIBLE_ENVIRONMENT: no artifact matches the platform/interpreter
//   - FILESYSTEM: I/O failure reading or writing the target directory
//   - NETWORK, NETWORK_TRANSIENT: registry or download failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeSpecifierParse, "unknown operator %q", op)
//	if errors.Is(err, errors.ErrCodeSpecifierParse) {
//	    // Handle parse error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFilesystem, origErr, "remove %s", path)
package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidPath    Code = "INVALID_PATH"
	ErrCodeVersionParse   Code = "VERSION_PARSE"
	ErrCodeSpecifierParse Code = "SPECIFIER_PARSE"

	// Resolution errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeIncompatible Code = "INCOMPATIBLE_ENVIRONMENT"

	// Installation errors
	ErrCodeFilesystem Code = "FILESYSTEM"
	ErrCodeIntegrity  Code = "INTEGRITY"

	// Network errors
	ErrCodeNetwork          Code = "NETWORK"
	ErrCodeNetworkTransient Code = "NETWORK_TRANSIENT"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain and reports true if any *Error in it carries code,
// so a NOT_FOUND wrapped by a later FILESYSTEM error is still found.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}

// IsBranchLocal reports whether err only invalidates the dependency subtree it
// occurred in. Parse, not-found, incompatibility and network failures are
// branch-local; filesystem, integrity and internal errors are not.
func IsBranchLocal(err error) bool {
	switch GetCode(err) {
	case ErrCodeVersionParse, ErrCodeSpecifierParse, ErrCodeNotFound,
		ErrCodeIncompatible, ErrCodeNetwork, ErrCodeNetworkTransient, ErrCodeInvalidPackage:
		return true
	}
	return false
}

// IsPermission reports whether err is an OS permission failure.
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
