// Package errors provides structured error types for snackpack.
//
// Every failure the bundling pipeline can surface carries a machine-readable
// [Code], so the CLI and the HTTP surface can react to the failure class
// without string matching:
//
//   - MALFORMED_SPEC: the request string could not be parsed (no network yet)
//   - PACKAGE_NOT_FOUND / VERSION_NOT_FOUND: registry resolution failures
//   - FETCH_FAILED / INSTALL_FAILED: collaborator failures, fatal to a request
//   - PLATFORM_BUILD_FAILED: fatal to one platform, or to the request when
//     every requested platform failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedSpec, "empty package name")
//	if errors.Is(err, errors.ErrCodeMalformedSpec) {
//	    // reject the request
//	}
//
//	err := errors.Wrap(errors.ErrCodeFetch, origErr, "download %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeMalformedSpec Code = "MALFORMED_SPEC"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Registry resolution errors
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeVersionNotFound Code = "VERSION_NOT_FOUND"

	// Collaborator errors
	ErrCodeFetch   Code = "FETCH_FAILED"
	ErrCodeInstall Code = "INSTALL_FAILED"
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Build errors
	ErrCodePlatformBuild Code = "PLATFORM_BUILD_FAILED"

	// Coordination errors
	ErrCodeLockTimeout Code = "LOCK_TIMEOUT"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// Only the outermost *Error in the chain is considered, so a FETCH_FAILED
// wrapping a NETWORK_ERROR reports FETCH_FAILED.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
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
		return e.Message
	}
	return err.Error()
}
