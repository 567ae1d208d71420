// Package domainerrors defines the coded error type shared by services and
// transports. Stores return sentinel errors from pkg/platform/sentinel and
// services translate them into coded errors here; handlers map codes to
// HTTP status without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers. Codes are stable strings and are
// rendered verbatim in API error bodies.
type Code string

const (
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeConflict           Code = "conflict"
	CodeNotFound           Code = "not_found"
	CodeForbidden          Code = "forbidden"
	CodeUnauthorized       Code = "unauthorized"
	CodeUpstream           Code = "upstream_error"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Violations is populated for validation
// failures and always carries every violated rule. Reason and Retryable are
// populated for upstream failures.
type Error struct {
	Code       Code
	Message    string
	Violations []string
	Reason     string
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Validation builds a validation error listing every violated rule.
func Validation(msg string, violations ...string) error {
	return &Error{Code: CodeValidation, Message: msg, Violations: append([]string(nil), violations...)}
}

// Upstream builds an error for a failed call to an external collaborator.
// reason must come from the caller's closed vocabulary.
func Upstream(err error, reason string, retryable bool, msg string) error {
	return &Error{Code: CodeUpstream, Message: msg, Reason: reason, Retryable: retryable, Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// Is is errors.Is, re-exported so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Violations returns the validation violations carried by err.
func Violations(err error) []string {
	if de, ok := As(err); ok {
		return de.Violations
	}
	return nil
}

// IsRetryable reports whether err is an upstream or timeout failure that a
// caller may safely retry.
func IsRetryable(err error) bool {
	de, ok := As(err)
	if !ok {
		return false
	}
	return de.Retryable || de.Code == CodeTimeout
}
