// Package fsmerrors defines the coded error taxonomy shared by every layer
// of the calculation engine (period parsing, the builder, the evaluator,
// the adjustment service, and the statement populator).
package fsmerrors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure, independent of the message text.
type Code string

// Error kinds from the engine's error taxonomy.
const (
	CodeInvalidPeriod  Code = "INVALID_PERIOD"
	CodeInvalidFormula Code = "INVALID_FORMULA"
	CodeMissingInput   Code = "MISSING_INPUT"
	CodeEvalError      Code = "EVAL_ERROR"
	CodeDuplicateValue Code = "DUPLICATE_VALUE"
	CodeTypeMismatch   Code = "TYPE_MISMATCH"
	CodeNotFound       Code = "NOT_FOUND"
	CodeCycle          Code = "CYCLE"
	CodeAdjustment     Code = "ADJUSTMENT_ERROR"
	CodePopulate       Code = "POPULATE_ERROR"
)

// Error is the engine's single coded error type. It carries a stable Code
// for programmatic matching, a human-readable Message, and an optional
// underlying Cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new *Error with the given code, message and cause.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// NewCycle creates a cycle error for the given simple path of node codes.
func NewCycle(path []string) *Error {
	return New(CodeCycle, fmt.Sprintf("cycle detected: %v", path), nil)
}
