package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes tracking errors.
type ErrorCode string

const (
	// CodeNotFound indicates the referenced id has no backing files.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates an id collision on create.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// CodeMalformedPlan indicates a plan document violates the checkbox/heading grammar.
	CodeMalformedPlan ErrorCode = "MALFORMED_PLAN"

	// CodeCorrupt indicates a metadata or registry record failed to deserialize.
	CodeCorrupt ErrorCode = "CORRUPT"

	// CodeIndexOutOfRange indicates a task path does not resolve within a plan.
	CodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"

	// CodePartialData is a non-fatal per-unit problem during aggregate reporting.
	CodePartialData ErrorCode = "PARTIAL_DATA"

	// CodeInvalid indicates a caller-supplied value failed validation.
	CodeInvalid ErrorCode = "INVALID"
)

// Sentinels for errors.Is matching. An *Error matches the sentinel with the same code.
var (
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrAlreadyExists   = &Error{Code: CodeAlreadyExists}
	ErrMalformedPlan   = &Error{Code: CodeMalformedPlan}
	ErrCorrupt         = &Error{Code: CodeCorrupt}
	ErrIndexOutOfRange = &Error{Code: CodeIndexOutOfRange}
	ErrPartialData     = &Error{Code: CodePartialData}
	ErrInvalid         = &Error{Code: CodeInvalid}
)

// Error is the typed error returned by every tracking operation.
//
// Op names the operation that detected the problem ("create", "load",
// "set-task-done", ...) and ID the affected work unit, so that every failure
// identifies both.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed.
	Op string

	// ID is the affected work unit, if any.
	ID string

	// Message is a human-readable description.
	Message string

	// Line is the 1-based document line for parse errors (0 when unknown).
	Line int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	switch {
	case e.Op != "" && e.ID != "":
		return fmt.Sprintf("%s %s: %s (%s)", e.Op, e.ID, msg, e.Code)
	case e.Op != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, msg, e.Code)
	default:
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.ID == "" && t.Message == "" && t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NotFound creates a NOT_FOUND error.
func NotFound(op, id, message string) *Error {
	return &Error{Code: CodeNotFound, Op: op, ID: id, Message: message}
}

// AlreadyExists creates an ALREADY_EXISTS error.
func AlreadyExists(op, id string) *Error {
	return &Error{Code: CodeAlreadyExists, Op: op, ID: id, Message: "work unit already exists"}
}

// Corrupt creates a CORRUPT error wrapping the decode failure.
func Corrupt(op, id, message string, err error) *Error {
	return &Error{Code: CodeCorrupt, Op: op, ID: id, Message: message, Err: err}
}

// MalformedPlan creates a MALFORMED_PLAN error for the given line.
func MalformedPlan(line int, message string) *Error {
	return &Error{Code: CodeMalformedPlan, Op: "parse-plan", Line: line, Message: message}
}

// IndexOutOfRange creates an INDEX_OUT_OF_RANGE error.
func IndexOutOfRange(message string) *Error {
	return &Error{Code: CodeIndexOutOfRange, Op: "set-task-done", Message: message}
}

// Invalid creates an INVALID error.
func Invalid(op, id, message string) *Error {
	return &Error{Code: CodeInvalid, Op: op, ID: id, Message: message}
}

// WithUnit returns a copy of err annotated with op and id when err is an
// *Error that does not carry them yet. Other errors are wrapped as-is.
func WithUnit(err error, op, id string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	out := *e
	if out.ID == "" {
		out.ID = id
	}
	if out.Op == "" || out.Op == "parse-plan" || out.Op == "set-task-done" {
		out.Op = op
	}
	return &out
}
