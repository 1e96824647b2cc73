package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/tracks/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Check failure (registry drift, failed scenarios)
	ExitCommandError = 2 // Command error (unknown unit, malformed plan, bad flags, etc.)
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeUsage           = "E002" // Invalid flags or arguments
	ErrCodeNotFound        = "E101" // Unit or document missing
	ErrCodeAlreadyExists   = "E102" // Unit id taken
	ErrCodeMalformedPlan   = "E103" // Plan document does not parse
	ErrCodeCorrupt         = "E104" // Metadata or registry unreadable
	ErrCodeIndexOutOfRange = "E105" // Task path outside the plan
	ErrCodePartialData     = "E106" // Unit data unavailable
	ErrCodeInvalid         = "E107" // Input rejected by validation
	ErrCodeDrift           = "E201" // Registry disagrees with metadata
	ErrCodeScenarioFailed  = "E202" // Conformance scenario failed
)

var codeByKind = map[model.ErrorCode]string{
	model.CodeNotFound:        ErrCodeNotFound,
	model.CodeAlreadyExists:   ErrCodeAlreadyExists,
	model.CodeMalformedPlan:   ErrCodeMalformedPlan,
	model.CodeCorrupt:         ErrCodeCorrupt,
	model.CodeIndexOutOfRange: ErrCodeIndexOutOfRange,
	model.CodePartialData:     ErrCodePartialData,
	model.CodeInvalid:         ErrCodeInvalid,
}

// ErrorCodeFor maps an engine error to its CLI error code.
func ErrorCodeFor(err error) string {
	if code, ok := codeByKind[model.CodeOf(err)]; ok {
		return code
	}
	return ErrCodeGeneric
}

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written to the command output.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError (2) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// IsReported reports whether err was already written to the output.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E101", "E103", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// JSON reports whether output is machine-readable.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail writes err in the configured format and returns it as a reported
// ExitError with exit status ExitCommandError.
func (f *OutputFormatter) Fail(err error) error {
	return f.FailWith(ExitCommandError, ErrorCodeFor(err), err)
}

// FailWith is Fail with an explicit exit status and error code.
func (f *OutputFormatter) FailWith(exit int, code string, err error) error {
	var details interface{}
	var e *model.Error
	if errors.As(err, &e) {
		d := map[string]interface{}{"kind": string(e.Code)}
		if e.Op != "" {
			d["op"] = e.Op
		}
		if e.ID != "" {
			d["unit"] = e.ID
		}
		if e.Line > 0 {
			d["line"] = e.Line
		}
		details = d
	}
	_ = f.Error(code, err.Error(), details)
	return &ExitError{Code: exit, Message: code, Err: err, Reported: true}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
