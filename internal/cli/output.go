package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/letwinventory/harnessgraph/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected command (validation, state, cycle) or failed scenario
	ExitCommandError = 2 // Command error (bad flags, database unavailable, internal failure)
)

// ErrCodeGeneric is the CLI error code for failures outside the engine.
// Document load failures use the docload codes (E001-E005).
const ErrCodeGeneric = "E000"

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is true when the error was already written to the output.
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
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
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
	Status  string      `json:"status"`            // "ok" or "error"
	Data    any `json:"data,omitempty"`    // success payload
	Error   *CLIError   `json:"error,omitempty"`   // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // engine code or "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details any `json:"details,omitempty"` // additional context
}

// textRenderer is implemented by results with a custom text form.
type textRenderer interface {
	RenderText(w io.Writer)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	if r, ok := data.(textRenderer); ok {
		r.RenderText(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
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

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// commandErrorDetails is the details payload for a rejected engine command.
type commandErrorDetails struct {
	HarnessID  string            `json:"harnessId,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Validation any               `json:"validation,omitempty"`
}

// CommandError reports an engine error and converts it into an ExitError.
// Domain rejections exit with ExitFailure, internal failures with
// ExitCommandError.
func (f *OutputFormatter) CommandError(op string, err error) error {
	var ee *engine.Error
	if !errors.As(err, &ee) {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, op+" failed", err)
	}

	var details any
	if ee.HarnessID != "" || len(ee.Details) > 0 || len(ee.Validation) > 0 {
		d := commandErrorDetails{HarnessID: ee.HarnessID, Details: ee.Details}
		if len(ee.Validation) > 0 {
			d.Validation = ee.Validation
		}
		details = d
	}
	if f.Format != "json" {
		for _, v := range ee.Validation {
			fmt.Fprintf(f.GetErrWriter(), "  %s\n", v.Error())
		}
	}
	_ = f.Error(string(ee.Code), ee.Message, details)

	code := ExitFailure
	if ee.Code == engine.ErrCodeInternal {
		code = ExitCommandError
	}
	return &ExitError{Code: code, Message: op + " failed", Err: err, Reported: true}
}
