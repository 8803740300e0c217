package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dbarchive/internal/archive"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Archive operation failed (object not found, tree partially failed, etc.)
	ExitCommandError = 2 // Command error (bad arguments, unreachable database, unknown type)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
	Format  string
	Writer  io.Writer
	Verbose bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // archive error code, e.g. "NOT_FOUND"
	Message string `json:"message"`           // human-readable message
	Query   string `json:"query,omitempty"`   // failing SQL statement, if any
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result. In text mode strings are printed as
// they are and everything else is rendered as YAML.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if s, ok := data.(string); ok {
		_, err := fmt.Fprintln(f.Writer, s)
		return err
	}
	enc := yaml.NewEncoder(f.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// Error outputs err in the configured format. Archive errors report their
// code and the failing statement.
func (f *OutputFormatter) Error(err error) error {
	cliErr := &CLIError{Code: "ERROR", Message: err.Error()}
	if code := archive.CodeOf(err); code != "" {
		cliErr.Code = string(code)
	}
	cliErr.Query = archive.LastQuery(err)

	var treeErr *archive.TreeError
	if errors.As(err, &treeErr) {
		cliErr.Details = map[string]int{"failed": treeErr.Failed, "total": treeErr.Total}
	}

	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  cliErr,
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", cliErr.Code, cliErr.Message)
	if f.Verbose && cliErr.Query != "" {
		fmt.Fprintf(f.Writer, "Query: %s\n", cliErr.Query)
	}
	if f.Verbose && cliErr.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", cliErr.Details)
	}
	return nil
}
