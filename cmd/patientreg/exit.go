package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected input: validation, blocked or invalid statement
	ExitCommandError = 2 // Storage or environment failure
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// exitCode maps err to a process exit code. Errors the user can fix by
// changing the input exit with ExitFailure; everything else is a command error.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var (
		verr *model.ValidationError
		berr *model.BlockedOperationError
		qerr *model.QueryError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &berr), errors.As(err, &qerr):
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// printFailure writes err as a red error line.
func printFailure(w io.Writer, err error) {
	_, _ = color.New(color.FgRed, color.Bold).Fprint(w, "✗ ")
	_, _ = fmt.Fprintln(w, err)
}
