// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error handling shared by all CLI commands.
//
// PATTERN:
//   - Commands return errors, they never print and return nil
//   - The Handle* entry points display the error and choose the exit code
//   - Backend failures keep their api.Error so the exit code follows the kind

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/taxease-tui/internal/api"
	"github.com/jeranaias/taxease-tui/internal/config"
	"github.com/jeranaias/taxease-tui/internal/controller"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage, arguments or config values
	ExitUsageError = 2
	// ExitNotReady indicates the backend is unreachable or not healthy
	ExitNotReady = 3
	// ExitAuthError indicates missing or rejected credentials
	ExitAuthError = 4
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "conversations")
	Action  string // Action being performed (e.g., "export")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrNotLoggedIn is returned by commands that need stored credentials.
var ErrNotLoggedIn = errors.New("not logged in; run `taxease login` first")

// errBackendNotReady is returned when the health gate refuses to open.
var errBackendNotReady = errors.New("TaxEase AI backend is not ready")

// =============================================================================
// ERROR CONSTRUCTION HELPERS
// =============================================================================

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// ErrUnsupportedFormat creates an error for unsupported formats.
func ErrUnsupportedFormat(format string, supportedFormats []string) error {
	return NewValidationErrorWithExample("format", format, "unsupported format",
		fmt.Sprintf("supported formats: %v", supportedFormats))
}

// =============================================================================
// ERROR DISPLAY HELPERS
// =============================================================================

// DisplayError displays an error in a consistent format.
// In JSON mode, outputs a structured JSON error on stdout.
func DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(err)
		return
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	fmt.Fprintln(os.Stderr)
}

// DisplayErrorJSON outputs an error as JSON.
func DisplayErrorJSON(err error) {
	output := map[string]interface{}{
		"error":   err.Error(),
		"success": false,
	}

	var (
		cmdErr  *CommandError
		valErr  *ValidationError
		nfErr   *NotFoundError
		apiErr  *api.Error
		cfgErrs config.ValidateErrors
	)
	switch {
	case errors.As(err, &valErr):
		output["error_type"] = "validation_error"
		output["field"] = valErr.Field
		output["value"] = valErr.Value
		output["reason"] = valErr.Reason
		if valErr.Example != "" {
			output["example"] = valErr.Example
		}
	case errors.As(err, &nfErr):
		output["error_type"] = "not_found_error"
		output["resource"] = nfErr.Resource
		output["id"] = nfErr.ID
	case errors.As(err, &apiErr):
		output["error_type"] = "api_error"
		output["kind"] = apiErr.Kind.String()
		if apiErr.Status != 0 {
			output["status"] = apiErr.Status
		}
		if apiErr.Detail != "" {
			output["detail"] = apiErr.Detail
		}
	case errors.As(err, &cfgErrs):
		output["error_type"] = "config_error"
		output["problems"] = len(cfgErrs)
	case errors.As(err, &cmdErr):
		output["error_type"] = "command_error"
		output["command"] = cmdErr.Command
		output["action"] = cmdErr.Action
		output["reason"] = cmdErr.Reason
	default:
		output["error_type"] = "generic_error"
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}

// HandleErrorAndExit displays an error and exits with its exit code.
func HandleErrorAndExit(err error, jsonMode bool) {
	if err == nil {
		return
	}
	DisplayError(err, jsonMode)
	os.Exit(GetExitCode(err))
}

// GetExitCode determines the exit code for an error:
//   - ExitUsageError (2): ValidationError, invalid config, backend validation
//   - ExitNotReady (3): backend unreachable or unhealthy
//   - ExitAuthError (4): not logged in, rejected credentials
//   - ExitGeneralError (1): everything else
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}
	var cfgErrs config.ValidateErrors
	if errors.As(err, &cfgErrs) {
		return ExitUsageError
	}

	if errors.Is(err, ErrNotLoggedIn) {
		return ExitAuthError
	}
	if errors.Is(err, errBackendNotReady) || errors.Is(err, controller.ErrNotReady) {
		return ExitNotReady
	}

	switch api.KindOf(err) {
	case api.KindUnauthorized:
		return ExitAuthError
	case api.KindNetwork:
		return ExitNotReady
	case api.KindValidation:
		return ExitUsageError
	}
	return ExitGeneralError
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
