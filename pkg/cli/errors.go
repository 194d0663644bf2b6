package cli

import (
	"errors"
	"fmt"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/config"
	"formarter/compliance/pkg/library"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitConfig    = 2
	ExitNotFound  = 3
	ExitThreshold = 4
)

// ErrBelowThreshold is returned when an audit score is under the
// requested minimum.
var ErrBelowThreshold = errors.New("score below threshold")

// ConfigError represents an error in configuration or flags.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error to the process exit code. Lookups that resolve
// nothing exit with ExitNotFound, distinct from a completed audit.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigError
	var verr config.ValidationError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &verr):
		return ExitConfig
	case errors.Is(err, library.ErrDocumentNotFound),
		errors.Is(err, library.ErrCollectionNotFound),
		errors.Is(err, audit.ErrSessionNotFound),
		errors.Is(err, checklist.ErrRuleNotFound):
		return ExitNotFound
	case errors.Is(err, ErrBelowThreshold):
		return ExitThreshold
	}
	return ExitError
}
