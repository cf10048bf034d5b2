package cli

import (
	"errors"
	"fmt"
)

// ErrValidationFailed marks a run that found invalid predicates or failing
// embedded tests.
var ErrValidationFailed = errors.New("validation failed")

// Process exit codes.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitValidation = 2
	ExitConfig     = 3
)

// exitCoder is implemented by errors that choose their own exit code.
type exitCoder interface {
	ExitCode() int
}

// ConfigError is a configuration file that could not be loaded or a
// service that could not be built from it.
type ConfigError struct {
	Path  string
	Cause error
}

// NewConfigError wraps cause with the config file it came from. Path may be
// empty when only defaults were in use.
func NewConfigError(path string, cause error) *ConfigError {
	return &ConfigError{Path: path, Cause: cause}
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "config: " + e.Cause.Error()
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func (e *ConfigError) ExitCode() int { return ExitConfig }

// CommandError names the subcommand an error came from.
type CommandError struct {
	Command string
	Err     error
}

func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

func (e *CommandError) Error() string {
	return e.Command + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode maps err to a process exit code. The outermost error that picks
// a code wins; otherwise ErrValidationFailed anywhere in the chain gives
// ExitValidation and anything else ExitError.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	if errors.Is(err, ErrValidationFailed) {
		return ExitValidation
	}
	return ExitError
}
