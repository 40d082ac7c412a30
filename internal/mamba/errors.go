// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"errors"
	"fmt"
	"strings"

	"github.com/c1au6i0/condathis/pkg/types"
)

var (
	// ErrMissingArgument reports a required input that was not supplied.
	ErrMissingArgument = errors.New("missing required argument")
	// ErrEnvNotFound reports an environment that does not exist.
	ErrEnvNotFound = errors.New("environment not found")
	// ErrBinaryNotFound reports an executable missing from an environment.
	ErrBinaryNotFound = errors.New("executable not found in environment")
	// ErrInvalidEnvFile reports an environment file that is unreadable or not YAML.
	ErrInvalidEnvFile = errors.New("invalid environment file")
	// ErrCommandFailed is wrapped by CommandError.
	ErrCommandFailed = errors.New("command failed")
	// ErrUnexpectedOutput reports micromamba output that could not be decoded.
	ErrUnexpectedOutput = errors.New("unexpected micromamba output")
)

type (
	// EnvNotFoundError names the missing environment. It wraps ErrEnvNotFound.
	EnvNotFoundError struct {
		Name types.EnvName
	}

	// BinaryNotFoundError names the missing executable. It wraps ErrBinaryNotFound.
	BinaryNotFoundError struct {
		Env  types.EnvName
		Path string
	}

	// CommandError is returned for a non-zero exit under the cancel policy.
	// The accompanying Result is still returned to the caller.
	CommandError struct {
		Argv       []string
		ExitCode   types.ExitCode
		StderrTail string
	}
)

// Error implements the error interface.
func (e *EnvNotFoundError) Error() string {
	return fmt.Sprintf("environment %q not found", e.Name)
}

// Unwrap returns ErrEnvNotFound for errors.Is.
func (e *EnvNotFoundError) Unwrap() error { return ErrEnvNotFound }

// Error implements the error interface.
func (e *BinaryNotFoundError) Error() string {
	return fmt.Sprintf("%s not found in environment %q", e.Path, e.Env)
}

// Unwrap returns ErrBinaryNotFound for errors.Is.
func (e *BinaryNotFoundError) Unwrap() error { return ErrBinaryNotFound }

// Error summarises the failure; the stderr tail follows on later lines.
func (e *CommandError) Error() string {
	name := "command"
	if len(e.Argv) > 0 {
		name = e.Argv[0]
	}
	msg := fmt.Sprintf("%s exited with status %d", name, e.ExitCode)
	if tail := strings.TrimSpace(e.StderrTail); tail != "" {
		msg += ":\n" + tail
	}
	return msg
}

// Unwrap returns ErrCommandFailed for errors.Is.
func (e *CommandError) Unwrap() error { return ErrCommandFailed }

func missing(what string) error {
	return fmt.Errorf("%w: %s", ErrMissingArgument, what)
}
