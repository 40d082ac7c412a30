// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const (
	// VerbositySilent echoes nothing.
	VerbositySilent Verbosity = "silent"
	// VerbosityCmd echoes the command line only.
	VerbosityCmd Verbosity = "cmd"
	// VerbosityOutput streams the child's output live.
	VerbosityOutput Verbosity = "output"
	// VerbosityFull echoes the command line and streams output.
	VerbosityFull Verbosity = "full"
)

// ErrInvalidVerbosity is the sentinel error wrapped by InvalidVerbosityError.
var ErrInvalidVerbosity = errors.New("invalid verbosity")

type (
	// Verbosity controls what an invocation shows on the console. It never
	// changes what is captured or returned. The zero value defers to the
	// client's default.
	Verbosity string

	// InvalidVerbosityError is returned when a Verbosity value is not recognized.
	InvalidVerbosityError struct {
		Value Verbosity
	}
)

// Error implements the error interface.
func (e *InvalidVerbosityError) Error() string {
	return fmt.Sprintf("invalid verbosity %q (valid: silent, cmd, output, full)", e.Value)
}

// Unwrap returns ErrInvalidVerbosity for errors.Is.
func (e *InvalidVerbosityError) Unwrap() error { return ErrInvalidVerbosity }

// ParseVerbosity validates s. The empty string is accepted and means "default".
func ParseVerbosity(s string) (Verbosity, error) {
	v := Verbosity(strings.ToLower(strings.TrimSpace(s)))
	if err := v.Validate(); err != nil {
		return "", err
	}
	return v, nil
}

// Validate reports whether v is empty or one of the defined levels.
func (v Verbosity) Validate() error {
	switch v {
	case "", VerbositySilent, VerbosityCmd, VerbosityOutput, VerbosityFull:
		return nil
	default:
		return &InvalidVerbosityError{Value: v}
	}
}

// String returns the level name.
func (v Verbosity) String() string { return string(v) }

// Or returns v, or def when v is empty.
func (v Verbosity) Or(def Verbosity) Verbosity {
	if v == "" {
		return def
	}
	return v
}

// EchoesCommand reports whether the command line is printed before running.
func (v Verbosity) EchoesCommand() bool {
	return v == VerbosityCmd || v == VerbosityFull
}

// StreamsOutput reports whether stdout and stderr are teed to the console.
func (v Verbosity) StreamsOutput() bool {
	return v == VerbosityOutput || v == VerbosityFull
}

// CommandLine renders argv as a shell-quoted line for display, so that a
// user can paste it into bash.
func CommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			// Only strings with NUL bytes are unquotable.
			q = fmt.Sprintf("%q", a)
		}
		parts[i] = q
	}
	return strings.Join(parts, " ")
}
