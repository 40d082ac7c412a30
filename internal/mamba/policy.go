// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PolicyCancel turns a non-zero exit into a *CommandError.
	PolicyCancel ErrorPolicy = "cancel"
	// PolicyContinue returns the Result and leaves inspection to the caller.
	PolicyContinue ErrorPolicy = "continue"
)

// ErrInvalidErrorPolicy is the sentinel error wrapped by InvalidErrorPolicyError.
var ErrInvalidErrorPolicy = errors.New("invalid error policy")

type (
	// ErrorPolicy decides whether a non-zero exit status is an error.
	// Timeouts are never errors under either policy. The zero value defers
	// to the client's default.
	ErrorPolicy string

	// InvalidErrorPolicyError is returned when an ErrorPolicy value is not recognized.
	InvalidErrorPolicyError struct {
		Value ErrorPolicy
	}
)

// Error implements the error interface.
func (e *InvalidErrorPolicyError) Error() string {
	return fmt.Sprintf("invalid error policy %q (valid: cancel, continue)", e.Value)
}

// Unwrap returns ErrInvalidErrorPolicy for errors.Is.
func (e *InvalidErrorPolicyError) Unwrap() error { return ErrInvalidErrorPolicy }

// ParseErrorPolicy validates s. The empty string is accepted and means "default".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	p := ErrorPolicy(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Validate reports whether p is empty or a defined policy.
func (p ErrorPolicy) Validate() error {
	switch p {
	case "", PolicyCancel, PolicyContinue:
		return nil
	default:
		return &InvalidErrorPolicyError{Value: p}
	}
}

// String returns the policy name.
func (p ErrorPolicy) String() string { return string(p) }

// Or returns p, or def when p is empty.
func (p ErrorPolicy) Or(def ErrorPolicy) ErrorPolicy {
	if p == "" {
		return def
	}
	return p
}

// apply maps a finished Result onto the policy's error.
func (p ErrorPolicy) apply(res *Result, stderrTail string) error {
	if p != PolicyCancel || res.TimedOut || res.ExitCode.IsSuccess() {
		return nil
	}
	return &CommandError{Argv: res.Argv, ExitCode: res.ExitCode, StderrTail: stderrTail}
}
