// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/c1au6i0/condathis/pkg/platform"
)

// DefaultEnvName is the environment used when callers do not name one.
const DefaultEnvName EnvName = "condathis-env"

// ErrInvalidEnvName is the sentinel error wrapped by InvalidEnvNameError.
var ErrInvalidEnvName = errors.New("invalid environment name")

type (
	// EnvName names a micromamba environment. It becomes a directory under
	// the installation's envs/ directory, so it must be a single path
	// element: non-empty, no separators, no leading dot, no whitespace, and
	// not a Windows device name.
	EnvName string

	// InvalidEnvNameError is returned when an EnvName fails validation.
	InvalidEnvNameError struct {
		Value  EnvName
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidEnvNameError) Error() string {
	return fmt.Sprintf("invalid environment name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidEnvName for errors.Is.
func (e *InvalidEnvNameError) Unwrap() error { return ErrInvalidEnvName }

// String returns the name.
func (n EnvName) String() string { return string(n) }

// Validate checks that the name can be used as an environment directory.
func (n EnvName) Validate() error {
	s := string(n)
	switch {
	case s == "":
		return &InvalidEnvNameError{Value: n, Reason: "must not be empty"}
	case strings.ContainsAny(s, `/\:`):
		return &InvalidEnvNameError{Value: n, Reason: "must not contain path separators"}
	case strings.HasPrefix(s, "."):
		return &InvalidEnvNameError{Value: n, Reason: "must not start with a dot"}
	case strings.IndexFunc(s, isSpaceOrControl) != -1:
		return &InvalidEnvNameError{Value: n, Reason: "must not contain whitespace or control characters"}
	case platform.IsReservedName(s):
		return &InvalidEnvNameError{Value: n, Reason: "is a reserved device name"}
	}
	return nil
}

// Or returns n, or def when n is empty.
func (n EnvName) Or(def EnvName) EnvName {
	if n == "" {
		return def
	}
	return n
}

func isSpaceOrControl(r rune) bool {
	return r <= ' ' || r == 0x7f
}
