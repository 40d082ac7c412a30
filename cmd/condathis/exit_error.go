// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/c1au6i0/condathis/internal/issue"
	"github.com/c1au6i0/condathis/pkg/types"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE
// handlers.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError. Actionable errors include
// their suggestions.
func (e *ExitError) Error() string {
	if ae, ok := issue.As(e.Err); ok && ae.HasSuggestions() {
		return ae.Format(false)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
