// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"time"

	"github.com/c1au6i0/condathis/pkg/types"
)

// TimeoutExitCode is reported for a process killed by Invocation.Timeout,
// following the timeout(1) convention.
const TimeoutExitCode types.ExitCode = 124

// Result is the outcome of one invocation.
type Result struct {
	// ID correlates the invocation with its log lines.
	ID string `json:"id"`
	// Argv is the executed command line, executable first.
	Argv []string `json:"argv"`
	// ExitCode is the child's exit status; 128+n when killed by signal n.
	ExitCode types.ExitCode `json:"exit_code"`
	// Stdout and Stderr hold captured output. They are empty when the
	// stream was sent to a file.
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	// TimedOut is set when the wall-clock timeout killed the process.
	TimedOut bool `json:"timed_out"`
	// Skipped is set when the operation was a no-op and nothing ran.
	Skipped bool `json:"skipped,omitempty"`
	// Duration is the wall time of the process.
	Duration time.Duration `json:"duration"`
}

// Success reports a zero exit status without a timeout.
func (r *Result) Success() bool {
	return r != nil && !r.TimedOut && r.ExitCode.IsSuccess()
}
