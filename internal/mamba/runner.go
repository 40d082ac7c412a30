// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/c1au6i0/condathis/internal/logging"
	"github.com/c1au6i0/condathis/pkg/types"
)

// waitDelay bounds how long Exec waits for output pipes after the child is
// killed, so grandchildren holding them open cannot hang the call.
const waitDelay = 2 * time.Second

type (
	// Invocation is one process to spawn.
	Invocation struct {
		// Path is the executable.
		Path string
		// Args excludes the executable.
		Args []string
		// Display replaces Path in the echoed command line, e.g. "micromamba".
		Display string
		// Dir is the working directory; empty inherits the caller's.
		Dir string
		// Stdout and Stderr default to in-memory capture.
		Stdout Sink
		Stderr Sink
		// StdinPath feeds the child from a file; empty means no input.
		StdinPath string
		// Verbosity controls echo and live output only.
		Verbosity Verbosity
		// Policy decides whether a non-zero exit is returned as an error.
		Policy ErrorPolicy
		// Timeout kills the child after this long; zero means none.
		Timeout time.Duration
	}

	// Runner spawns invocations with a scrubbed environment.
	Runner struct {
		// Environ supplies the ambient environment; defaults to os.Environ.
		Environ func() []string
		// Scrub is the removal set applied to Environ's result.
		Scrub []string
		// Echo receives echoed command lines; defaults to os.Stderr.
		Echo io.Writer
		// Console receives live output when verbosity streams it;
		// defaults to os.Stdout and os.Stderr.
		ConsoleOut io.Writer
		ConsoleErr io.Writer
		// EchoStyle decorates echoed command lines.
		EchoStyle lipgloss.Style

		logger *log.Logger
	}
)

// NewRunner returns a Runner using the process environment, scrubbing
// DefaultScrubbedVars plus extra.
func NewRunner(logger *log.Logger, extra ...string) *Runner {
	return &Runner{
		Environ:    os.Environ,
		Scrub:      ScrubSet(extra...),
		Echo:       os.Stderr,
		ConsoleOut: os.Stdout,
		ConsoleErr: os.Stderr,
		EchoStyle:  lipgloss.NewStyle().Faint(true),
		logger:     logging.Component(logger, "runner"),
	}
}

// Exec runs inv to completion.
//
// A non-zero exit yields a *CommandError only under PolicyCancel; the Result
// is returned either way. A timeout sets Result.TimedOut and is never an
// error. Failures to start the process are returned with a nil Result.
func (r *Runner) Exec(ctx context.Context, inv Invocation) (*Result, error) {
	id := uuid.NewString()
	argv := append([]string{inv.Path}, inv.Args...)

	if inv.Verbosity.EchoesCommand() {
		display := argv
		if inv.Display != "" {
			display = append([]string{inv.Display}, inv.Args...)
		}
		fmt.Fprintln(r.echo(), r.EchoStyle.Render("$ "+CommandLine(display)))
	}

	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	stdoutW, stdoutBuf, closeOut, err := inv.Stdout.open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeOut() }()
	// Both streams share one descriptor when they name the same file, so
	// neither truncates the other's output.
	stderrW := stdoutW
	var stderrBuf *bytes.Buffer
	if !inv.Stderr.sameFile(inv.Stdout) {
		var closeErr func() error
		stderrW, stderrBuf, closeErr, err = inv.Stderr.open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = closeErr() }()
	}

	tail := newTailBuffer(stderrTailBytes)
	outWriters := []io.Writer{stdoutW}
	errWriters := []io.Writer{stderrW, tail}
	// A file sink replaces the console for its stream.
	if inv.Verbosity.StreamsOutput() {
		if inv.Stdout.IsCapture() {
			outWriters = append(outWriters, r.consoleOut())
		}
		if inv.Stderr.IsCapture() {
			errWriters = append(errWriters, r.consoleErr())
		}
	}

	cmd := exec.CommandContext(runCtx, inv.Path, inv.Args...)
	cmd.Env = ChildEnviron(r.environ(), r.Scrub)
	cmd.Dir = inv.Dir
	cmd.Stdout = io.MultiWriter(outWriters...)
	cmd.Stderr = io.MultiWriter(errWriters...)
	cmd.WaitDelay = waitDelay

	if inv.StdinPath != "" {
		in, err := os.Open(inv.StdinPath)
		if err != nil {
			return nil, fmt.Errorf("opening stdin file: %w", err)
		}
		defer func() { _ = in.Close() }()
		cmd.Stdin = in
	}

	r.log().Debug("exec", "id", id, "argv", argv, "stdout", inv.Stdout, "stderr", inv.Stderr, "timeout", inv.Timeout)

	start := time.Now()
	runErr := cmd.Run()
	res := &Result{ID: id, Argv: argv, Duration: time.Since(start)}

	if stdoutBuf != nil {
		res.Stdout = stdoutBuf.String()
	}
	if stderrBuf != nil {
		res.Stderr = stderrBuf.String()
	}

	timedOut := inv.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	code, err := exitCodeOf(runErr)
	switch {
	case timedOut:
		res.TimedOut = true
		res.ExitCode = TimeoutExitCode
	case ctx.Err() != nil:
		return nil, fmt.Errorf("running %s: %w", inv.Path, ctx.Err())
	case err != nil:
		r.log().Debug("spawn failed", "id", id, "err", err)
		return nil, fmt.Errorf("running %s: %w", inv.Path, err)
	default:
		res.ExitCode = code
	}

	r.log().Debug("exit", "id", id, "code", res.ExitCode, "timed_out", res.TimedOut, "duration", res.Duration)
	return res, inv.Policy.apply(res, tail.String())
}

// exitCodeOf maps cmd.Run's error to an exit status. Errors other than a
// non-zero exit (executable missing, permission denied, context canceled
// before start) are returned as-is.
func exitCodeOf(err error) (types.ExitCode, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, err
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return types.ExitCode(128 + int(ws.Signal())), nil
	}
	code := types.ExitCode(exitErr.ExitCode())
	if code.Validate() != nil {
		return 1, nil
	}
	return code, nil
}

func (r *Runner) log() *log.Logger {
	if r.logger == nil {
		r.logger = logging.Component(nil, "runner")
	}
	return r.logger
}

func (r *Runner) environ() []string {
	if r.Environ == nil {
		return os.Environ()
	}
	return r.Environ()
}

func (r *Runner) echo() io.Writer {
	if r.Echo == nil {
		return os.Stderr
	}
	return r.Echo
}

func (r *Runner) consoleOut() io.Writer {
	if r.ConsoleOut == nil {
		return os.Stdout
	}
	return r.ConsoleOut
}

func (r *Runner) consoleErr() io.Writer {
	if r.ConsoleErr == nil {
		return os.Stderr
	}
	return r.ConsoleErr
}
