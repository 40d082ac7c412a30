// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/c1au6i0/condathis/internal/installer"
	"github.com/c1au6i0/condathis/internal/issue"
	"github.com/c1au6i0/condathis/internal/mamba"
	"github.com/c1au6i0/condathis/pkg/platform"
	"github.com/c1au6i0/condathis/pkg/types"
)

func TestUserError_Classification(t *testing.T) {
	t.Parallel()

	failed := &mamba.CommandError{Argv: []string{"micromamba", "create"}, ExitCode: 1}

	tests := []struct {
		name      string
		operation string
		err       error
		want      issue.Id
	}{
		{"rate limit", opInstall, &installer.RateLimitError{Limit: 60}, issue.ReleaseRateLimitedId},
		{"platform", opInstall, fmt.Errorf("detect: %w", platform.ErrUnsupportedPlatform), issue.UnsupportedPlatformId},
		{"checksum", opInstall, fmt.Errorf("%w: bad", installer.ErrChecksumMismatch), issue.MicromambaInstallFailedId},
		{"release", opInstall, fmt.Errorf("%w: x", installer.ErrReleaseNotFound), issue.MicromambaInstallFailedId},
		{"extract", opInstall, installer.ErrExtractFailed, issue.MicromambaInstallFailedId},
		{"env not found", opRun, &mamba.EnvNotFoundError{Name: "ghost"}, issue.EnvNotFoundId},
		{"binary not found", opRun, &mamba.BinaryNotFoundError{Env: "tools", Path: "samtools"}, issue.BinaryNotFoundId},
		{"missing argument", opRun, fmt.Errorf("%w: command", mamba.ErrMissingArgument), issue.MissingArgumentId},
		{"env name", opCreateEnv, fmt.Errorf("%w", types.ErrInvalidEnvName), issue.MissingArgumentId},
		{"create failed", opCreateEnv, failed, issue.EnvCreateFailedId},
		{"run failed", opRun, failed, issue.CommandFailedId},
		{"other", opRun, errors.New("boom"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := userError(tt.operation, "res", tt.err)
			ae, ok := issue.As(got)
			if !ok {
				t.Fatalf("userError() = %T, want *issue.ActionableError", got)
			}
			if ae.Issue != tt.want {
				t.Errorf("Issue = %v, want %v", ae.Issue, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("userError() lost the cause")
			}
			if !strings.HasPrefix(got.Error(), "failed to "+tt.operation+": res: ") {
				t.Errorf("Error() = %q", got.Error())
			}
		})
	}
}

func TestUserError_KeepsActionableErrors(t *testing.T) {
	t.Parallel()

	if userError(opRun, "x", nil) != nil {
		t.Error("userError(nil) != nil")
	}

	orig := issue.NewErrorContext().WithOperation("load configuration").Wrap(errors.New("bad")).BuildError()
	if got := userError(opRun, "x", orig); got != orig {
		t.Errorf("userError() rewrapped an actionable error: %v", got)
	}
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"exit error", &ExitError{Code: 124}, 124},
		{"command error", fmt.Errorf("wrapped: %w", &mamba.CommandError{ExitCode: 3}), 3},
		{"command error zero", &mamba.CommandError{ExitCode: 0}, 1},
	}
	for _, tt := range tests {
		if got := exitCodeFor(tt.err); got != tt.want {
			t.Errorf("%s: exitCodeFor() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestExitError_FormatsSuggestions(t *testing.T) {
	t.Parallel()

	err := &ExitError{Code: 1, Err: userError(opRun, "ghost", &mamba.EnvNotFoundError{Name: "ghost"})}
	msg := err.Error()
	if !strings.Contains(msg, `environment "ghost" not found`) {
		t.Errorf("Error() = %q", msg)
	}
	if !strings.Contains(msg, "condathis list-envs") {
		t.Errorf("Error() lacks the suggestion: %q", msg)
	}

	if got := (&ExitError{Code: 2}).Error(); got != "exit status 2" {
		t.Errorf("Error() = %q", got)
	}
}

func TestRenderIssue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderIssue(&buf, errors.New("plain"), "notty", nil)
	if buf.Len() != 0 {
		t.Errorf("plain errors should render nothing, got %q", buf.String())
	}

	renderIssue(&buf, userError(opRun, "ghost", &mamba.EnvNotFoundError{Name: "ghost"}), "notty", nil)
	if buf.Len() == 0 {
		t.Error("catalog entry was not rendered")
	}
}

func TestExitError_PlainActionableError(t *testing.T) {
	t.Parallel()

	ae := issue.WrapWithOperation(errors.New("disk full"), "encode configuration as TOML")
	err := &ExitError{Code: 1, Err: ae}
	if got, want := err.Error(), ae.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestRenderIssue_ConfigLoadFailure(t *testing.T) {
	t.Parallel()

	cfgErr := issue.NewErrorContext().
		WithOperation("load configuration").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(errors.New("config file not found")).
		BuildError()

	var buf bytes.Buffer
	renderIssue(&buf, userError(opRun, "", cfgErr), "notty", nil)
	if !strings.Contains(buf.String(), "Failed to load configuration") {
		t.Errorf("rendered = %q", buf.String())
	}
}
