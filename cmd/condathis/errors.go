// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/c1au6i0/condathis/internal/installer"
	"github.com/c1au6i0/condathis/internal/issue"
	"github.com/c1au6i0/condathis/internal/mamba"
	"github.com/c1au6i0/condathis/pkg/platform"
	"github.com/c1au6i0/condathis/pkg/types"
)

// userError attaches operation context, suggestions, and a catalog entry to
// err according to what failed. Errors that already carry context are
// returned unchanged.
func userError(operation, resource string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := issue.As(err); ok {
		return err
	}

	ec := issue.NewErrorContext().WithOperation(operation).WithResource(resource).Wrap(err)

	var rateErr *installer.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		ec.WithIssue(issue.ReleaseRateLimitedId).
			WithSuggestion("Set GITHUB_TOKEN (or the variable named by releases.token_env) and retry")
	case errors.Is(err, platform.ErrUnsupportedPlatform):
		ec.WithIssue(issue.UnsupportedPlatformId)
	case errors.Is(err, installer.ErrChecksumMismatch):
		ec.WithIssue(issue.MicromambaInstallFailedId).
			WithSuggestion("The download was corrupted or tampered with; retry with 'condathis install --force'")
	case errors.Is(err, installer.ErrReleaseNotFound), errors.Is(err, installer.ErrInvalidVersion):
		ec.WithIssue(issue.MicromambaInstallFailedId).
			WithSuggestion("Check micromamba_version against https://github.com/mamba-org/micromamba-releases/releases")
	case errors.Is(err, installer.ErrAssetNotFound), errors.Is(err, installer.ErrExtractFailed):
		ec.WithIssue(issue.MicromambaInstallFailedId)
	case errors.Is(err, mamba.ErrEnvNotFound):
		ec.WithIssue(issue.EnvNotFoundId).
			WithSuggestion("Run 'condathis list-envs' to see existing environments")
	case errors.Is(err, mamba.ErrBinaryNotFound):
		ec.WithIssue(issue.BinaryNotFoundId).
			WithSuggestion("Run 'condathis list-packages' to see what the environment provides")
	case errors.Is(err, mamba.ErrMissingArgument), errors.Is(err, mamba.ErrInvalidEnvFile),
		errors.Is(err, types.ErrInvalidEnvName), errors.Is(err, mamba.ErrInvalidVerbosity),
		errors.Is(err, mamba.ErrInvalidErrorPolicy):
		ec.WithIssue(issue.MissingArgumentId)
	case errors.Is(err, mamba.ErrCommandFailed) && operation == opCreateEnv:
		ec.WithIssue(issue.EnvCreateFailedId).
			WithSuggestion("Check the package names and channels, e.g. 'micromamba search -c bioconda <pkg>'")
	case errors.Is(err, mamba.ErrCommandFailed):
		ec.WithIssue(issue.CommandFailedId)
	}
	return ec.BuildError()
}

// renderIssue prints the catalog entry linked to err, if any.
func renderIssue(w io.Writer, err error, style string, logger *log.Logger) {
	ae, ok := issue.As(err)
	if !ok || ae.Issue == 0 {
		return
	}
	entry := issue.Get(ae.Issue)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(style)
	if renderErr != nil {
		if logger != nil {
			logger.Warn("failed to render issue catalog entry", "issue", ae.Issue, "err", renderErr)
		}
		return
	}
	fmt.Fprint(w, rendered)
}

// exitCodeFor maps an error to the process exit status.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}
	var ce *mamba.CommandError
	if errors.As(err, &ce) && !ce.ExitCode.IsSuccess() {
		return int(ce.ExitCode)
	}
	return 1
}
