// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the condathis command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/c1au6i0/condathis/internal/logging"
	"github.com/c1au6i0/condathis/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "condathis",
		Short: "Run command-line tools in isolated micromamba environments",
		Long: TitleStyle.Render("condathis") + SubtitleStyle.Render(" - run CLI tools in isolated conda environments") + `

condathis manages a private micromamba installation and the named
environments inside it. Each tool gets its own environment, so version
conflicts between tools never touch your system or each other.

micromamba is downloaded on first use; nothing else needs to be installed.

` + SubtitleStyle.Render("Examples:") + `
  condathis create-env -n samtools-env samtools=1.21
  condathis run -n samtools-env -- samtools --version
  condathis list-envs
  condathis remove-env -n samtools-env`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/condathis/config.cue)")
	pf.StringVar(&app.flags.installDir, "install-dir", "", "installation directory (overrides install_dir)")
	pf.StringVar(&app.flags.logLevel, "log-level", logging.DefaultLevel, "log level: debug, info, warn, error")

	root.AddCommand(
		newCreateEnvCommand(app),
		newRemoveEnvCommand(app),
		newListEnvsCommand(app),
		newListPackagesCommand(app),
		newEnvExistsCommand(app),
		newEnvDirCommand(app),
		newExportEnvCommand(app),
		newRunCommand(app, false),
		newRunCommand(app, true),
		newInstallCommand(app),
		newCleanCacheCommand(app),
		newInstallDirCommand(app),
		newSysArchCommand(app),
		newConfigCommand(app),
	)
	return root
}

// Run executes the CLI with args and returns the process exit status.
func Run(ctx context.Context, args []string, deps Dependencies) int {
	app := NewApp(deps)
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		return exitCodeFor(err)
	}
	return int(app.exitCode)
}

// Execute runs the CLI with the process arguments and exits. It is called
// by main.main.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], Dependencies{}))
}

// setExitCode makes the process exit with code without printing an error.
func (a *App) setExitCode(code types.ExitCode) {
	a.exitCode = code
}

// fail turns err into the ExitError returned from a RunE handler, printing
// the matching issue catalog entry first.
func (a *App) fail(s *session, operation, resource string, err error) error {
	uerr := userError(operation, resource, err)
	logger := logging.Discard()
	if s != nil {
		logger = s.logger
	}
	renderIssue(a.stderr, uerr, s.glamourStyle(), logger)
	return &ExitError{Code: types.ExitCode(exitCodeFor(err)), Err: uerr}
}
