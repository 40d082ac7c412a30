// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/c1au6i0/condathis/internal/installer"
	"github.com/c1au6i0/condathis/internal/mamba"
	"github.com/c1au6i0/condathis/pkg/platform"
)

const opInstall = "install micromamba"

// installParams bundles the install command's flags.
type installParams struct {
	version string
	force   bool
	timeout string
	asJSON  bool
}

func newInstallCommand(app *App) *cobra.Command {
	var p installParams
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the micromamba binary",
		Long: `Install the micromamba binary into the installation directory.

Other commands do this automatically on first use. An existing binary is
kept unless --force is given.`,
		Example: `  condathis install
  condathis install --version latest --force
  condathis install --version 2.0.5-0 --timeout 2m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), app, p)
		},
	}
	cmd.Flags().StringVar(&p.version, "version", "", "micromamba release, e.g. 2.0.5-0 or latest (default from config)")
	cmd.Flags().BoolVar(&p.force, "force", false, "reinstall even if a binary exists")
	cmd.Flags().StringVar(&p.timeout, "timeout", "", "abort the install after this duration (default from config)")
	cmd.Flags().BoolVar(&p.asJSON, "json", false, "print the install result as JSON")
	return cmd
}

func runInstall(ctx context.Context, app *App, p installParams) error {
	s, err := app.session(ctx)
	if err != nil {
		return app.fail(nil, opInstall, p.version, err)
	}

	timeout, err := durationFlag("timeout", p.timeout)
	if err != nil {
		return app.fail(s, opInstall, p.version, err)
	}
	if timeout == 0 {
		if timeout, err = s.cfg.InstallTimeoutDuration(); err != nil {
			return app.fail(s, opInstall, p.version, err)
		}
	}

	res, err := s.installer.Install(ctx, installer.InstallRequest{
		Version: p.version,
		Force:   p.force,
		Timeout: timeout,
	})
	if err != nil {
		return app.fail(s, opInstall, s.installer.BinPath(), err)
	}

	switch {
	case p.asJSON:
		return app.writeJSON(res)
	case res.Skipped:
		app.printf("%s micromamba already installed at %s (use --force to reinstall)\n", WarningStyle.Render("!"), CmdStyle.Render(res.Path))
	default:
		verified := ""
		if res.Verified {
			verified = ", checksum verified"
		}
		app.printf("%s Installed micromamba %s at %s (%s%s)\n",
			SuccessStyle.Render("✓"), res.Version, CmdStyle.Render(res.Path), res.Artifact, verified)
	}
	return nil
}

func newCleanCacheCommand(app *App) *cobra.Command {
	var verbosity string
	cmd := &cobra.Command{
		Use:   "clean-cache",
		Short: "Remove micromamba's package cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return app.fail(nil, "clean cache", "", err)
			}
			v, err := mamba.ParseVerbosity(verbosity)
			if err != nil {
				return app.fail(s, "clean cache", "", err)
			}
			if _, err := s.client.CleanCache(cmd.Context(), v); err != nil {
				return app.fail(s, "clean cache", s.layout.PkgsDir(), err)
			}
			app.printf("%s Cleaned package cache %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(s.layout.PkgsDir()))
			return nil
		},
	}
	addVerbosityFlag(cmd, &verbosity)
	return cmd
}

func newInstallDirCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "install-dir",
		Short: "Print the installation directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return app.fail(nil, "resolve installation directory", "", err)
			}
			app.println(s.layout.Root)
			return nil
		},
	}
}

func newSysArchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sys-arch",
		Short: "Print the conda platform of this machine, e.g. linux-64",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subdir, err := platform.SysArch()
			if err != nil {
				return app.fail(nil, "detect platform", "", err)
			}
			app.println(subdir)
			return nil
		},
	}
}
