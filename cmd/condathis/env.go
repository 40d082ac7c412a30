// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c1au6i0/condathis/internal/mamba"
	"github.com/c1au6i0/condathis/pkg/types"
)

const (
	opCreateEnv    = "create environment"
	opRemoveEnv    = "remove environment"
	opListEnvs     = "list environments"
	opListPackages = "list packages"
	opExportEnv    = "export environment"
)

// createEnvParams carries create-env's flags so that runCreateEnv can be
// tested without cobra.
type createEnvParams struct {
	env       string
	packages  []string
	file      string
	channels  []string
	platform  string
	overwrite bool
	verbosity string
}

func newCreateEnvCommand(app *App) *cobra.Command {
	var p createEnvParams
	cmd := &cobra.Command{
		Use:   "create-env [packages...]",
		Short: "Create a named environment",
		Long: `Create a named environment from package specs, an environment file, or both.

An environment that already exists is left alone unless --overwrite is given.`,
		Example: `  condathis create-env -n samtools-env samtools=1.21 htslib
  condathis create-env -n qc -f environment.yml
  condathis create-env -n tools -c conda-forge --platform osx-64 ripgrep`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.packages = args
			return runCreateEnv(cmd.Context(), app, p)
		},
	}
	addEnvFlag(cmd, &p.env)
	cmd.Flags().StringVarP(&p.file, "file", "f", "", "environment YAML file")
	cmd.Flags().StringArrayVarP(&p.channels, "channel", "c", nil, "channel to search, repeatable (replaces configured channels)")
	cmd.Flags().StringVar(&p.platform, "platform", "", "conda platform to install for, e.g. osx-64")
	cmd.Flags().BoolVar(&p.overwrite, "overwrite", false, "remove and recreate an existing environment")
	addVerbosityFlag(cmd, &p.verbosity)
	return cmd
}

func runCreateEnv(ctx context.Context, app *App, p createEnvParams) error {
	s, err := app.session(ctx)
	if err != nil {
		return app.fail(nil, opCreateEnv, p.env, err)
	}
	v, err := mamba.ParseVerbosity(p.verbosity)
	if err != nil {
		return app.fail(s, opCreateEnv, p.env, err)
	}

	res, err := s.client.CreateEnv(ctx, mamba.CreateRequest{
		Packages:  p.packages,
		EnvFile:   p.file,
		EnvName:   types.EnvName(p.env),
		Channels:  p.channels,
		Platform:  p.platform,
		Overwrite: p.overwrite,
		Verbosity: v,
	})
	if err != nil {
		return app.fail(s, opCreateEnv, p.env, err)
	}
	name, err := s.client.EnvDir(types.EnvName(p.env))
	if err != nil {
		return app.fail(s, opCreateEnv, p.env, err)
	}
	if res.Skipped {
		app.printf("%s Environment %s already exists (use --overwrite to recreate)\n", WarningStyle.Render("!"), CmdStyle.Render(name))
		return nil
	}
	app.printf("%s Created environment %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name))
	return nil
}

func newRemoveEnvCommand(app *App) *cobra.Command {
	var env, verbosity string
	cmd := &cobra.Command{
		Use:   "remove-env",
		Short: "Remove a named environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return app.fail(nil, opRemoveEnv, env, err)
			}
			v, err := mamba.ParseVerbosity(verbosity)
			if err != nil {
				return app.fail(s, opRemoveEnv, env, err)
			}
			if _, err := s.client.RemoveEnv(cmd.Context(), types.EnvName(env), v); err != nil {
				return app.fail(s, opRemoveEnv, env, err)
			}
			dir, err := s.client.EnvDir(types.EnvName(env))
			if err != nil {
				return app.fail(s, opRemoveEnv, env, err)
			}
			app.printf("%s Removed environment %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(dir))
			return nil
		},
	}
	addEnvFlag(cmd, &env)
	addVerbosityFlag(cmd, &verbosity)
	return cmd
}

func newListEnvsCommand(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list-envs",
		Short: "List environments managed by condathis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return app.fail(nil, opListEnvs, "", err)
			}
			names, err := s.client.ListEnvs(cmd.Context())
			if err != nil {
				return app.fail(s, opListEnvs, s.layout.EnvsDir(), err)
			}
			if asJSON {
				return app.writeJSON(names)
			}
			for _, n := range names {
				app.println(n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array")
	return cmd
}

func newListPackagesCommand(app *App) *cobra.Command {
	var (
		env    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list-packages",
		Short: "List packages installed in an environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return app.fail(nil, opListPackages, env, err)
			}
			pkgs, err := s.client.ListPackages(cmd.Context(), types.EnvName(env))
			if err != nil {
				return app.fail(s, opListPackages, env, err)
			}
			if asJSON {
				return app.writeJSON(pkgs)
			}
			return app.writeTable([]string{"NAME", "VERSION", "BUILD", "CHANNEL"}, packageRows(pkgs))
		},
	}
	addEnvFlag(cmd, &env)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON records")
	return cmd
}

func packageRows(pkgs []mamba.Package) [][]string {
	rows := make([][]string, len(pkgs))
	for i, p := range pkgs {
		rows[i] = []string{p.Name, p.Version, p.BuildString, p.Channel}
	}
	return rows
}

func newEnvExistsCommand(app *App) *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "env-exists",
		Short: "Report whether an environment exists (exit status 0 or 1)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return app.fail(nil, "check environment", env, err)
			}
			exists := s.client.EnvExists(types.EnvName(env))
			app.println(exists)
			if !exists {
				app.setExitCode(1)
			}
			return nil
		},
	}
	addEnvFlag(cmd, &env)
	return cmd
}

func newEnvDirCommand(app *App) *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "env-dir",
		Short: "Print an environment's directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return app.fail(nil, "locate environment", env, err)
			}
			dir, err := s.client.EnvDir(types.EnvName(env))
			if err != nil {
				return app.fail(s, "locate environment", env, err)
			}
			app.println(dir)
			return nil
		},
	}
	addEnvFlag(cmd, &env)
	return cmd
}

func newExportEnvCommand(app *App) *cobra.Command {
	var env, format string
	cmd := &cobra.Command{
		Use:   "export-env",
		Short: "Print an environment's specification",
		Long: `Print an environment's specification as YAML (usable with create-env -f)
or JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return app.fail(nil, opExportEnv, env, err)
			}
			spec, err := s.client.ExportEnv(cmd.Context(), types.EnvName(env))
			if err != nil {
				return app.fail(s, opExportEnv, env, err)
			}
			switch strings.ToLower(format) {
			case "json":
				return app.writeJSON(spec)
			case "yaml", "yml":
				out, err := yaml.Marshal(spec)
				if err != nil {
					return err
				}
				_, err = app.stdout.Write(out)
				return err
			default:
				return fmt.Errorf("unknown format %q (valid: yaml, json)", format)
			}
		},
	}
	addEnvFlag(cmd, &env)
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}

func addEnvFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "env", "n", "", "environment name (default from config default_env)")
}

func addVerbosityFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "verbose", "", "verbosity: silent, cmd, output, full (default from config)")
}

// writeJSON prints v as indented JSON.
func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
