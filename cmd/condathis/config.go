// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/c1au6i0/condathis/internal/config"
	"github.com/c1au6i0/condathis/internal/issue"
)

const opLoadConfig = "load configuration"

// newConfigCommand creates the `condathis config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage condathis configuration",
		Long: `Manage condathis configuration.

Configuration is read from config.cue in:
  - Linux: $XDG_CONFIG_HOME/condathis (default ~/.config/condathis)
  - macOS: ~/Library/Application Support/condathis
  - Windows: %LOCALAPPDATA%\condathis

Environment variables prefixed with CONDATHIS_ override file values,
e.g. CONDATHIS_INSTALL_DIR or CONDATHIS_RELEASES_API_URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, format)
		},
	}
	showCmd.Flags().StringVar(&format, "format", "cue", "output format: cue, json, or toml")

	cfgCmd.AddCommand(
		showCmd,
		&cobra.Command{
			Use:   "init",
			Short: "Create a default configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return initConfig(app)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfigPath(app)
			},
		},
	)
	return cfgCmd
}

func showConfig(ctx context.Context, app *App, format string) error {
	loaded, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail(nil, opLoadConfig, app.flags.configPath, err)
	}
	cfg := loaded.Config

	switch strings.ToLower(format) {
	case "cue":
		source := loaded.Path
		if source == "" {
			source = "(defaults)"
		}
		app.printf("// source: %s\n", source)
		app.printf("%s", config.GenerateCUE(cfg))
		return nil
	case "json":
		return app.writeJSON(cfg)
	case "toml":
		out, err := toml.Marshal(cfg)
		if err != nil {
			return issue.WrapWithOperation(err, "encode configuration as TOML")
		}
		_, err = app.stdout.Write(out)
		return err
	default:
		return fmt.Errorf("unknown format %q (valid: cue, json, toml)", format)
	}
}

func initConfig(app *App) error {
	path, created, err := createConfigFile(app.flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		app.printf("%s Configuration already exists at %s\n", WarningStyle.Render("!"), CmdStyle.Render(path))
		return nil
	}
	app.printf("%s Created default configuration at %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
	return nil
}

// createConfigFile writes the default configuration to explicit, or to the
// platform location when explicit is empty. Existing files are kept.
func createConfigFile(explicit string) (string, bool, error) {
	if explicit == "" {
		return config.CreateDefaultConfig("")
	}
	path, exists, err := config.FilePath(config.LoadOptions{ConfigFilePath: explicit})
	if err != nil || exists {
		return path, false, err
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return "", false, err
	}
	return path, true, nil
}

func showConfigPath(app *App) error {
	path, exists, err := config.FilePath(config.LoadOptions{ConfigFilePath: app.flags.configPath})
	if err != nil {
		return issue.WrapWithOperation(err, "locate configuration file")
	}
	app.println(path)
	if !exists {
		fmt.Fprintln(app.stderr, SubtitleStyle.Render("(file does not exist; defaults apply)"))
	}
	return nil
}
