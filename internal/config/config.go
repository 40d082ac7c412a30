// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/c1au6i0/condathis/internal/issue"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "condathis"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variables that override config keys,
	// e.g. CONDATHIS_INSTALL_DIR or CONDATHIS_RELEASES_OWNER.
	EnvPrefix = "CONDATHIS"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the condathis configuration directory: $XDG_CONFIG_HOME
// on Linux, ~/Library/Application Support on macOS, %APPDATA% on Windows.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	if xdg.ConfigHome == "" {
		return "", errors.New("failed to determine user config directory")
	}
	return filepath.Join(xdg.ConfigHome, AppName), nil
}

// FilePath returns the config file that Load would read for opts, and
// whether it exists.
func FilePath(opts LoadOptions) (string, bool, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, fileExists(opts.ConfigFilePath), nil
	}
	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", false, err
	}
	p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	return p, fileExists(p), nil
}

// newViper returns a viper instance seeded with defaults and bound to the
// CONDATHIS_ environment namespace.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("install_dir", defaults.InstallDir)
	v.SetDefault("micromamba_version", defaults.MicromambaVersion)
	v.SetDefault("default_env", string(defaults.DefaultEnv))
	v.SetDefault("channels", defaults.Channels)
	v.SetDefault("verbosity", defaults.Verbosity)
	v.SetDefault("error_policy", defaults.ErrorPolicy)
	v.SetDefault("scrub_env", defaults.ScrubEnv)
	v.SetDefault("install_timeout", defaults.InstallTimeout)
	v.SetDefault("releases.api_url", defaults.Releases.APIURL)
	v.SetDefault("releases.owner", defaults.Releases.Owner)
	v.SetDefault("releases.repo", defaults.Releases.Repo)
	v.SetDefault("releases.token_env", defaults.Releases.TokenEnv)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. Precedence: defaults, config file, CONDATHIS_* env.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	path, exists, err := FilePath(opts)
	if err != nil {
		return nil, "", err
	}

	resolvedPath := ""
	switch {
	case exists:
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestions(
					"Check that the file contains valid CUE syntax",
					"Verify the configuration values match the expected schema",
				).
				Wrap(err).
				BuildError()
		}
		resolvedPath = path
	case opts.ConfigFilePath != "":
		// An explicit --config must exist; the default location is optional.
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestions(
				"Verify the file path is correct",
				"Run 'condathis config init' to create a default configuration",
			).
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("parse configuration").
			WithResource(resolvedPath).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check CONDATHIS_* environment variables as well as the config file").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := decodeCUE(data, path)
	if err != nil {
		return err
	}

	// Merge preserves defaults and leaves env overrides on top.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config.cue into dir (the platform
// config dir when empty). It reports whether a file was written; an existing
// file is left untouched.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(cfgPath) {
		return cfgPath, false, nil
	}

	if err := Save(cfgPath, DefaultConfig()); err != nil {
		return "", false, err
	}
	return cfgPath, true, nil
}

// Save writes cfg to path as CUE, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// condathis configuration file\n")
	sb.WriteString("// Every field is optional. Environment variables prefixed with\n")
	sb.WriteString("// CONDATHIS_ override the values below.\n\n")

	if cfg.InstallDir != "" {
		fmt.Fprintf(&sb, "install_dir: %q\n", cfg.InstallDir)
	}
	fmt.Fprintf(&sb, "micromamba_version: %q\n", cfg.MicromambaVersion)
	fmt.Fprintf(&sb, "default_env: %q\n", cfg.DefaultEnv)
	fmt.Fprintf(&sb, "channels: %s\n", cueList(cfg.Channels))
	fmt.Fprintf(&sb, "verbosity: %q\n", cfg.Verbosity)
	fmt.Fprintf(&sb, "error_policy: %q\n", cfg.ErrorPolicy)
	fmt.Fprintf(&sb, "scrub_env: %s\n", cueList(cfg.ScrubEnv))
	fmt.Fprintf(&sb, "install_timeout: %q\n", cfg.InstallTimeout)

	sb.WriteString("\nreleases: {\n")
	fmt.Fprintf(&sb, "\tapi_url: %q\n", cfg.Releases.APIURL)
	fmt.Fprintf(&sb, "\towner: %q\n", cfg.Releases.Owner)
	fmt.Fprintf(&sb, "\trepo: %q\n", cfg.Releases.Repo)
	fmt.Fprintf(&sb, "\ttoken_env: %q\n", cfg.Releases.TokenEnv)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
