// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/c1au6i0/condathis/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultMicromambaVersion is the micromamba release installed when no
	// version is configured.
	DefaultMicromambaVersion = "2.0.5-0"
	// DefaultInstallTimeout bounds a complete micromamba install.
	DefaultInstallTimeout = 10 * time.Minute
	// DefaultReleasesAPIURL is the GitHub REST API root.
	DefaultReleasesAPIURL = "https://api.github.com"
	// DefaultReleasesOwner owns the micromamba release repository.
	DefaultReleasesOwner = "mamba-org"
	// DefaultReleasesRepo publishes the static micromamba builds.
	DefaultReleasesRepo = "micromamba-releases"
	// DefaultTokenEnv names the variable holding an optional GitHub token.
	DefaultTokenEnv = "GITHUB_TOKEN"
)

// Verbosity and error policy names accepted in configuration. They mirror
// the values understood by the mamba package, which owns the typed enums.
const (
	VerbositySilent = "silent"
	VerbosityCmd    = "cmd"
	VerbosityOutput = "output"
	VerbosityFull   = "full"

	ErrorPolicyCancel   = "cancel"
	ErrorPolicyContinue = "continue"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidField is the sentinel error wrapped by InvalidFieldError.
	ErrInvalidField = errors.New("invalid config field")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidFieldError reports a single configuration key holding a bad value.
	InvalidFieldError struct {
		Key    string
		Value  string
		Reason string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// InstallDir is the root holding the micromamba binary, envs and pkgs.
		// Empty means the platform data directory.
		InstallDir string `json:"install_dir" mapstructure:"install_dir" toml:"install_dir"`
		// MicromambaVersion is the release installed on first use.
		MicromambaVersion string `json:"micromamba_version" mapstructure:"micromamba_version" toml:"micromamba_version"`
		// DefaultEnv is used when a command does not name an environment.
		DefaultEnv types.EnvName `json:"default_env" mapstructure:"default_env" toml:"default_env"`
		// Channels are passed to environment creation in priority order.
		Channels []string `json:"channels" mapstructure:"channels" toml:"channels"`
		// Verbosity is one of silent, cmd, output, full.
		Verbosity string `json:"verbosity" mapstructure:"verbosity" toml:"verbosity"`
		// ErrorPolicy is one of cancel, continue.
		ErrorPolicy string `json:"error_policy" mapstructure:"error_policy" toml:"error_policy"`
		// ScrubEnv lists extra variables removed from child environments.
		ScrubEnv []string `json:"scrub_env" mapstructure:"scrub_env" toml:"scrub_env"`
		// InstallTimeout bounds a micromamba install, as a Go duration string.
		InstallTimeout string `json:"install_timeout" mapstructure:"install_timeout" toml:"install_timeout"`
		// Releases locates the micromamba release feed.
		Releases ReleasesConfig `json:"releases" mapstructure:"releases" toml:"releases"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui" toml:"ui"`
	}

	// ReleasesConfig points the installer at a GitHub-compatible releases API.
	ReleasesConfig struct {
		APIURL   string `json:"api_url" mapstructure:"api_url" toml:"api_url"`
		Owner    string `json:"owner" mapstructure:"owner" toml:"owner"`
		Repo     string `json:"repo" mapstructure:"repo" toml:"repo"`
		TokenEnv string `json:"token_env" mapstructure:"token_env" toml:"token_env"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme ("auto", "dark", "light")
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
	}
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		InstallDir:        "",
		MicromambaVersion: DefaultMicromambaVersion,
		DefaultEnv:        types.DefaultEnvName,
		Channels:          []string{"bioconda", "conda-forge"},
		Verbosity:         VerbosityOutput,
		ErrorPolicy:       ErrorPolicyCancel,
		ScrubEnv:          []string{},
		InstallTimeout:    DefaultInstallTimeout.String(),
		Releases: ReleasesConfig{
			APIURL:   DefaultReleasesAPIURL,
			Owner:    DefaultReleasesOwner,
			Repo:     DefaultReleasesRepo,
			TokenEnv: DefaultTokenEnv,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// InstallTimeoutDuration parses InstallTimeout, falling back to the default
// for an empty value.
func (c Config) InstallTimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(c.InstallTimeout) == "" {
		return DefaultInstallTimeout, nil
	}
	d, err := time.ParseDuration(c.InstallTimeout)
	if err != nil {
		return 0, &InvalidFieldError{Key: "install_timeout", Value: c.InstallTimeout, Reason: err.Error()}
	}
	if d <= 0 {
		return 0, &InvalidFieldError{Key: "install_timeout", Value: c.InstallTimeout, Reason: "must be positive"}
	}
	return d, nil
}

// IsValid returns whether the Config has valid fields. Checks that the CUE
// schema cannot express (environment name rules, durations, URLs) live here.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if c.DefaultEnv != "" {
		if err := c.DefaultEnv.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	switch c.Verbosity {
	case VerbositySilent, VerbosityCmd, VerbosityOutput, VerbosityFull:
	default:
		errs = append(errs, &InvalidFieldError{Key: "verbosity", Value: c.Verbosity, Reason: "want silent, cmd, output or full"})
	}
	switch c.ErrorPolicy {
	case ErrorPolicyCancel, ErrorPolicyContinue:
	default:
		errs = append(errs, &InvalidFieldError{Key: "error_policy", Value: c.ErrorPolicy, Reason: "want cancel or continue"})
	}
	for i, ch := range c.Channels {
		if strings.TrimSpace(ch) == "" {
			errs = append(errs, &InvalidFieldError{Key: fmt.Sprintf("channels[%d]", i), Value: ch, Reason: "must not be blank"})
		}
	}
	for i, name := range c.ScrubEnv {
		if name == "" || strings.ContainsAny(name, "= \t") {
			errs = append(errs, &InvalidFieldError{Key: fmt.Sprintf("scrub_env[%d]", i), Value: name, Reason: "not a variable name"})
		}
	}
	if _, err := c.InstallTimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Releases.APIURL != "" {
		if u, err := url.Parse(c.Releases.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, &InvalidFieldError{Key: "releases.api_url", Value: c.Releases.APIURL, Reason: "not an absolute URL"})
		}
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidFieldError.
func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: invalid value %q: %s", e.Key, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidField for errors.Is() compatibility.
func (e *InvalidFieldError) Unwrap() error { return ErrInvalidField }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}
