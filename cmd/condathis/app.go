// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/c1au6i0/condathis/internal/config"
	"github.com/c1au6i0/condathis/internal/installer"
	"github.com/c1au6i0/condathis/internal/layout"
	"github.com/c1au6i0/condathis/internal/logging"
	"github.com/c1au6i0/condathis/internal/mamba"
	"github.com/c1au6i0/condathis/pkg/types"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Loaded, error)
	}

	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and builds a session from it when it needs the
	// installation.
	App struct {
		Config  ConfigProvider
		Environ func() []string
		stdout  io.Writer
		stderr  io.Writer
		flags   globalFlags

		// exitCode is returned when no command error occurred.
		exitCode types.ExitCode
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Environ func() []string
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// globalFlags are the persistent root flags.
	globalFlags struct {
		configPath string
		installDir string
		logLevel   string
	}

	// session is everything a command needs once configuration is resolved.
	session struct {
		cfg       *config.Config
		cfgPath   string
		layout    layout.Layout
		logger    *log.Logger
		installer *installer.Installer
		client    *mamba.Client
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Environ == nil {
		deps.Environ = os.Environ
	}
	return &App{
		Config:  deps.Config,
		Environ: deps.Environ,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
}

// loadConfig loads configuration honoring --config.
func (a *App) loadConfig(ctx context.Context) (*config.Loaded, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
}

// session resolves configuration, the installation layout, and the
// micromamba client. Flags take precedence over configuration.
func (a *App) session(ctx context.Context) (*session, error) {
	loaded, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config

	logger, err := logging.New(a.stderr, a.flags.logLevel)
	if err != nil {
		return nil, err
	}

	dir := cfg.InstallDir
	if a.flags.installDir != "" {
		dir = a.flags.installDir
	}
	l, err := layout.Resolve(dir)
	if err != nil {
		return nil, err
	}

	installTimeout, err := cfg.InstallTimeoutDuration()
	if err != nil {
		return nil, err
	}

	inst := installer.New(l,
		installer.WithReleaseClient(a.releaseClient(cfg)),
		installer.WithLogger(logger),
		installer.WithDefaultVersion(cfg.MicromambaVersion),
	)

	runner := mamba.NewRunner(logger, cfg.ScrubEnv...)
	runner.Environ = a.Environ
	runner.Echo = a.stderr
	runner.ConsoleOut = a.stdout
	runner.ConsoleErr = a.stderr
	runner.EchoStyle = EchoStyle

	client := mamba.NewClient(l,
		mamba.WithInstaller(inst),
		mamba.WithRunner(runner),
		mamba.WithLogger(logger),
		mamba.WithChannels(cfg.Channels...),
		mamba.WithDefaultEnv(cfg.DefaultEnv),
		mamba.WithVerbosity(mamba.Verbosity(cfg.Verbosity)),
		mamba.WithErrorPolicy(mamba.ErrorPolicy(cfg.ErrorPolicy)),
		mamba.WithVersion(cfg.MicromambaVersion),
		mamba.WithInstallTimeout(installTimeout),
	)

	return &session{
		cfg:       cfg,
		cfgPath:   loaded.Path,
		layout:    l,
		logger:    logger,
		installer: inst,
		client:    client,
	}, nil
}

// releaseClient builds the GitHub releases client from configuration. The
// token is read from the variable named by releases.token_env.
func (a *App) releaseClient(cfg *config.Config) *installer.ReleaseClient {
	opts := []installer.ClientOption{
		installer.WithBaseURL(cfg.Releases.APIURL),
		installer.WithRepo(cfg.Releases.Owner, cfg.Releases.Repo),
		installer.WithUserAgent("condathis/" + Version),
	}
	if name := cfg.Releases.TokenEnv; name != "" {
		if token := lookupEnv(a.Environ(), name); token != "" {
			opts = append(opts, installer.WithToken(token))
		}
	}
	return installer.NewReleaseClient(opts...)
}

// glamourStyle maps ui.color_scheme onto a glamour style name.
func (s *session) glamourStyle() string {
	if s == nil || s.cfg == nil {
		return "auto"
	}
	switch s.cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

func lookupEnv(environ []string, key string) string {
	for i := len(environ) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(environ[i], key+"="); ok {
			return v
		}
	}
	return ""
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.stdout, args...)
}

// durationFlag parses an optional Go duration flag value.
func durationFlag(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid --%s %q: expected a duration such as 30s or 5m", name, value)
	}
	return d, nil
}
