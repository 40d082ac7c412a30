// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/c1au6i0/condathis/internal/installer"
	"github.com/c1au6i0/condathis/internal/layout"
	"github.com/c1au6i0/condathis/internal/logging"
	"github.com/c1au6i0/condathis/pkg/platform"
	"github.com/c1au6i0/condathis/pkg/types"
)

// displayName replaces the full binary path in echoed command lines.
const displayName = "micromamba"

type (
	// BinaryInstaller is the part of *installer.Installer the client needs.
	BinaryInstaller interface {
		Installed() bool
		Install(ctx context.Context, req installer.InstallRequest) (*installer.InstallResult, error)
	}

	// CreateRequest describes CreateEnv's inputs.
	CreateRequest struct {
		Packages []string
		// EnvFile is an environment YAML; it is validated before micromamba runs.
		EnvFile string
		// EnvName defaults to the client's default environment.
		EnvName types.EnvName
		// Channels overrides the client's channels when non-empty.
		Channels []string
		Platform string
		// Overwrite removes an existing environment first.
		Overwrite bool
		Verbosity Verbosity
	}

	// RunRequest describes Run and RunBin inputs.
	RunRequest struct {
		Cmd  string
		Args []string
		// EnvName defaults to the client's default environment.
		EnvName     types.EnvName
		Verbosity   Verbosity
		ErrorPolicy ErrorPolicy
		Stdout      Sink
		Stderr      Sink
		StdinPath   string
		Timeout     time.Duration
	}

	// Client runs micromamba against one installation directory.
	Client struct {
		layout         layout.Layout
		installer      BinaryInstaller
		runner         *Runner
		logger         *log.Logger
		channels       []string
		defaultEnv     types.EnvName
		verbosity      Verbosity
		policy         ErrorPolicy
		version        string
		installTimeout time.Duration

		installMu sync.Mutex
	}

	// ClientOption configures a Client.
	ClientOption func(*Client)
)

// WithInstaller replaces the default installer.
func WithInstaller(i BinaryInstaller) ClientOption {
	return func(c *Client) { c.installer = i }
}

// WithRunner replaces the default runner.
func WithRunner(r *Runner) ClientOption {
	return func(c *Client) { c.runner = r }
}

// WithChannels sets the channels passed to create.
func WithChannels(ch ...string) ClientOption {
	return func(c *Client) { c.channels = ch }
}

// WithDefaultEnv sets the environment used when a request names none.
func WithDefaultEnv(name types.EnvName) ClientOption {
	return func(c *Client) { c.defaultEnv = name }
}

// WithVerbosity sets the default verbosity.
func WithVerbosity(v Verbosity) ClientOption {
	return func(c *Client) { c.verbosity = v }
}

// WithErrorPolicy sets the default error policy.
func WithErrorPolicy(p ErrorPolicy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// WithVersion sets the micromamba version installed on demand.
func WithVersion(v string) ClientOption {
	return func(c *Client) { c.version = v }
}

// WithInstallTimeout bounds the on-demand install.
func WithInstallTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.installTimeout = d }
}

// WithLogger sets the parent logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a Client for l. Without options it installs micromamba
// from GitHub on first use, uses the condathis default channels, and runs
// with verbosity "output" and policy "cancel".
func NewClient(l layout.Layout, opts ...ClientOption) *Client {
	c := &Client{
		layout:     l,
		channels:   []string{"bioconda", "conda-forge"},
		defaultEnv: types.DefaultEnvName,
		verbosity:  VerbosityOutput,
		policy:     PolicyCancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Component(c.logger, "mamba")
	if c.runner == nil {
		c.runner = NewRunner(c.logger)
	}
	if c.installer == nil {
		c.installer = installer.New(l, installer.WithLogger(c.logger), installer.WithDefaultVersion(c.version))
	}
	return c
}

// Layout returns the installation layout.
func (c *Client) Layout() layout.Layout { return c.layout }

// EnvExists reports whether the environment exists. Invalid names never
// exist.
func (c *Client) EnvExists(name types.EnvName) bool {
	name = c.envName(name)
	if name.Validate() != nil {
		return false
	}
	return c.layout.EnvExists(name)
}

// EnvDir returns the environment prefix, whether or not it exists.
func (c *Client) EnvDir(name types.EnvName) (string, error) {
	name = c.envName(name)
	if err := name.Validate(); err != nil {
		return "", err
	}
	return c.layout.EnvDir(name), nil
}

// CreateEnv creates an environment from packages, an environment file, or
// both. An existing environment is left alone unless Overwrite is set.
func (c *Client) CreateEnv(ctx context.Context, req CreateRequest) (*Result, error) {
	if len(req.Packages) == 0 && req.EnvFile == "" {
		return nil, missing("packages or an environment file")
	}
	name := c.envName(req.EnvName)
	if err := name.Validate(); err != nil {
		return nil, err
	}
	if req.EnvFile != "" {
		if _, err := LoadEnvFile(req.EnvFile); err != nil {
			return nil, err
		}
	}

	if c.layout.EnvExists(name) {
		if !req.Overwrite {
			c.logger.Info("environment already exists", "env", name)
			return &Result{Skipped: true}, nil
		}
		if _, err := c.RemoveEnv(ctx, name, req.Verbosity); err != nil {
			return nil, fmt.Errorf("removing %s before overwrite: %w", name, err)
		}
	}

	channels := req.Channels
	if len(channels) == 0 {
		channels = c.channels
	}
	args := CreateArgs(c.layout.Root, CreateSpec{
		Env:      name,
		Packages: req.Packages,
		File:     req.EnvFile,
		Channels: channels,
		Platform: req.Platform,
	})
	return c.micromamba(ctx, args, req.Verbosity, PolicyCancel)
}

// RemoveEnv deletes an environment.
func (c *Client) RemoveEnv(ctx context.Context, name types.EnvName, v Verbosity) (*Result, error) {
	name = c.envName(name)
	if err := c.requireEnv(name); err != nil {
		return nil, err
	}
	return c.micromamba(ctx, RemoveArgs(c.layout.Root, name), v, PolicyCancel)
}

// ListEnvs returns the names of environments in the installation directory.
func (c *Client) ListEnvs(ctx context.Context) ([]string, error) {
	res, err := c.micromamba(ctx, ListEnvsArgs(c.layout.Root), VerbositySilent, PolicyCancel)
	if err != nil {
		return nil, err
	}
	return parseEnvNames(res.Stdout, c.layout.EnvsDir())
}

// ListPackages returns the packages installed in an environment.
func (c *Client) ListPackages(ctx context.Context, name types.EnvName) ([]Package, error) {
	name = c.envName(name)
	if err := c.requireEnv(name); err != nil {
		return nil, err
	}
	res, err := c.micromamba(ctx, ListPackagesArgs(c.layout.Root, name), VerbositySilent, PolicyCancel)
	if err != nil {
		return nil, err
	}
	return parsePackages(res.Stdout)
}

// ExportEnv returns the environment's specification.
func (c *Client) ExportEnv(ctx context.Context, name types.EnvName) (*EnvironmentSpec, error) {
	name = c.envName(name)
	if err := c.requireEnv(name); err != nil {
		return nil, err
	}
	res, err := c.micromamba(ctx, ExportArgs(c.layout.Root, name), VerbositySilent, PolicyCancel)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return nil, fmt.Errorf("%w: export: %w", ErrUnexpectedOutput, errEmptyExport)
	}
	spec, err := ParseEnvironmentSpec([]byte(res.Stdout))
	if err != nil {
		return nil, fmt.Errorf("%w: export: %w", ErrUnexpectedOutput, err)
	}
	if spec.Name == "" {
		spec.Name = string(name)
	}
	return spec, nil
}

// Run executes a command inside an environment through `micromamba run`.
func (c *Client) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if req.Cmd == "" {
		return nil, missing("command")
	}
	name := c.envName(req.EnvName)
	if err := c.requireEnv(name); err != nil {
		return nil, err
	}
	if err := c.ensureBinary(ctx); err != nil {
		return nil, err
	}
	return c.runner.Exec(ctx, c.invocation(c.layout.BinPath(), RunArgs(c.layout.Root, name, req.Cmd, req.Args...), req))
}

// RunBin executes an environment's executable directly, without going
// through micromamba.
func (c *Client) RunBin(ctx context.Context, req RunRequest) (*Result, error) {
	if req.Cmd == "" {
		return nil, missing("command")
	}
	name := c.envName(req.EnvName)
	if err := c.requireEnv(name); err != nil {
		return nil, err
	}
	path, err := c.findBin(name, req.Cmd)
	if err != nil {
		return nil, err
	}
	inv := c.invocation(path, req.Args, req)
	inv.Display = req.Cmd
	return c.runner.Exec(ctx, inv)
}

// CleanCache removes micromamba's package cache.
func (c *Client) CleanCache(ctx context.Context, v Verbosity) (*Result, error) {
	return c.micromamba(ctx, CleanArgs(c.layout.Root), v, PolicyCancel)
}

// ensureBinary installs micromamba when it is missing. Concurrent callers
// on one client share a single install.
func (c *Client) ensureBinary(ctx context.Context) error {
	if c.installer.Installed() {
		return nil
	}
	c.installMu.Lock()
	defer c.installMu.Unlock()
	if c.installer.Installed() {
		return nil
	}

	c.logger.Info("micromamba not found, installing", "path", c.layout.BinPath(), "version", c.version)
	res, err := c.installer.Install(ctx, installer.InstallRequest{Version: c.version, Timeout: c.installTimeout})
	if err != nil {
		return fmt.Errorf("installing micromamba: %w", err)
	}
	c.logger.Debug("micromamba installed", "version", res.Version, "artifact", res.Artifact, "verified", res.Verified)
	return nil
}

func (c *Client) micromamba(ctx context.Context, args []string, v Verbosity, p ErrorPolicy) (*Result, error) {
	if err := c.ensureBinary(ctx); err != nil {
		return nil, err
	}
	inv := Invocation{
		Path:      c.layout.BinPath(),
		Args:      args,
		Display:   displayName,
		Verbosity: v.Or(c.verbosity),
		Policy:    p,
	}
	return c.runner.Exec(ctx, inv)
}

func (c *Client) invocation(path string, args []string, req RunRequest) Invocation {
	return Invocation{
		Path:      path,
		Args:      args,
		Display:   displayName,
		Stdout:    req.Stdout,
		Stderr:    req.Stderr,
		StdinPath: req.StdinPath,
		Verbosity: req.Verbosity.Or(c.verbosity),
		Policy:    req.ErrorPolicy.Or(c.policy),
		Timeout:   req.Timeout,
	}
}

func (c *Client) envName(name types.EnvName) types.EnvName {
	return name.Or(c.defaultEnv)
}

func (c *Client) requireEnv(name types.EnvName) error {
	if err := name.Validate(); err != nil {
		return err
	}
	if !c.layout.EnvExists(name) {
		return &EnvNotFoundError{Name: name}
	}
	return nil
}

// findBin resolves cmd inside the environment's bin directory. On Windows
// the usual executable suffixes are tried and Scripts/ is searched too.
func (c *Client) findBin(env types.EnvName, cmd string) (string, error) {
	if strings.ContainsAny(cmd, `/\`) {
		return "", &BinaryNotFoundError{Env: env, Path: cmd}
	}
	dirs := []string{c.layout.EnvBinDir(env)}
	suffixes := []string{""}
	if platform.IsWindows() {
		dirs = append(dirs, filepath.Join(c.layout.EnvDir(env), "Scripts"), c.layout.EnvDir(env))
		suffixes = append(suffixes, ".exe", ".bat", ".cmd")
	}
	for _, dir := range dirs {
		for _, suf := range suffixes {
			p := filepath.Join(dir, cmd+suf)
			info, err := os.Stat(p)
			if err == nil && !info.IsDir() {
				return p, nil
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				c.logger.Debug("stat failed", "path", p, "err", err)
			}
		}
	}
	return "", &BinaryNotFoundError{Env: env, Path: filepath.Join(dirs[0], cmd)}
}
