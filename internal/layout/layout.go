// SPDX-License-Identifier: MPL-2.0

// Package layout resolves the installation directory and the fixed paths
// inside it: the micromamba binary, the environments directory, and the
// package cache. A Layout is a plain value; it is computed once from
// configuration and passed to whoever needs it.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/c1au6i0/condathis/pkg/platform"
	"github.com/c1au6i0/condathis/pkg/types"
)

// AppName is the directory name used under the XDG data home.
const AppName = "condathis"

// ErrNoInstallDir is returned when neither configuration nor the platform
// data directory yields an installation directory.
var ErrNoInstallDir = errors.New("cannot determine installation directory")

// Layout describes the on-disk structure of an installation.
type Layout struct {
	// Root is the absolute installation directory.
	Root string
}

// dataHome is a test seam for xdg.DataHome.
var dataHome = func() string { return xdg.DataHome }

// DefaultRoot returns the platform data directory for condathis:
// $XDG_DATA_HOME/condathis on Linux, ~/Library/Application Support/condathis
// on macOS, and %LOCALAPPDATA%\condathis on Windows.
func DefaultRoot() (string, error) {
	base := dataHome()
	if base == "" {
		return "", ErrNoInstallDir
	}
	return filepath.Join(base, AppName), nil
}

// Resolve builds a Layout from an explicit directory, falling back to
// DefaultRoot when dir is empty. Relative paths are made absolute so that
// the -r flag passed to micromamba does not depend on the child's cwd.
func Resolve(dir string) (Layout, error) {
	if dir == "" {
		def, err := DefaultRoot()
		if err != nil {
			return Layout{}, err
		}
		dir = def
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Layout{}, fmt.Errorf("resolving installation directory %s: %w", dir, err)
	}
	return Layout{Root: abs}, nil
}

// BinDir is the directory holding the micromamba executable.
func (l Layout) BinDir() string {
	return filepath.Join(l.Root, "micromamba", "bin")
}

// BinPath is the deterministic location of the micromamba executable.
func (l Layout) BinPath() string {
	return filepath.Join(l.BinDir(), "micromamba"+platform.ExeSuffix())
}

// EnvsDir is the directory micromamba creates named environments in.
func (l Layout) EnvsDir() string {
	return filepath.Join(l.Root, "envs")
}

// PkgsDir is micromamba's package cache.
func (l Layout) PkgsDir() string {
	return filepath.Join(l.Root, "pkgs")
}

// EnvDir is the prefix of the named environment.
func (l Layout) EnvDir(name types.EnvName) string {
	return filepath.Join(l.EnvsDir(), string(name))
}

// EnvBinDir is where an environment's executables live.
func (l Layout) EnvBinDir(name types.EnvName) string {
	if platform.IsWindows() {
		return filepath.Join(l.EnvDir(name), "Library", "bin")
	}
	return filepath.Join(l.EnvDir(name), "bin")
}

// EnvExists reports whether name is a micromamba environment. A bare
// directory is not enough: micromamba writes conda-meta/ on creation.
func (l Layout) EnvExists(name types.EnvName) bool {
	info, err := os.Stat(filepath.Join(l.EnvDir(name), "conda-meta"))
	return err == nil && info.IsDir()
}

// BinaryInstalled reports whether the micromamba executable is present.
func (l Layout) BinaryInstalled() bool {
	info, err := os.Stat(l.BinPath())
	return err == nil && !info.IsDir()
}
