// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
)

// XDGDirs are the base directories installed by SetXDGDirs.
type XDGDirs struct {
	ConfigHome string
	DataHome   string
	CacheHome  string
}

// SetXDGDirs redirects the XDG base directories into root and reloads
// adrg/xdg so that xdg.ConfigHome and xdg.DataHome see the change. The
// previous values are restored when the test ends. Tests calling it must not
// run in parallel.
func SetXDGDirs(t testing.TB, root string) XDGDirs {
	t.Helper()

	dirs := XDGDirs{
		ConfigHome: filepath.Join(root, "config"),
		DataHome:   filepath.Join(root, "data"),
		CacheHome:  filepath.Join(root, "cache"),
	}
	restores := []func(){
		MustSetenv(t, "XDG_CONFIG_HOME", dirs.ConfigHome),
		MustSetenv(t, "XDG_DATA_HOME", dirs.DataHome),
		MustSetenv(t, "XDG_CACHE_HOME", dirs.CacheHome),
	}
	xdg.Reload()

	t.Cleanup(func() {
		for _, restore := range restores {
			restore()
		}
		xdg.Reload()
	})
	return dirs
}
