// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride lets tests redirect ConfigDir. adrg/xdg resolves its
// directories once at init, so setting HOME or XDG_CONFIG_HOME in a test
// is not enough.
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
