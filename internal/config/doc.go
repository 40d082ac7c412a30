// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is read from config.cue in the platform config directory
// (~/.config/condathis on Linux, ~/Library/Application Support/condathis on
// macOS, %APPDATA%\condathis on Windows) or from an explicit path. Files are
// validated against the embedded config_schema.cue before being merged over
// the built-in defaults; CONDATHIS_* environment variables take precedence
// over the file.
package config
