// SPDX-License-Identifier: MPL-2.0

// Package logging builds the charmbracelet/log loggers used across condathis.
// Loggers are created once by the CLI and injected; nothing here is global.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "warn"

// New returns a logger writing to w at the named level
// (debug, info, warn, error). An unknown level is an error.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "condathis",
		Level:  lvl,
	}), nil
}

// ParseLevel maps a level name onto a log.Level. The empty string maps to
// DefaultLevel.
func ParseLevel(level string) (log.Level, error) {
	if strings.TrimSpace(level) == "" {
		level = DefaultLevel
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// Discard returns a logger that drops everything. Used as the default for
// library callers that do not inject one.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Component returns a child logger whose prefix extends the parent's with
// name, e.g. "condathis/mamba".
func Component(l *log.Logger, name string) *log.Logger {
	if l == nil {
		l = Discard()
	}
	if parent := l.GetPrefix(); parent != "" {
		name = parent + "/" + name
	}
	return l.WithPrefix(name)
}
