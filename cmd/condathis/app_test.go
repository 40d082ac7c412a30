// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/c1au6i0/condathis/internal/config"
	"github.com/c1au6i0/condathis/internal/mamba"
)

func TestDurationFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"30s", 30 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"soon", 0, true},
		{"-5s", 0, true},
	}
	for _, tt := range tests {
		got, err := durationFlag("timeout", tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("durationFlag(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("durationFlag(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLookupEnv(t *testing.T) {
	t.Parallel()

	environ := []string{"GITHUB_TOKEN=first", "OTHER=x", "GITHUB_TOKEN=last", "GITHUB_TOKEN_2=no"}
	if got := lookupEnv(environ, "GITHUB_TOKEN"); got != "last" {
		t.Errorf("lookupEnv() = %q, want last", got)
	}
	if got := lookupEnv(environ, "MISSING"); got != "" {
		t.Errorf("lookupEnv(MISSING) = %q", got)
	}
}

func TestSessionGlamourStyle(t *testing.T) {
	t.Parallel()

	var nilSession *session
	if got := nilSession.glamourStyle(); got != "auto" {
		t.Errorf("nil session style = %q", got)
	}

	tests := map[config.ColorScheme]string{
		config.ColorSchemeAuto:  "auto",
		config.ColorSchemeDark:  "dark",
		config.ColorSchemeLight: "light",
	}
	for scheme, want := range tests {
		cfg := config.DefaultConfig()
		cfg.UI.ColorScheme = scheme
		s := &session{cfg: cfg}
		if got := s.glamourStyle(); got != want {
			t.Errorf("glamourStyle(%s) = %q, want %q", scheme, got, want)
		}
	}
}

func TestRunParamsRequest(t *testing.T) {
	t.Parallel()

	p := runParams{
		env:       "tools",
		argv:      []string{"samtools", "view", "-h"},
		verbosity: "FULL",
		policy:    "continue",
		stdout:    "out.txt",
		stdin:     "in.txt",
		timeout:   "2m",
	}
	req, err := p.request()
	if err != nil {
		t.Fatal(err)
	}
	if req.Cmd != "samtools" || len(req.Args) != 2 || req.Args[1] != "-h" {
		t.Errorf("Cmd/Args = %q %q", req.Cmd, req.Args)
	}
	if req.EnvName != "tools" || req.Verbosity != mamba.VerbosityFull || req.ErrorPolicy != mamba.PolicyContinue {
		t.Errorf("request = %+v", req)
	}
	if req.Stdout.IsCapture() || !req.Stderr.IsCapture() {
		t.Errorf("sinks: stdout=%v stderr=%v", req.Stdout, req.Stderr)
	}
	if req.StdinPath != "in.txt" || req.Timeout != 2*time.Minute {
		t.Errorf("stdin/timeout = %q %v", req.StdinPath, req.Timeout)
	}

	empty, err := runParams{}.request()
	if err != nil {
		t.Fatal(err)
	}
	if empty.Cmd != "" || empty.Verbosity != "" {
		t.Errorf("empty request = %+v", empty)
	}
}

func TestRunParamsRequest_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params runParams
		target error
	}{
		{"verbosity", runParams{verbosity: "loud"}, mamba.ErrInvalidVerbosity},
		{"policy", runParams{policy: "ignore"}, mamba.ErrInvalidErrorPolicy},
	}
	for _, tt := range tests {
		if _, err := tt.params.request(); !errors.Is(err, tt.target) {
			t.Errorf("%s: request() error = %v, want %v", tt.name, err, tt.target)
		}
	}
	if _, err := (runParams{timeout: "later"}).request(); err == nil {
		t.Error("invalid timeout accepted")
	}
}
