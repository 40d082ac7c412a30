// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/c1au6i0/condathis/internal/installer"
	"github.com/c1au6i0/condathis/internal/layout"
	"github.com/c1au6i0/condathis/internal/testutil"
	"github.com/c1au6i0/condathis/pkg/types"
)

// fakeInstaller drops the fake micromamba in place on Install.
type fakeInstaller struct {
	t        *testing.T
	layout   layout.Layout
	installs atomic.Int32
	fake     *testutil.FakeMicromamba
	err      error
}

func (f *fakeInstaller) Installed() bool { return f.layout.BinaryInstalled() }

func (f *fakeInstaller) Install(_ context.Context, req installer.InstallRequest) (*installer.InstallResult, error) {
	f.installs.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	f.fake = testutil.NewFakeMicromamba(f.t, f.layout.BinPath())
	return &installer.InstallResult{Version: req.Version, Path: f.layout.BinPath(), Artifact: installer.ArtifactRaw}, nil
}

type clientFixture struct {
	client *Client
	layout layout.Layout
	inst   *fakeInstaller
	fake   *testutil.FakeMicromamba
}

// newClientFixture returns a client whose micromamba is already the fake.
func newClientFixture(t *testing.T, opts ...ClientOption) *clientFixture {
	t.Helper()
	l := layout.Layout{Root: t.TempDir()}
	fake := testutil.NewFakeMicromamba(t, l.BinPath())
	inst := &fakeInstaller{t: t, layout: l, fake: fake}
	runner := &Runner{
		Environ:    func() []string { return []string{"PATH=/usr/bin:/bin", "CONDA_PREFIX=/outer/env", "HOME=/home/u"} },
		Scrub:      ScrubSet(),
		Echo:       io.Discard,
		ConsoleOut: io.Discard,
		ConsoleErr: io.Discard,
	}
	opts = append([]ClientOption{WithInstaller(inst), WithRunner(runner)}, opts...)
	return &clientFixture{client: NewClient(l, opts...), layout: l, inst: inst, fake: fake}
}

func (f *clientFixture) create(t *testing.T, name types.EnvName, pkgs ...string) {
	t.Helper()
	if _, err := f.client.CreateEnv(context.Background(), CreateRequest{EnvName: name, Packages: pkgs}); err != nil {
		t.Fatalf("CreateEnv(%s) error = %v", name, err)
	}
}

func TestClient_CreateEnv(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	ctx := context.Background()

	res, err := f.client.CreateEnv(ctx, CreateRequest{EnvName: "tools", Packages: []string{"samtools=1.21", "bwa"}})
	if err != nil {
		t.Fatalf("CreateEnv() error = %v", err)
	}
	if res.Skipped || !res.Success() {
		t.Errorf("res = %+v", res)
	}
	if !f.client.EnvExists("tools") {
		t.Fatal("environment not created")
	}

	argv := f.fake.LastCall(t)
	want := []string{"create", "--no-rc", "--no-env", "-r", f.layout.Root, "-n", "tools", "--yes", "--quiet",
		"--override-channels", "-c", "bioconda", "-c", "conda-forge", "samtools=1.21", "bwa"}
	if !slices.Equal(argv, want) {
		t.Errorf("argv =\n  %q\nwant\n  %q", argv, want)
	}
	if f.fake.LastEnvHas(t, "CONDA_PREFIX") {
		t.Error("CONDA_PREFIX reached micromamba")
	}
}

func TestClient_CreateEnv_ExistingIsNoop(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	f.create(t, "tools", "bwa")
	before := len(f.fake.Calls(t))

	res, err := f.client.CreateEnv(context.Background(), CreateRequest{EnvName: "tools", Packages: []string{"samtools"}})
	if err != nil || !res.Skipped {
		t.Fatalf("res = %+v, err = %v; want Skipped", res, err)
	}
	if got := len(f.fake.Calls(t)); got != before {
		t.Errorf("micromamba called %d more times for an existing env", got-before)
	}
}

func TestClient_CreateEnv_Overwrite(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	f.create(t, "tools", "bwa")

	_, err := f.client.CreateEnv(context.Background(), CreateRequest{EnvName: "tools", Packages: []string{"samtools"}, Overwrite: true})
	if err != nil {
		t.Fatal(err)
	}
	calls := f.fake.Calls(t)
	if len(calls) != 3 || calls[1][0] != "env" || calls[1][1] != "remove" || calls[2][0] != "create" {
		t.Errorf("calls = %q, want create, env remove, create", calls)
	}
	pkgs, err := f.client.ListPackages(context.Background(), "tools")
	if err != nil || len(pkgs) != 1 || pkgs[0].Name != "samtools" {
		t.Errorf("packages after overwrite = %+v, %v", pkgs, err)
	}
}

func TestClient_CreateEnv_FromFile(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t, WithChannels("conda-forge"))
	envFile := filepath.Join(t.TempDir(), "env.yml")
	testutil.MustWriteFile(t, envFile, "name: ignored\nchannels:\n  - conda-forge\ndependencies:\n  - fastqc=0.12.1\n  - pip:\n    - multiqc\n")

	if _, err := f.client.CreateEnv(context.Background(), CreateRequest{EnvName: "qc", EnvFile: envFile}); err != nil {
		t.Fatal(err)
	}
	argv := f.fake.LastCall(t)
	if i := slices.Index(argv, "-f"); i < 0 || argv[i+1] != envFile {
		t.Errorf("argv = %q, want -f %s", argv, envFile)
	}
	if !f.client.EnvExists("qc") {
		t.Error("env not created from file")
	}
}

func TestClient_CreateEnv_InputErrors(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	badFile := filepath.Join(t.TempDir(), "bad.yml")
	testutil.MustWriteFile(t, badFile, "dependencies: [unterminated\n")

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"no packages or file", CreateRequest{EnvName: "x"}, ErrMissingArgument},
		{"missing file", CreateRequest{EnvName: "x", EnvFile: filepath.Join(t.TempDir(), "nope.yml")}, ErrInvalidEnvFile},
		{"malformed file", CreateRequest{EnvName: "x", EnvFile: badFile}, ErrInvalidEnvFile},
		{"invalid name", CreateRequest{EnvName: "a/b", Packages: []string{"bwa"}}, types.ErrInvalidEnvName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.client.CreateEnv(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if calls := f.fake.Calls(t); len(calls) != 0 {
		t.Errorf("micromamba invoked on input errors: %q", calls)
	}
}

func TestClient_CreateEnv_Failure(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	f.fake.FailWith(t, 1)

	res, err := f.client.CreateEnv(context.Background(), CreateRequest{EnvName: "tools", Packages: []string{"nonexistent-pkg"}})
	var ce *CommandError
	if !errors.As(err, &ce) || ce.ExitCode != 1 {
		t.Fatalf("err = %v, want *CommandError status 1", err)
	}
	if res == nil || !strings.Contains(res.Stderr, "fake failure") {
		t.Errorf("res = %+v", res)
	}
}

func TestClient_RemoveEnv(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	f.create(t, "tools", "bwa")

	if _, err := f.client.RemoveEnv(context.Background(), "tools", VerbositySilent); err != nil {
		t.Fatal(err)
	}
	if f.client.EnvExists("tools") {
		t.Error("env still exists after RemoveEnv")
	}

	_, err := f.client.RemoveEnv(context.Background(), "tools", "")
	var nf *EnvNotFoundError
	if !errors.As(err, &nf) || nf.Name != "tools" || !errors.Is(err, ErrEnvNotFound) {
		t.Errorf("err = %v, want EnvNotFoundError{tools}", err)
	}
}

func TestClient_ListEnvs(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	ctx := context.Background()

	names, err := f.client.ListEnvs(ctx)
	if err != nil || len(names) != 0 {
		t.Fatalf("ListEnvs() on empty root = %q, %v", names, err)
	}

	f.create(t, "zeta", "bwa")
	f.create(t, "alpha", "bwa")
	names, err = f.client.ListEnvs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"alpha", "zeta"}; !slices.Equal(names, want) {
		t.Errorf("ListEnvs() = %q, want %q", names, want)
	}
}

func TestClient_ListPackagesAndExport(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	f.create(t, "tools", "samtools=1.21", "bwa")
	ctx := context.Background()

	pkgs, err := f.client.ListPackages(ctx, "tools")
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 2 || pkgs[0].Name != "bwa" || pkgs[1].Name != "samtools" || pkgs[1].Version != "1.21" {
		t.Errorf("ListPackages() = %+v", pkgs)
	}

	spec, err := f.client.ExportEnv(ctx, "tools")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Name != "tools" || !slices.Equal(spec.Dependencies, []string{"samtools=1.21", "bwa"}) {
		t.Errorf("ExportEnv() = %+v", spec)
	}

	if _, err := f.client.ListPackages(ctx, "ghost"); !errors.Is(err, ErrEnvNotFound) {
		t.Errorf("ListPackages(ghost) err = %v", err)
	}
	if _, err := f.client.ExportEnv(ctx, "ghost"); !errors.Is(err, ErrEnvNotFound) {
		t.Errorf("ExportEnv(ghost) err = %v", err)
	}
}

func TestClient_Run(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	f.create(t, "tools", "bwa")
	ctx := context.Background()

	res, err := f.client.Run(ctx, RunRequest{Cmd: "bwa", Args: []string{"mem", "ref.fa"}, EnvName: "tools"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Stdout) != "bwa mem ref.fa" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	argv := f.fake.LastCall(t)
	if !slices.Equal(argv[:7], []string{"run", "--no-rc", "--no-env", "-r", f.layout.Root, "-n", "tools"}) {
		t.Errorf("argv = %q", argv)
	}

	res, err = f.client.Run(ctx, RunRequest{Cmd: "false", EnvName: "tools", ErrorPolicy: PolicyContinue})
	if err != nil || res.ExitCode != 1 {
		t.Errorf("continue policy: res = %+v, err = %v", res, err)
	}
	if _, err := f.client.Run(ctx, RunRequest{Cmd: "false", EnvName: "tools"}); !errors.Is(err, ErrCommandFailed) {
		t.Errorf("default cancel policy: err = %v", err)
	}
}

func TestClient_RunErrors(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	f.create(t, "tools", "bwa")
	ctx := context.Background()

	if _, err := f.client.Run(ctx, RunRequest{EnvName: "tools"}); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("empty cmd: err = %v", err)
	}
	if _, err := f.client.Run(ctx, RunRequest{Cmd: "bwa", EnvName: "ghost"}); !errors.Is(err, ErrEnvNotFound) {
		t.Errorf("missing env: err = %v", err)
	}
	if _, err := f.client.RunBin(ctx, RunRequest{Cmd: "samtools", EnvName: "tools"}); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("missing binary: err = %v", err)
	}
	if _, err := f.client.RunBin(ctx, RunRequest{Cmd: "../../bin/sh", EnvName: "tools"}); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("path escape: err = %v", err)
	}
}

func TestClient_RunBin(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	f.create(t, "tools", "bwa")
	before := len(f.fake.Calls(t))

	out := filepath.Join(t.TempDir(), "bwa.out")
	res, err := f.client.RunBin(context.Background(), RunRequest{Cmd: "bwa", Args: []string{"index"}, EnvName: "tools", Stdout: File(out)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Argv[0] != filepath.Join(f.layout.EnvBinDir("tools"), "bwa") {
		t.Errorf("argv = %q", res.Argv)
	}
	if got := len(f.fake.Calls(t)); got != before {
		t.Error("RunBin went through micromamba")
	}
}

func TestClient_DefaultEnv(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t, WithDefaultEnv("work"))
	if _, err := f.client.CreateEnv(context.Background(), CreateRequest{Packages: []string{"bwa"}}); err != nil {
		t.Fatal(err)
	}
	dir, err := f.client.EnvDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !f.client.EnvExists("") || dir != f.layout.EnvDir("work") {
		t.Errorf("default env not used: %s", dir)
	}
}

func TestClient_EnvLookupRejectsInvalidNames(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	// A directory beside envs/ that looks like an environment.
	testutil.MustMakeEnv(t, filepath.Dir(f.layout.EnvsDir()), "x")

	for _, name := range []types.EnvName{"..", "../x", "../../x", "a/b", ".hidden"} {
		if f.client.EnvExists(name) {
			t.Errorf("EnvExists(%q) = true", name)
		}
		dir, err := f.client.EnvDir(name)
		if !errors.Is(err, types.ErrInvalidEnvName) {
			t.Errorf("EnvDir(%q) = %q, %v; want ErrInvalidEnvName", name, dir, err)
		}
	}
}

func TestClient_CleanCache(t *testing.T) {
	t.Parallel()

	f := newClientFixture(t)
	res, err := f.client.CleanCache(context.Background(), VerbosityCmd)
	if err != nil || !strings.Contains(res.Stdout, "Cleaned") {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	if argv := f.fake.LastCall(t); argv[0] != "clean" || !slices.Contains(argv, "--all") {
		t.Errorf("argv = %q", argv)
	}
}

func TestClient_InstallsBinaryOnDemand(t *testing.T) {
	t.Parallel()

	l := layout.Layout{Root: t.TempDir()}
	inst := &fakeInstaller{t: t, layout: l}
	runner := &Runner{Environ: func() []string { return []string{"PATH=/usr/bin:/bin"} }, Echo: io.Discard, ConsoleOut: io.Discard, ConsoleErr: io.Discard}
	c := NewClient(l, WithInstaller(inst), WithRunner(runner), WithVersion("2.0.5-0"))

	if _, err := c.ListEnvs(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListEnvs(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := inst.installs.Load(); got != 1 {
		t.Errorf("installs = %d, want 1", got)
	}
}

func TestClient_InstallFailure(t *testing.T) {
	t.Parallel()

	l := layout.Layout{Root: t.TempDir()}
	boom := errors.New("network unreachable")
	c := NewClient(l, WithInstaller(&fakeInstaller{t: t, layout: l, err: boom}))

	if _, err := c.CleanCache(context.Background(), VerbositySilent); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped install error", err)
	}
}
