// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/c1au6i0/condathis/internal/installer"
	"github.com/c1au6i0/condathis/internal/testutil"
	"github.com/c1au6i0/condathis/pkg/platform"
)

// binaryPath is the condathis binary built by TestMain.
var binaryPath string

func TestMain(m *testing.M) {
	os.Exit(runTests(m))
}

func runTests(m *testing.M) int {
	projectRoot, err := findProjectRoot()
	if err != nil {
		panic(err)
	}

	binDir, err := os.MkdirTemp("", "condathis-cli-")
	if err != nil {
		panic("failed to create bin directory: " + err.Error())
	}
	defer func() { _ = os.RemoveAll(binDir) }()

	binaryPath = filepath.Join(binDir, "condathis"+platform.ExeSuffix())
	build := exec.CommandContext(context.Background(), "go", "build", "-o", binaryPath, ".")
	build.Dir = projectRoot
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		panic("failed to build condathis: " + err.Error())
	}

	return m.Run()
}

// findProjectRoot walks up from the working directory to go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// TestCLI runs the testscript files in testdata/script against the built
// binary. Every script gets its own installation directory holding a fake
// micromamba and a release server that publishes the same fake.
func TestCLI(t *testing.T) {
	if platform.IsWindows() {
		t.Skip("the fake micromamba is a POSIX shell script")
	}

	releases := newReleaseServer(t)

	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
		Setup: func(env *testscript.Env) error {
			env.Setenv("PATH", filepath.Dir(binaryPath)+string(os.PathListSeparator)+env.Getenv("PATH"))

			installDir := filepath.Join(env.WorkDir, "condathis")
			env.Setenv("CONDATHIS_INSTALL_DIR", installDir)
			env.Setenv("CONDATHIS_RELEASES_API_URL", releases.URL)
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, ".config"))
			env.Setenv("XDG_DATA_HOME", filepath.Join(env.WorkDir, ".local", "share"))
			env.Setenv("HOME", filepath.Join(env.WorkDir, "home"))

			return testutil.WriteFakeMicromamba(filepath.Join(installDir, "micromamba", "bin", "micromamba"))
		},
		ContinueOnError: true,
	})
}

// newReleaseServer serves a GitHub-shaped release 2.0.5-0 whose only asset
// is the raw fake micromamba for this machine's platform.
func newReleaseServer(t *testing.T) *httptest.Server {
	t.Helper()

	subdir, err := platform.SysArch()
	if err != nil {
		t.Skipf("unsupported platform: %v", err)
	}

	fake := filepath.Join(t.TempDir(), "micromamba")
	if err := testutil.WriteFakeMicromamba(fake); err != nil {
		t.Fatal(err)
	}
	payload, err := os.ReadFile(fake)
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/repos/mamba-org/micromamba-releases/releases/tags/2.0.5-0", func(w http.ResponseWriter, _ *http.Request) {
		rel := installer.Release{
			TagName: "2.0.5-0",
			Assets: []installer.Asset{{
				Name:               installer.RawAssetName(subdir),
				BrowserDownloadURL: srv.URL + "/download/" + installer.RawAssetName(subdir),
				Size:               int64(len(payload)),
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rel)
	})
	mux.HandleFunc("/download/"+installer.RawAssetName(subdir), func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
