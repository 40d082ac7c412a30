// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"testing"
)

// fakeMicromambaScript stands in for micromamba in tests. It understands the
// argv shapes condathis builds, keeps environments as plain directories
// under the -r root, and records every call next to itself:
//
//	calls/<n>  one argument per line
//	last.env   the environment of the most recent call
//	exit-code  when present and non-zero, every call fails with it
//
// `create` writes conda-meta/packages and a bin/<pkg> stub per package that
// prints its name and arguments.
const fakeMicromambaScript = `#!/bin/sh
here=$(cd "$(dirname "$0")" && pwd)
mkdir -p "$here/calls"
n=$(ls "$here/calls" | wc -l | tr -d ' ')
for a in "$@"; do printf '%s\n' "$a"; done > "$here/calls/$n"
env > "$here/last.env"

if [ -f "$here/exit-code" ]; then
  code=$(cat "$here/exit-code")
  if [ "$code" != "0" ]; then
    echo "critical libmamba fake failure" >&2
    exit "$code"
  fi
fi

sub=$1; shift
if [ "$sub" = "env" ]; then sub="env-$1"; shift; fi

root=""; name=""; file=""
while [ $# -gt 0 ]; do
  case "$1" in
    --no-rc|--no-env|--yes|--quiet|--override-channels|--all|--json) shift ;;
    -r) root=$2; shift 2 ;;
    -n) name=$2; shift 2 ;;
    -c|--platform) shift 2 ;;
    -f) file=$2; shift 2 ;;
    *) break ;;
  esac
done
prefix="$root/envs/$name"

case "$sub" in
  create)
    mkdir -p "$prefix/conda-meta" "$prefix/bin"
    : > "$prefix/conda-meta/packages"
    if [ -n "$file" ]; then
      sed -n 's/^ *- *\([A-Za-z0-9_.-][A-Za-z0-9_.=<>-]*\) *$/\1/p' "$file" >> "$prefix/conda-meta/packages"
    fi
    for p in "$@"; do printf '%s\n' "$p" >> "$prefix/conda-meta/packages"; done
    while read -r p; do
      pkg=${p%%[=<>]*}
      printf '#!/bin/sh\necho "%s $*"\n' "$pkg" > "$prefix/bin/$pkg"
      chmod 755 "$prefix/bin/$pkg"
    done < "$prefix/conda-meta/packages"
    echo "Transaction finished"
    ;;
  env-remove)
    rm -rf "$prefix"
    echo "Environment removed at prefix: $prefix"
    ;;
  env-list)
    printf '{"envs": ["%s"' "$root"
    for d in "$root"/envs/*/; do
      [ -d "$d" ] || continue
      printf ', "%s"' "${d%/}"
    done
    printf ']}\n'
    ;;
  list)
    printf '['
    sep=""
    while read -r p; do
      pkg=${p%%[=<>]*}
      ver=${p#"$pkg"}; ver=${ver#=}; ver=${ver#=}
      [ -n "$ver" ] || ver="1.0"
      printf '%s{"name": "%s", "version": "%s", "build_string": "h0", "build_number": 0, "channel": "conda-forge", "platform": "linux-64"}' "$sep" "$pkg" "$ver"
      sep=", "
    done < "$prefix/conda-meta/packages"
    printf ']\n'
    ;;
  env-export)
    printf 'name: %s\nchannels:\n- conda-forge\ndependencies:\n' "$name"
    while read -r p; do printf -- '- %s\n' "$p"; done < "$prefix/conda-meta/packages"
    printf 'prefix: %s\n' "$prefix"
    ;;
  clean)
    echo "Cleaned index cache"
    ;;
  run)
    PATH="$prefix/bin:$PATH"
    export PATH
    exec "$@"
    ;;
  *)
    echo "unknown command: $sub" >&2
    exit 2
    ;;
esac
`

// FakeMicromamba is a scripted micromamba installed at a layout's binary
// path.
type FakeMicromamba struct {
	// Path is the executable.
	Path string
	dir  string
}

// WriteFakeMicromamba writes the fake script to binPath. It does not need a
// testing.TB so that testscript setup functions can call it.
func WriteFakeMicromamba(binPath string) error {
	if err := os.MkdirAll(filepath.Dir(binPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(binPath, []byte(fakeMicromambaScript), 0o755)
}

// NewFakeMicromamba installs the fake at binPath. Tests using it are skipped
// on Windows, where the script cannot run.
func NewFakeMicromamba(t testing.TB, binPath string) *FakeMicromamba {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake micromamba is a POSIX shell script")
	}
	if err := WriteFakeMicromamba(binPath); err != nil {
		t.Fatalf("failed to write fake micromamba: %v", err)
	}
	return &FakeMicromamba{Path: binPath, dir: filepath.Dir(binPath)}
}

// FailWith makes every later call exit with code and a message on stderr.
func (f *FakeMicromamba) FailWith(t testing.TB, code int) {
	t.Helper()
	MustWriteFile(t, filepath.Join(f.dir, "exit-code"), strconv.Itoa(code))
}

// Calls returns the argv of every call so far, oldest first, without the
// executable.
func (f *FakeMicromamba) Calls(t testing.TB) [][]string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.dir, "calls"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("failed to read fake calls: %v", err)
	}

	calls := make([][]string, len(entries))
	for _, e := range entries {
		i, err := strconv.Atoi(e.Name())
		if err != nil || i >= len(calls) {
			t.Fatalf("unexpected call record %q", e.Name())
		}
		data, err := os.ReadFile(filepath.Join(f.dir, "calls", e.Name()))
		if err != nil {
			t.Fatalf("failed to read call record: %v", err)
		}
		calls[i] = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}
	return calls
}

// LastCall returns the most recent argv, failing the test if there is none.
func (f *FakeMicromamba) LastCall(t testing.TB) []string {
	t.Helper()
	calls := f.Calls(t)
	if len(calls) == 0 {
		t.Fatal("fake micromamba was never called")
	}
	return calls[len(calls)-1]
}

// LastEnv returns the environment of the most recent call as KEY=VALUE
// entries.
func (f *FakeMicromamba) LastEnv(t testing.TB) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, "last.env"))
	if err != nil {
		t.Fatalf("failed to read recorded environment: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// LastEnvHas reports whether key was set in the most recent call.
func (f *FakeMicromamba) LastEnvHas(t testing.TB, key string) bool {
	t.Helper()
	return slices.ContainsFunc(f.LastEnv(t), func(kv string) bool {
		return strings.HasPrefix(kv, key+"=")
	})
}

// String is used in test failure messages.
func (f *FakeMicromamba) String() string {
	return fmt.Sprintf("fake micromamba at %s", f.Path)
}
