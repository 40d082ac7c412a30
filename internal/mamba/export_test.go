// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/c1au6i0/condathis/internal/testutil"
)

const exportYAML = `name: rnaseq
channels:
- bioconda
- conda-forge
dependencies:
- salmon=1.10.3
- python=3.12
- pip:
  - multiqc==1.25
prefix: /opt/condathis/envs/rnaseq
`

func TestParseEnvironmentSpec(t *testing.T) {
	t.Parallel()

	spec, err := ParseEnvironmentSpec([]byte(exportYAML))
	if err != nil {
		t.Fatal(err)
	}
	if spec.Name != "rnaseq" || spec.Prefix != "/opt/condathis/envs/rnaseq" {
		t.Errorf("spec = %+v", spec)
	}
	if !slices.Equal(spec.Channels, []string{"bioconda", "conda-forge"}) {
		t.Errorf("channels = %q", spec.Channels)
	}
	if !slices.Equal(spec.Dependencies, []string{"salmon=1.10.3", "python=3.12"}) {
		t.Errorf("dependencies = %q", spec.Dependencies)
	}
	if !slices.Equal(spec.Pip, []string{"multiqc==1.25"}) {
		t.Errorf("pip = %q", spec.Pip)
	}
}

func TestEnvironmentSpec_MarshalYAML(t *testing.T) {
	t.Parallel()

	spec, err := ParseEnvironmentSpec([]byte(exportYAML))
	if err != nil {
		t.Fatal(err)
	}
	out, err := yaml.Marshal(spec)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"name: rnaseq", "- salmon=1.10.3", "- pip:", "- multiqc==1.25"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("marshalled YAML missing %q:\n%s", want, out)
		}
	}

	again, err := ParseEnvironmentSpec(out)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(again.Pip, spec.Pip) || !slices.Equal(again.Dependencies, spec.Dependencies) {
		t.Errorf("re-parsed spec = %+v", again)
	}
}

func TestParseEnvironmentSpec_RejectsNestedLists(t *testing.T) {
	t.Parallel()

	_, err := ParseEnvironmentSpec([]byte("dependencies:\n- [a, b]\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err = %v, want line-numbered error", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	empty := filepath.Join(dir, "empty.yml")
	testutil.MustWriteFile(t, good, exportYAML)
	testutil.MustWriteFile(t, empty, "name: nothing\nchannels: [conda-forge]\n")

	if spec, err := LoadEnvFile(good); err != nil || spec.Name != "rnaseq" {
		t.Errorf("LoadEnvFile(good) = %+v, %v", spec, err)
	}
	for _, path := range []string{empty, filepath.Join(dir, "missing.yml")} {
		if _, err := LoadEnvFile(path); !errors.Is(err, ErrInvalidEnvFile) {
			t.Errorf("LoadEnvFile(%s) err = %v, want ErrInvalidEnvFile", filepath.Base(path), err)
		}
	}
}
