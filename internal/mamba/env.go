// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"slices"
	"strings"

	"github.com/c1au6i0/condathis/pkg/platform"
)

// DefaultScrubbedVars are removed from every child environment. They carry
// the state of an activated conda or mamba shell, or point a language
// runtime at a home outside the environment, and would make the child
// resolve tools from the wrong prefix.
var DefaultScrubbedVars = []string{
	"CONDA_SHLVL",
	"CONDA_PREFIX",
	"CONDA_DEFAULT_ENV",
	"CONDA_PROMPT_MODIFIER",
	"CONDA_ENVS_PATH",
	"CONDA_ROOT_PREFIX",
	"CONDA_EXE",
	"CONDA_PYTHON_EXE",
	"CONDARC",
	"MAMBA_SHLVL",
	"MAMBA_PREFIX",
	"MAMBA_DEFAULT_ENV",
	"MAMBA_PROMPT_MODIFIER",
	"MAMBA_ENVS_PATH",
	"MAMBA_ROOT_PREFIX",
	"MAMBA_EXE",
	"MAMBARC",
	"R_HOME",
	"GOROOT",
}

// ScrubSet returns DefaultScrubbedVars plus extra, without duplicates.
func ScrubSet(extra ...string) []string {
	set := slices.Clone(DefaultScrubbedVars)
	for _, name := range extra {
		if name != "" && !slices.Contains(set, name) {
			set = append(set, name)
		}
	}
	return set
}

// ChildEnviron returns ambient without the KEY=VALUE entries whose key is in
// remove. Neither input is modified. Keys compare case-insensitively on
// Windows, where environment names are not case-sensitive.
func ChildEnviron(ambient, remove []string) []string {
	return childEnviron(ambient, remove, platform.IsWindows())
}

func childEnviron(ambient, remove []string, foldCase bool) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, k := range remove {
		if foldCase {
			k = strings.ToUpper(k)
		}
		drop[k] = struct{}{}
	}

	out := make([]string, 0, len(ambient))
	for _, kv := range ambient {
		key, _, _ := strings.Cut(kv, "=")
		// Windows keeps per-drive cwd entries such as "=C:=C:\dir".
		if key == "" && strings.HasPrefix(kv, "=") {
			out = append(out, kv)
			continue
		}
		if foldCase {
			key = strings.ToUpper(key)
		}
		if _, ok := drop[key]; ok {
			continue
		}
		out = append(out, kv)
	}
	return out
}
