// SPDX-License-Identifier: MPL-2.0

package mamba

import "github.com/c1au6i0/condathis/pkg/types"

// CreateSpec describes an environment to create.
type CreateSpec struct {
	Env      types.EnvName
	Packages []string
	// File is an environment YAML passed with -f; Packages are appended after it.
	File string
	// Channels, when set, replace the configured channels (--override-channels).
	Channels []string
	// Platform requests packages for another conda subdir, e.g. osx-64.
	Platform string
}

// baseArgs starts every argv: the subcommand words followed by flags that
// ignore user rc files and inherited micromamba variables, and pin the root
// prefix to the managed installation.
func baseArgs(root string, sub ...string) []string {
	return append(sub, "--no-rc", "--no-env", "-r", root)
}

// RunArgs builds `micromamba run` for cmd inside env.
func RunArgs(root string, env types.EnvName, cmd string, args ...string) []string {
	argv := append(baseArgs(root, "run"), "-n", string(env), cmd)
	return append(argv, args...)
}

// CreateArgs builds `micromamba create`.
func CreateArgs(root string, spec CreateSpec) []string {
	argv := append(baseArgs(root, "create"), "-n", string(spec.Env), "--yes", "--quiet")
	if len(spec.Channels) > 0 {
		argv = append(argv, "--override-channels")
		for _, ch := range spec.Channels {
			argv = append(argv, "-c", ch)
		}
	}
	if spec.Platform != "" {
		argv = append(argv, "--platform", spec.Platform)
	}
	if spec.File != "" {
		argv = append(argv, "-f", spec.File)
	}
	return append(argv, spec.Packages...)
}

// RemoveArgs builds `micromamba env remove`.
func RemoveArgs(root string, env types.EnvName) []string {
	return append(baseArgs(root, "env", "remove"), "-n", string(env), "--yes", "--quiet")
}

// ListEnvsArgs builds `micromamba env list --json`.
func ListEnvsArgs(root string) []string {
	return append(baseArgs(root, "env", "list"), "--json")
}

// ListPackagesArgs builds `micromamba list --json` for env.
func ListPackagesArgs(root string, env types.EnvName) []string {
	return append(baseArgs(root, "list"), "-n", string(env), "--json")
}

// ExportArgs builds `micromamba env export` for env.
func ExportArgs(root string, env types.EnvName) []string {
	return append(baseArgs(root, "env", "export"), "-n", string(env))
}

// CleanArgs builds `micromamba clean --all`.
func CleanArgs(root string) []string {
	return append(baseArgs(root, "clean"), "--all", "--yes")
}
