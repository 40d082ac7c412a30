// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Package is one installed package as reported by `micromamba list --json`.
type Package struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	BuildString string `json:"build_string"`
	BuildNumber int    `json:"build_number"`
	Channel     string `json:"channel"`
	Platform    string `json:"platform"`
	BaseURL     string `json:"base_url,omitempty"`
}

// parsePackages decodes `micromamba list --json` output, sorted by name.
func parsePackages(out string) ([]Package, error) {
	var pkgs []Package
	if err := json.Unmarshal([]byte(out), &pkgs); err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrUnexpectedOutput, err)
	}
	slices.SortFunc(pkgs, func(a, b Package) int { return strings.Compare(a.Name, b.Name) })
	return pkgs, nil
}

// envList is the shape of `micromamba env list --json`.
type envList struct {
	Envs []string `json:"envs"`
}

// parseEnvNames returns the names of environments living directly in
// envsDir, sorted. The root prefix and environments registered elsewhere
// are ignored.
func parseEnvNames(out, envsDir string) ([]string, error) {
	var list envList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, fmt.Errorf("%w: env list: %w", ErrUnexpectedOutput, err)
	}

	names := []string{}
	for _, p := range list.Envs {
		p = filepath.Clean(p)
		if !sameDir(filepath.Dir(p), envsDir) {
			continue
		}
		if name := filepath.Base(p); !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// sameDir compares paths textually first and then by identity, so that a
// symlinked temp dir (macOS /var -> /private/var) still matches.
func sameDir(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
