// SPDX-License-Identifier: MPL-2.0

package mamba

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvironmentSpec is the environment summary produced by
// `micromamba env export`, which is also the format accepted by
// `create -f`.
type EnvironmentSpec struct {
	Name         string   `json:"name" yaml:"name"`
	Channels     []string `json:"channels" yaml:"channels"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	// Pip holds the entries of a nested `- pip: [...]` dependency block.
	Pip    []string `json:"pip,omitempty" yaml:"-"`
	Prefix string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// UnmarshalYAML accepts dependency lists that mix plain specs with a
// `pip:` mapping.
func (s *EnvironmentSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name         string      `yaml:"name"`
		Channels     []string    `yaml:"channels"`
		Dependencies []yaml.Node `yaml:"dependencies"`
		Prefix       string      `yaml:"prefix"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	s.Name, s.Channels, s.Prefix = raw.Name, raw.Channels, raw.Prefix
	s.Dependencies, s.Pip = nil, nil
	for i := range raw.Dependencies {
		dep := &raw.Dependencies[i]
		switch dep.Kind {
		case yaml.ScalarNode:
			s.Dependencies = append(s.Dependencies, dep.Value)
		case yaml.MappingNode:
			var sub map[string][]string
			if err := dep.Decode(&sub); err != nil {
				return fmt.Errorf("line %d: %w", dep.Line, err)
			}
			s.Pip = append(s.Pip, sub["pip"]...)
		default:
			return fmt.Errorf("line %d: unsupported dependency entry", dep.Line)
		}
	}
	return nil
}

// MarshalYAML writes the environment back in environment-file form.
func (s EnvironmentSpec) MarshalYAML() (any, error) {
	deps := make([]any, 0, len(s.Dependencies)+1)
	for _, d := range s.Dependencies {
		deps = append(deps, d)
	}
	if len(s.Pip) > 0 {
		deps = append(deps, map[string][]string{"pip": s.Pip})
	}
	out := struct {
		Name         string   `yaml:"name"`
		Channels     []string `yaml:"channels"`
		Dependencies []any    `yaml:"dependencies"`
		Prefix       string   `yaml:"prefix,omitempty"`
	}{s.Name, s.Channels, deps, s.Prefix}
	return out, nil
}

// ParseEnvironmentSpec decodes environment YAML.
func ParseEnvironmentSpec(data []byte) (*EnvironmentSpec, error) {
	var spec EnvironmentSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadEnvFile reads and validates an environment file before it is handed
// to micromamba, so that a typo fails fast with a readable error.
func LoadEnvFile(path string) (*EnvironmentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvFile, err)
	}
	spec, err := ParseEnvironmentSpec(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidEnvFile, path, err)
	}
	if len(spec.Dependencies) == 0 && len(spec.Pip) == 0 {
		return nil, fmt.Errorf("%w: %s: no dependencies listed", ErrInvalidEnvFile, path)
	}
	return spec, nil
}

var errEmptyExport = errors.New("empty export")
