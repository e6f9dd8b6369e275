package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RepoConfig is the shape of a repository's own `.prreview.yml`
// overlay document, checked in at the repository root. It only
// exposes the subset of Config an individual repository may
// reasonably override; installation-wide settings like credentials,
// queue tuning, and store configuration are never repo-overridable.
type RepoConfig struct {
	Instructions string        `yaml:"instructions"`
	Actions      ReviewActions `yaml:"actions"`
	IgnoredPaths []string      `yaml:"ignoredPaths"`
	SkipLabels   []string      `yaml:"skipLabels"`
}

// ParseRepoConfig parses a `.prreview.yml` document's raw bytes.
func ParseRepoConfig(data []byte) (RepoConfig, error) {
	var rc RepoConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return RepoConfig{}, fmt.Errorf("parse repo config: %w", err)
	}
	return rc, nil
}

// Overlay converts a RepoConfig into a Config overlay suitable for
// Merge, so a repository's `.prreview.yml` can win over installation
// defaults using the exact same field-level precedence rules as any
// other layer.
func (rc RepoConfig) Overlay() Config {
	return Config{
		Review: ReviewConfig{
			Instructions: rc.Instructions,
			Actions:      rc.Actions,
		},
		Gatekeeper: GatekeeperConfig{
			IgnoredPathGlobs: rc.IgnoredPaths,
			SkipLabels:       rc.SkipLabels,
		},
	}
}
