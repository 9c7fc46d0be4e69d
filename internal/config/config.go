// Package config validates the CLI surface (§6) and loads the optional
// YAML run-config that can supplement or replace repeated CLI flags for a
// scripted migration run, in the style of stefanom-schmux's
// internal/config YAML-backed settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/techsola/tfvc-migrator/internal/migerr"
	"github.com/techsola/tfvc-migrator/internal/topology"
)

// Options is the fully-parsed and validated CLI surface (§6).
type Options struct {
	ProjectCollectionURL string
	RootPath             string
	AuthorsPath          string
	OutDir               string
	MinChangeset         int
	MaxChangeset         int
	RootPathChanges      []topology.RootPathChange
	PAT                  string
	Parallelism          int
}

// RunConfig is the optional YAML run-config file: a repeatable, scriptable
// alternative to passing --root-path-changes and tuning knobs by hand on
// every invocation.
type RunConfig struct {
	Parallelism     int      `yaml:"parallelism,omitempty"`
	RootPathChanges []string `yaml:"root_path_changes,omitempty"`
	RetryAttempts   int      `yaml:"retry_attempts,omitempty"`
	RetryBaseMs     int      `yaml:"retry_base_ms,omitempty"`
	RetryMaxMs      int      `yaml:"retry_max_ms,omitempty"`
}

// LoadRunConfig reads and parses a YAML run-config file.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, migerr.Wrap(migerr.Configuration, fmt.Errorf("reading run config: %w", err))
	}
	var rc RunConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, migerr.Wrap(migerr.Configuration, fmt.Errorf("parsing run config: %w", err))
	}
	return &rc, nil
}

// ParseRootPathChange parses one `CSn:$/new` entry from --root-path-changes
// or a RunConfig.RootPathChanges line.
func ParseRootPathChange(s string) (topology.RootPathChange, error) {
	colon := strings.Index(s, ":")
	if colon < 0 {
		return topology.RootPathChange{}, migerr.New(migerr.Configuration, "malformed root-path-change (want CSn:$/new): "+s)
	}
	csPart := strings.TrimSpace(s[:colon])
	newPath := strings.TrimSpace(s[colon+1:])

	if !strings.HasPrefix(csPart, "CS") {
		return topology.RootPathChange{}, migerr.New(migerr.Configuration, "malformed root-path-change changeset prefix (want CSn): "+s)
	}
	changeset, err := strconv.Atoi(strings.TrimPrefix(csPart, "CS"))
	if err != nil {
		return topology.RootPathChange{}, migerr.New(migerr.Configuration, "malformed root-path-change changeset number: "+s)
	}
	if !strings.HasPrefix(newPath, "$/") {
		return topology.RootPathChange{}, migerr.New(migerr.Configuration, "root-path-change new path must begin with $/: "+s)
	}
	return topology.RootPathChange{Changeset: changeset, NewRootPath: newPath}, nil
}

// Validate checks the CLI surface for the failures §7 classifies as
// ConfigurationError. Unmapped authors are validated later, once the
// authors file itself has been parsed.
func Validate(o *Options) error {
	if o.ProjectCollectionURL == "" {
		return migerr.New(migerr.Configuration, "project-collection URL is required")
	}
	if o.RootPath == "" || !strings.HasPrefix(o.RootPath, "$/") {
		return migerr.New(migerr.Configuration, "root-path must begin with $/")
	}
	if o.AuthorsPath == "" {
		return migerr.New(migerr.Configuration, "--authors is required")
	}
	if o.OutDir == "" {
		return migerr.New(migerr.Configuration, "--out-dir is required")
	}
	if o.MinChangeset != 0 && o.MaxChangeset != 0 && o.MinChangeset > o.MaxChangeset {
		return migerr.New(migerr.Configuration, "--min-changeset must not exceed --max-changeset")
	}

	seen := make(map[int]bool)
	for _, rc := range o.RootPathChanges {
		if seen[rc.Changeset] {
			return migerr.New(migerr.Configuration, fmt.Sprintf("more than one root-path-change at changeset %d", rc.Changeset))
		}
		seen[rc.Changeset] = true
		if rc.Changeset <= o.MinChangeset {
			return migerr.New(migerr.Configuration, fmt.Sprintf("root-path-change at changeset %d is not strictly greater than the initial changeset", rc.Changeset))
		}
	}
	return nil
}
