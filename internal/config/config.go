// Package config loads phaseflow settings from defaults, an optional YAML
// file and PHASEFLOW_* environment variables.
package config

import (
	"fmt"
	"slices"

	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/provider"
	"github.com/valksor/go-phaseflow/internal/runbook"
)

// Config holds all application configuration
type Config struct {
	Workflow WorkflowConfig `koanf:"workflow"`
	Briefing BriefingConfig `koanf:"briefing"`
	Runbooks RunbooksConfig `koanf:"runbooks"`
	Provider ProviderConfig `koanf:"provider"`
	GitHub   GitHubConfig   `koanf:"github"`
	GitLab   GitLabConfig   `koanf:"gitlab"`
	Cache    CacheConfig    `koanf:"cache"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// WorkflowConfig holds plan defaults
type WorkflowConfig struct {
	DefaultScope string `koanf:"default_scope"`
}

// BriefingConfig caps what the context aggregator reads
type BriefingConfig struct {
	CommitLimit    int `koanf:"commit_limit"`
	CommentLimit   int `koanf:"comment_limit"`
	CommentPreview int `koanf:"comment_preview"`
}

// RunbooksConfig locates the runbook catalogue
type RunbooksConfig struct {
	Dir string `koanf:"dir"`
}

// ProviderConfig selects the hosting platform: auto, github, gitlab or none
type ProviderConfig struct {
	Name string `koanf:"name"`
}

// GitHubConfig holds GitHub settings. Owner and repo default to the origin
// remote.
type GitHubConfig struct {
	Token   string `koanf:"token"`
	Owner   string `koanf:"owner"`
	Repo    string `koanf:"repo"`
	BaseURL string `koanf:"base_url"`
}

// GitLabConfig holds GitLab settings. Host and project default to the origin
// remote.
type GitLabConfig struct {
	Token   string `koanf:"token"`
	Host    string `koanf:"host"`
	Project string `koanf:"project"`
}

// CacheConfig controls platform response caching
type CacheConfig struct {
	Disabled bool `koanf:"disabled"`
}

// LogConfig holds logger settings
type LogConfig struct {
	JSON    bool `koanf:"json"`
	Verbose bool `koanf:"verbose"`
}

// MetricsConfig holds the Prometheus endpoint address. Empty disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// NewDefault creates a Config with default values
func NewDefault() *Config {
	return &Config{
		Workflow: WorkflowConfig{
			DefaultScope: string(phase.DefaultScope),
		},
		Briefing: BriefingConfig{
			CommitLimit:    10,
			CommentLimit:   10,
			CommentPreview: 200,
		},
		Runbooks: RunbooksConfig{
			Dir: runbook.DefaultDir,
		},
		Provider: ProviderConfig{
			Name: provider.NameAuto,
		},
	}
}

// ProviderNames lists the accepted provider.name values.
var ProviderNames = []string{provider.NameAuto, "github", "gitlab", provider.NameNone}

// Validate checks values that the type system cannot
func (c *Config) Validate() error {
	if _, err := phase.ParseScope(c.Workflow.DefaultScope); err != nil {
		return fmt.Errorf("workflow.default_scope: %w", err)
	}

	if !slices.Contains(ProviderNames, c.Provider.Name) {
		return fmt.Errorf("invalid provider.name: %s (must be one of %v)", c.Provider.Name, ProviderNames)
	}

	if c.Briefing.CommitLimit < 0 {
		return fmt.Errorf("invalid briefing.commit_limit: %d (must not be negative)", c.Briefing.CommitLimit)
	}
	if c.Briefing.CommentLimit < 0 {
		return fmt.Errorf("invalid briefing.comment_limit: %d (must not be negative)", c.Briefing.CommentLimit)
	}
	if c.Briefing.CommentPreview < 0 {
		return fmt.Errorf("invalid briefing.comment_preview: %d (must not be negative)", c.Briefing.CommentPreview)
	}

	if c.Runbooks.Dir == "" {
		return fmt.Errorf("runbooks.dir must not be empty")
	}

	return nil
}

// Scope returns the validated default scope
func (c *Config) Scope() phase.Scope {
	s, err := phase.ParseScope(c.Workflow.DefaultScope)
	if err != nil {
		return phase.DefaultScope
	}
	return s
}
