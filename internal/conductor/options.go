package conductor

import (
	"github.com/valksor/go-phaseflow/internal/config"
	"github.com/valksor/go-phaseflow/internal/provider"
)

// Options configures the Conductor
type Options struct {
	// Paths
	WorkDir    string // Project directory (default: current dir)
	ConfigPath string // YAML config file (default: <WorkDir>/.phaseflow/config.yaml)

	// Config, when set, is used as is instead of loading from disk.
	Config *config.Config

	// PullRequests overrides the platform chosen from configuration.
	PullRequests provider.PullRequestSource

	// RuntimeMetrics adds Go runtime and process collectors to the registry.
	RuntimeMetrics bool
}

// Option is a functional option for configuring Conductor
type Option func(*Options)

// DefaultOptions returns default options
func DefaultOptions() Options {
	return Options{
		WorkDir: ".",
	}
}

// Apply applies options in order
func (o *Options) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// WithWorkDir sets the project directory
func WithWorkDir(dir string) Option {
	return func(o *Options) {
		if dir != "" {
			o.WorkDir = dir
		}
	}
}

// WithConfigPath sets an explicit config file
func WithConfigPath(path string) Option {
	return func(o *Options) {
		o.ConfigPath = path
	}
}

// WithConfig skips loading and uses cfg
func WithConfig(cfg *config.Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithPullRequests injects a pull request source
func WithPullRequests(src provider.PullRequestSource) Option {
	return func(o *Options) {
		o.PullRequests = src
	}
}

// WithRuntimeMetrics enables runtime collectors for long-running servers
func WithRuntimeMetrics() Option {
	return func(o *Options) {
		o.RuntimeMetrics = true
	}
}
