// Package conductor wires configuration, the event bus, the workflow store
// and the briefing sources into one dispatcher per process.
package conductor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/valksor/go-phaseflow/internal/briefing"
	"github.com/valksor/go-phaseflow/internal/config"
	"github.com/valksor/go-phaseflow/internal/dispatch"
	"github.com/valksor/go-phaseflow/internal/events"
	"github.com/valksor/go-phaseflow/internal/log"
	"github.com/valksor/go-phaseflow/internal/metrics"
	"github.com/valksor/go-phaseflow/internal/provider"
	"github.com/valksor/go-phaseflow/internal/provider/github"
	"github.com/valksor/go-phaseflow/internal/provider/gitlab"
	"github.com/valksor/go-phaseflow/internal/runbook"
	"github.com/valksor/go-phaseflow/internal/vcs"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

// Conductor owns every long-lived component of a phaseflow process.
type Conductor struct {
	opts Options
	cfg  *config.Config

	eventBus *events.Bus
	metrics  *metrics.Metrics

	store      *workflow.Store
	repo       *vcs.Repo
	prs        provider.PullRequestSource
	runbooks   *runbook.Catalogue
	aggregator *briefing.Aggregator
	dispatcher *dispatch.Dispatcher
}

// New builds the component graph. A missing git repository or hosting
// platform is not an error: the briefing simply leaves those sections out.
func New(ctx context.Context, opts ...Option) (*Conductor, error) {
	options := DefaultOptions()
	options.Apply(opts...)

	workDir, err := filepath.Abs(options.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolve work dir: %w", err)
	}
	options.WorkDir = workDir

	cfg := options.Config
	if cfg == nil {
		cfg, err = config.Load(workDir, options.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	c := &Conductor{
		opts:     options,
		cfg:      cfg,
		eventBus: events.NewBus(),
		metrics:  metrics.New(options.RuntimeMetrics),
	}
	c.metrics.Subscribe(c.eventBus)
	c.eventBus.SubscribeAll(logEvent)

	c.store = workflow.NewStore(workflow.WithPublisher(c.eventBus))

	c.repo, err = vcs.Open(workDir)
	if err != nil {
		if !errors.Is(err, vcs.ErrNotRepository) {
			return nil, err
		}
		log.Debug("no git repository, commit history disabled", "dir", workDir)
		c.repo = nil
	}

	c.prs = options.PullRequests
	if c.prs == nil {
		c.prs = c.openPullRequests(ctx)
	}

	c.runbooks = runbook.NewCatalogue(c.runbookDir())

	aggOpts := []briefing.Option{
		briefing.WithRunbooks(c.runbooks),
		briefing.WithPublisher(c.eventBus),
		briefing.WithLimits(briefing.Limits{
			CommitLimit:    cfg.Briefing.CommitLimit,
			CommentLimit:   cfg.Briefing.CommentLimit,
			CommentPreview: cfg.Briefing.CommentPreview,
		}),
	}
	// Typed nils must not reach the aggregator's interface fields.
	if c.repo != nil {
		aggOpts = append(aggOpts, briefing.WithRepository(c.repo))
	}
	if c.prs != nil {
		aggOpts = append(aggOpts, briefing.WithPullRequests(c.prs))
	}
	c.aggregator = briefing.NewAggregator(c.store, aggOpts...)

	c.dispatcher = dispatch.New(c.store,
		dispatch.WithAggregator(c.aggregator),
		dispatch.WithPublisher(c.eventBus),
		dispatch.WithDefaultScope(cfg.Scope()),
	)

	return c, nil
}

// runbookDir resolves the configured catalogue directory against the
// repository root, or the work dir outside a repository.
func (c *Conductor) runbookDir() string {
	dir := c.cfg.Runbooks.Dir
	if filepath.IsAbs(dir) {
		return dir
	}
	base := c.opts.WorkDir
	if c.repo != nil && c.repo.Root() != "" {
		base = c.repo.Root()
	}
	return filepath.Join(base, dir)
}

// NewRegistry returns a registry with every supported platform.
func NewRegistry() *provider.Registry {
	r := provider.NewRegistry()
	github.Register(r)
	gitlab.Register(r)
	return r
}

// openPullRequests picks the platform from configuration and the origin
// remote. Failures are logged and leave the process without a platform.
func (c *Conductor) openPullRequests(ctx context.Context) provider.PullRequestSource {
	remote := ""
	if c.repo != nil {
		if u, err := c.repo.RemoteURL(); err == nil {
			remote = u
		} else {
			log.Debug("no origin remote", log.Err(err))
		}
	}

	registry := NewRegistry()
	name := c.cfg.Provider.Name
	if name == provider.NameAuto || name == "" {
		detected, ok := registry.Detect(remote)
		if !ok {
			log.Debug("no hosting platform detected", "remote", remote)
			return nil
		}
		name = detected
	}

	src, err := registry.Open(ctx, name, remote, providerConfig(c.cfg, name))
	if err != nil {
		log.Warn("hosting platform unavailable, pull request context disabled", "provider", name, log.Err(err))
		return nil
	}
	if src != nil {
		log.Debug("hosting platform ready", "provider", src.Name())
	}
	return src
}

func providerConfig(cfg *config.Config, name string) provider.Config {
	pc := provider.NewConfig().Set("cache_disabled", cfg.Cache.Disabled)
	switch name {
	case github.ProviderName:
		pc.Set("token", cfg.GitHub.Token).
			Set("owner", cfg.GitHub.Owner).
			Set("repo", cfg.GitHub.Repo).
			Set("base_url", cfg.GitHub.BaseURL)
	case gitlab.ProviderName:
		pc.Set("token", cfg.GitLab.Token).
			Set("host", cfg.GitLab.Host).
			Set("project", cfg.GitLab.Project)
	}
	return pc
}

func logEvent(e events.Event) {
	kv := make([]any, 0, 2+2*len(e.Data))
	kv = append(kv, "type", string(e.Type))
	for k, v := range e.Data {
		kv = append(kv, k, v)
	}
	log.Debug("event", kv...)
}

// Close stops background event delivery
func (c *Conductor) Close() {
	c.eventBus.Shutdown()
}

// Config returns the effective configuration
func (c *Conductor) Config() *config.Config {
	return c.cfg
}

// WorkDir returns the absolute project directory
func (c *Conductor) WorkDir() string {
	return c.opts.WorkDir
}

// EventBus returns the event bus
func (c *Conductor) EventBus() *events.Bus {
	return c.eventBus
}

// Metrics returns the Prometheus counters
func (c *Conductor) Metrics() *metrics.Metrics {
	return c.metrics
}

// Store returns the workflow record
func (c *Conductor) Store() *workflow.Store {
	return c.store
}

// Repo returns the git repository, or nil outside one
func (c *Conductor) Repo() *vcs.Repo {
	return c.repo
}

// PullRequests returns the hosting platform, or nil when none is configured
func (c *Conductor) PullRequests() provider.PullRequestSource {
	return c.prs
}

// Runbooks returns the runbook catalogue
func (c *Conductor) Runbooks() *runbook.Catalogue {
	return c.runbooks
}

// Aggregator returns the briefing aggregator
func (c *Conductor) Aggregator() *briefing.Aggregator {
	return c.aggregator
}

// Dispatcher returns the action dispatcher
func (c *Conductor) Dispatcher() *dispatch.Dispatcher {
	return c.dispatcher
}
