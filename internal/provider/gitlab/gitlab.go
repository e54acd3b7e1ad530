package gitlab

import (
	"context"
	"errors"

	"github.com/valksor/go-phaseflow/internal/log"
	"github.com/valksor/go-phaseflow/internal/provider"
	"github.com/valksor/go-phaseflow/internal/provider/token"
)

// Info returns provider metadata.
func Info() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:        ProviderName,
		Description: "GitLab merge requests",
		Hosts:       []string{"gitlab"},
		Priority:    10,
	}
}

// Register adds the GitLab source to the registry.
func Register(r *provider.Registry) {
	_ = r.Register(Info(), New)
}

// New creates a GitLab source from configuration. Recognised keys: token,
// host, project, remote_url, cache_disabled. Host and project fall back to
// the remote URL.
func New(_ context.Context, cfg provider.Config) (provider.PullRequestSource, error) {
	remote := cfg.GetString("remote_url")

	project := cfg.GetString("project")
	if project == "" {
		p, err := DetectProject(remote)
		if err != nil {
			return nil, err
		}
		project = p
	}

	host := cfg.GetString("host")
	if host == "" {
		host = HostFromRemote(remote)
	}

	tok, err := ResolveToken(cfg.GetString("token"))
	if err != nil {
		if !errors.Is(err, token.ErrNoToken) {
			return nil, err
		}
		log.Debug("no gitlab token, using anonymous access", "project", project)
	}

	var opts []ClientOption
	if cfg.GetBool("cache_disabled") {
		opts = append(opts, WithoutCache())
	}

	client, err := NewClient(tok, host, project, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}
