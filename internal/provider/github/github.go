package github

import (
	"context"
	"errors"

	"github.com/valksor/go-phaseflow/internal/log"
	"github.com/valksor/go-phaseflow/internal/provider"
	"github.com/valksor/go-phaseflow/internal/provider/token"
)

// Info returns provider metadata
func Info() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:        ProviderName,
		Description: "GitHub pull requests",
		Hosts:       []string{"github.com"},
		Priority:    20,
	}
}

// Register adds the GitHub source to the registry.
func Register(r *provider.Registry) {
	_ = r.Register(Info(), New)
}

// New creates a GitHub source from configuration. Recognised keys: token,
// owner, repo, base_url, remote_url, cache_disabled. Owner and repo fall back
// to the remote URL.
func New(_ context.Context, cfg provider.Config) (provider.PullRequestSource, error) {
	owner := cfg.GetString("owner")
	repo := cfg.GetString("repo")
	if owner == "" || repo == "" {
		o, r, err := DetectRepository(cfg.GetString("remote_url"))
		if err != nil {
			return nil, err
		}
		if owner == "" {
			owner = o
		}
		if repo == "" {
			repo = r
		}
	}

	tok, err := ResolveToken(cfg.GetString("token"))
	if err != nil {
		if !errors.Is(err, token.ErrNoToken) {
			return nil, err
		}
		log.Debug("no github token, using anonymous access", "repo", owner+"/"+repo)
	}

	var opts []ClientOption
	if base := cfg.GetString("base_url"); base != "" {
		opts = append(opts, WithBaseURL(base))
	}
	if cfg.GetBool("cache_disabled") {
		opts = append(opts, WithoutCache())
	}

	client, err := NewClient(tok, owner, repo, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}
