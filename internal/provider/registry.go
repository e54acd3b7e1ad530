package provider

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Platform names accepted in configuration besides registered providers.
const (
	NameAuto = "auto"
	NameNone = "none"
)

// ProviderInfo describes a registered platform.
type ProviderInfo struct {
	Name        string
	Description string
	// Hosts are remote URL host fragments that select this platform when
	// the configured name is "auto".
	Hosts    []string
	Priority int // Higher priority = checked first for auto-detection
}

// Config holds provider configuration
type Config struct {
	options map[string]any
}

// NewConfig creates a new config
func NewConfig() Config {
	return Config{options: make(map[string]any)}
}

// Set sets an option
func (c Config) Set(key string, value any) Config {
	c.options[key] = value
	return c
}

// GetString gets a string option
func (c Config) GetString(key string) string {
	if v, ok := c.options[key].(string); ok {
		return v
	}
	return ""
}

// GetBool gets a bool option
func (c Config) GetBool(key string) bool {
	if v, ok := c.options[key].(bool); ok {
		return v
	}
	return false
}

// Factory creates a pull request source.
type Factory func(ctx context.Context, cfg Config) (PullRequestSource, error)

type registeredProvider struct {
	info    ProviderInfo
	factory Factory
}

// Registry manages platform registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]registeredProvider
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]registeredProvider),
	}
}

// Register adds a platform to the registry.
func (r *Registry) Register(info ProviderInfo, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[info.Name]; exists {
		return fmt.Errorf("provider %s already registered", info.Name)
	}
	r.providers[info.Name] = registeredProvider{info: info, factory: factory}

	return nil
}

// Get returns provider info and factory by name.
func (r *Registry) Get(name string) (ProviderInfo, Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rp, ok := r.providers[name]
	if !ok {
		return ProviderInfo{}, nil, false
	}
	return rp.info, rp.factory, true
}

// List returns all registered providers sorted by priority (highest first).
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.providers))
	for _, rp := range r.providers {
		infos = append(infos, rp.info)
	}
	slices.SortFunc(infos, func(a, b ProviderInfo) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	return infos
}

// Detect returns the platform whose host matches remoteURL.
func (r *Registry) Detect(remoteURL string) (string, bool) {
	for _, info := range r.List() {
		for _, host := range info.Hosts {
			if host != "" && strings.Contains(remoteURL, host) {
				return info.Name, true
			}
		}
	}
	return "", false
}

// Open creates the source for name. "auto" picks a platform from the
// remote URL; "none" and an undetectable remote yield a nil source and no
// error, since the briefing works without a platform.
func (r *Registry) Open(ctx context.Context, name, remoteURL string, cfg Config) (PullRequestSource, error) {
	switch name {
	case NameNone:
		return nil, nil
	case NameAuto, "":
		detected, ok := r.Detect(remoteURL)
		if !ok {
			return nil, nil
		}
		name = detected
	}

	info, factory, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %s)", name, strings.Join(r.names(), ", "))
	}

	src, err := factory(ctx, cfg.Set("remote_url", remoteURL))
	if err != nil {
		return nil, fmt.Errorf("create provider %s: %w", info.Name, err)
	}
	return src, nil
}

func (r *Registry) names() []string {
	infos := r.List()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	slices.Sort(names)
	return names
}
