// Package token resolves hosting-platform API tokens from the environment,
// configuration, and platform CLIs.
package token

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// EnvPrefix prefixes the tool-specific token variable, e.g.
// PHASEFLOW_GITHUB_TOKEN.
const EnvPrefix = "PHASEFLOW_"

// ErrNoToken is returned when no token can be resolved.
var ErrNoToken = errors.New("no token found")

// ResolverConfig defines the token sources for a platform.
type ResolverConfig struct {
	// ProviderName is upper case, e.g. "GITHUB".
	ProviderName string

	// DefaultEnvVars are conventional variables checked after the
	// prefixed one, e.g. GITHUB_TOKEN.
	DefaultEnvVars []string

	// ConfigToken is the value from config.yaml.
	ConfigToken string

	// CLIFallback runs last, e.g. `gh auth token`.
	CLIFallback func() string
}

// Resolve returns the first non-empty token from, in order: the
// PHASEFLOW_{NAME}_TOKEN variable, DefaultEnvVars, ConfigToken, and
// CLIFallback.
func Resolve(cfg ResolverConfig) (string, error) {
	if cfg.ProviderName != "" {
		if tok := strings.TrimSpace(os.Getenv(EnvPrefix + cfg.ProviderName + "_TOKEN")); tok != "" {
			return tok, nil
		}
	}

	for _, envVar := range cfg.DefaultEnvVars {
		if tok := strings.TrimSpace(os.Getenv(envVar)); tok != "" {
			return tok, nil
		}
	}

	if tok := strings.TrimSpace(cfg.ConfigToken); tok != "" {
		return tok, nil
	}

	if cfg.CLIFallback != nil {
		if tok := strings.TrimSpace(cfg.CLIFallback()); tok != "" {
			return tok, nil
		}
	}

	return "", ErrNoToken
}

// Config builds a ResolverConfig with just the config token.
func Config(providerName, configToken string) ResolverConfig {
	return ResolverConfig{
		ProviderName: providerName,
		ConfigToken:  configToken,
	}
}

// WithCLIFallback adds a CLI fallback function to the config.
func (c ResolverConfig) WithCLIFallback(fn func() string) ResolverConfig {
	c.CLIFallback = fn
	return c
}

// WithEnvVars adds environment variables to check.
func (c ResolverConfig) WithEnvVars(envVars ...string) ResolverConfig {
	c.DefaultEnvVars = append(c.DefaultEnvVars, envVars...)
	return c
}

// CommandOutput runs a CLI and returns its trimmed stdout, or "" when the
// command is missing or fails. It is meant for CLIFallback.
func CommandOutput(name string, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
