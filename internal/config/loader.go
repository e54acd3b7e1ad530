package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/valksor/go-phaseflow/internal/log"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix = "PHASEFLOW_"
	// ConfigFileName is the YAML file inside Dir.
	ConfigFileName = "config.yaml"

	maxConfigFileSize = 1024 * 1024
)

// DefaultConfigPath returns <baseDir>/.phaseflow/config.yaml
func DefaultConfigPath(baseDir string) string {
	return filepath.Join(baseDir, Dir, ConfigFileName)
}

// Load reads configuration for the project in baseDir.
//
// Precedence, highest first:
//  1. Environment variables (PHASEFLOW_BRIEFING_COMMIT_LIMIT -> briefing.commit_limit)
//  2. .phaseflow/.env, which never overrides variables already set
//  3. The YAML file at configPath, or .phaseflow/config.yaml when empty
//  4. NewDefault
//
// A missing default file is fine; a missing explicit file is an error.
func Load(baseDir, configPath string) (*Config, error) {
	exported, err := LoadDotEnv(baseDir)
	if err != nil {
		return nil, err
	}
	if len(exported) > 0 {
		log.Debug("exported variables from .env", "vars", exported)
	}

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath(baseDir)
	}

	k := koanf.New(".")

	content, err := readConfigFile(configPath)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := NewDefault()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// envKey maps PHASEFLOW_SECTION_FIELD_NAME to section.field_name. Only the
// first underscore after the prefix separates the section.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config file %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	return io.ReadAll(f)
}
