package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
)

const (
	// Dir is the per-project configuration directory.
	Dir = ".phaseflow"
	// EnvFileName holds tokens and other PHASEFLOW_ overrides kept out of
	// config.yaml.
	EnvFileName = ".env"
)

// DotEnvPath returns <baseDir>/.phaseflow/.env.
func DotEnvPath(baseDir string) string {
	return filepath.Join(baseDir, Dir, EnvFileName)
}

// LoadDotEnv exports the variables of .phaseflow/.env that the environment
// does not already define, and returns their names sorted. A missing file
// exports nothing.
func LoadDotEnv(baseDir string) ([]string, error) {
	path := DotEnvPath(baseDir)
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var exported []string
	for key, value := range vars {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return exported, fmt.Errorf("set %s: %w", key, err)
		}
		exported = append(exported, key)
	}
	slices.Sort(exported)
	return exported, nil
}
