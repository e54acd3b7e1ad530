// Package testutil provides shared helpers for phaseflow tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// NoError fails the test immediately when err is set. what names the
// setup step in the failure message.
func NoError(t *testing.T, err error, what string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", what, err)
	}
}

// WriteFile writes content to path, creating parent directories. Tests use
// it for runbooks, config files and .env files under a temp dir.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "create "+filepath.Dir(path))
	NoError(t, os.WriteFile(path, []byte(content), 0o644), "write "+path)
}
