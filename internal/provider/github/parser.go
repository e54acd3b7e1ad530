package github

import (
	"fmt"
	"strings"

	perrors "github.com/valksor/go-phaseflow/internal/provider/errors"
)

// DetectRepository parses the GitHub owner/repo from a git remote URL.
// Supports:
//   - git@github.com:owner/repo.git
//   - ssh://git@github.com/owner/repo.git
//   - https://github.com/owner/repo(.git)
//   - https://token@github.com/owner/repo
func DetectRepository(remoteURL string) (string, string, error) {
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return "", "", perrors.ErrRepoNotDetected
	}

	var path string
	switch {
	case strings.HasPrefix(remoteURL, "git@github.com:"):
		path = strings.TrimPrefix(remoteURL, "git@github.com:")
	case strings.Contains(remoteURL, "github.com/"):
		path = remoteURL[strings.Index(remoteURL, "github.com/")+len("github.com/"):]
	default:
		return "", "", fmt.Errorf("%w: not a GitHub URL: %s", perrors.ErrRepoNotDetected, remoteURL)
	}

	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: missing owner/repo in %s", perrors.ErrRepoNotDetected, remoteURL)
	}

	return parts[0], parts[1], nil
}
