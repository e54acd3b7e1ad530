package gitlab

import (
	"fmt"
	"net/url"
	"strings"

	perrors "github.com/valksor/go-phaseflow/internal/provider/errors"
)

// DetectProject parses the GitLab group/project path from a git remote URL.
// Supports:
//   - git@gitlab.com:group/project.git
//   - git@gitlab.example.com:group/subgroup/project.git
//   - ssh://git@gitlab.example.com:2222/group/project.git
//   - https://gitlab.com/group/project(.git)
func DetectProject(remoteURL string) (string, error) {
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return "", perrors.ErrRepoNotDetected
	}

	var path string
	switch {
	case strings.HasPrefix(remoteURL, "git@"):
		idx := strings.Index(remoteURL, ":")
		if idx < 0 {
			break
		}
		path = remoteURL[idx+1:]
	case strings.Contains(remoteURL, "://"):
		u, err := url.Parse(remoteURL)
		if err != nil {
			return "", fmt.Errorf("%w: %w", perrors.ErrRepoNotDetected, err)
		}
		path = strings.TrimPrefix(u.Path, "/")
	}

	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	if !strings.Contains(path, "/") {
		return "", fmt.Errorf("%w: not a GitLab project URL: %s", perrors.ErrRepoNotDetected, remoteURL)
	}

	return path, nil
}

// HostFromRemote returns the https base URL of the server a remote points
// at, e.g. "https://gitlab.example.com". It returns "" when the remote has no
// recognisable host.
func HostFromRemote(remoteURL string) string {
	remoteURL = strings.TrimSpace(remoteURL)

	if rest, ok := strings.CutPrefix(remoteURL, "git@"); ok {
		host, _, found := strings.Cut(rest, ":")
		if !found || host == "" {
			return ""
		}
		return "https://" + host
	}

	u, err := url.Parse(remoteURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return "https://" + u.Hostname()
}
