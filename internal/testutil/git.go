package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitTime is the author time of the first commit made by the helpers.
// Each following commit is one minute later.
var CommitTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// GitRepo is a temporary repository for tests.
type GitRepo struct {
	t       *testing.T
	Dir     string
	Repo    *git.Repository
	commits int
}

// CreateTempGitRepo initialises a repository in a temporary directory with
// a single "initial commit" on master.
func CreateTempGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	r := CreateEmptyGitRepo(t)
	r.CommitFile("README.md", "# Test Repository\n", "initial commit")
	return r
}

// CreateEmptyGitRepo initialises a repository without commits.
func CreateEmptyGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	NoError(t, err, "git init")

	return &GitRepo{t: t, Dir: dir, Repo: repo}
}

// CommitFile writes path and commits it with message. It returns the
// commit hash.
func (r *GitRepo) CommitFile(path, content, message string) string {
	r.t.Helper()

	WriteFile(r.t, filepath.Join(r.Dir, path), content)

	wt, err := r.Repo.Worktree()
	NoError(r.t, err, "worktree")

	_, err = wt.Add(path)
	NoError(r.t, err, "git add")

	when := CommitTime.Add(time.Duration(r.commits) * time.Minute)
	r.commits++

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: when},
	})
	NoError(r.t, err, "git commit")

	return hash.String()
}

// Checkout switches to branch, creating it when create is set.
func (r *GitRepo) Checkout(branch string, create bool) {
	r.t.Helper()

	wt, err := r.Repo.Worktree()
	NoError(r.t, err, "worktree")

	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	})
	NoError(r.t, err, "git checkout")
}

// DetachHead checks out the given commit directly.
func (r *GitRepo) DetachHead(hash string) {
	r.t.Helper()

	wt, err := r.Repo.Worktree()
	NoError(r.t, err, "worktree")

	err = wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(hash)})
	NoError(r.t, err, "git checkout")
}

// AddRemote configures a remote with a single URL.
func (r *GitRepo) AddRemote(name, url string) {
	r.t.Helper()

	_, err := r.Repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	NoError(r.t, err, "git remote add")
}
