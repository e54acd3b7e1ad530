// Package vcs reads the local git repository: recent history, the checked
// out branch and the origin remote.
//
// Repo methods are safe for concurrent use; they only read from the
// repository.
//
// Usage:
//
//	r, err := vcs.Open(".")
//	if err != nil {
//	    return err
//	}
//	commits, _ := r.RecentCommits(ctx, 10)
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// DefaultRemote is the remote consulted by RemoteURL.
const DefaultRemote = "origin"

const shortHashLen = 7

var (
	// ErrNotRepository is returned when no repository encloses the path.
	ErrNotRepository = errors.New("not a git repository")

	// ErrDetachedHead is returned by CurrentBranch when HEAD is not a branch.
	ErrDetachedHead = errors.New("HEAD is detached")

	// ErrNoRemote is returned when the requested remote is not configured.
	ErrNoRemote = errors.New("remote not configured")
)

// Commit is one entry of the history.
type Commit struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"shortHash"`
	Subject   string    `json:"subject"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Date      time.Time `json:"date"`
}

// Repo is a read-only view of a git repository.
type Repo struct {
	repo *git.Repository
	root string
}

// Open finds the repository enclosing path.
func Open(path string) (*Repo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, absPath)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}

	r := &Repo{repo: repo}
	if wt, err := repo.Worktree(); err == nil {
		r.root = wt.Filesystem.Root()
	}

	return r, nil
}

// IsRepo checks if the path is inside a git repository.
func IsRepo(path string) bool {
	_, err := Open(path)
	return err == nil
}

// Root returns the worktree root, or "" for bare repositories.
func (r *Repo) Root() string {
	return r.root
}

// CurrentBranch returns the short name of the checked out branch. It works
// on an unborn branch (no commits yet).
func (r *Repo) CurrentBranch() (string, error) {
	ref, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if ref.Type() != plumbing.SymbolicReference || !ref.Target().IsBranch() {
		return "", ErrDetachedHead
	}
	return ref.Target().Short(), nil
}

// RemoteURL returns the first URL of the origin remote.
func (r *Repo) RemoteURL() (string, error) {
	return r.RemoteURLFor(DefaultRemote)
}

// RemoteURLFor returns the first URL of the named remote.
func (r *Repo) RemoteURLFor(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNoRemote, name)
		}
		return "", fmt.Errorf("read remote %s: %w", name, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s has no url", ErrNoRemote, name)
	}
	return urls[0], nil
}

// RecentCommits returns up to n commits reachable from HEAD, newest first.
// A repository without commits yields an empty list.
func (r *Repo) RecentCommits(ctx context.Context, n int) ([]Commit, error) {
	if n <= 0 {
		return nil, nil
	}

	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	defer iter.Close()

	commits := make([]Commit, 0, n)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		commits = append(commits, newCommit(c))
		if len(commits) >= n {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}

	return commits, nil
}

func newCommit(c *object.Commit) Commit {
	hash := c.Hash.String()
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")

	return Commit{
		Hash:      hash,
		ShortHash: hash[:shortHashLen],
		Subject:   strings.TrimSpace(subject),
		Author:    c.Author.Name,
		Email:     c.Author.Email,
		Date:      c.Author.When,
	}
}
