// Package provider defines the read-only view of a hosting platform that
// the workflow briefing needs: the pull request for a branch, its
// description, and its discussion.
package provider

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"
)

// ErrNoPullRequest is returned when no pull request exists for the
// requested branch or number.
var ErrNoPullRequest = errors.New("no pull request found")

// PullRequest is a platform-neutral pull (or merge) request.
type PullRequest struct {
	Number int
	Title  string
	Body   string
	URL    string
	Branch string
	State  string
}

// CommentKind tells issue-style discussion apart from review comments
// attached to code.
type CommentKind string

const (
	CommentIssue  CommentKind = "issue"
	CommentReview CommentKind = "review"
)

// Comment is one entry of a pull request discussion.
type Comment struct {
	ID        string
	Author    string
	Body      string
	Kind      CommentKind
	Path      string // file path for review comments
	CreatedAt time.Time
}

// PullRequestSource reads pull requests from a hosting platform.
type PullRequestSource interface {
	// Name identifies the platform, e.g. "github".
	Name() string
	// PullRequestForBranch returns the open pull request whose head is
	// branch, or ErrNoPullRequest.
	PullRequestForBranch(ctx context.Context, branch string) (*PullRequest, error)
	// PullRequest returns the pull request with the given number, or
	// ErrNoPullRequest.
	PullRequest(ctx context.Context, number int) (*PullRequest, error)
	// Comments returns issue and review comments merged in ascending
	// creation order.
	Comments(ctx context.Context, number int) ([]Comment, error)
}

// MergeComments interleaves comment lists into one list sorted ascending by
// creation time. Ties keep issue comments before review comments.
func MergeComments(lists ...[]Comment) []Comment {
	var merged []Comment
	for _, l := range lists {
		merged = append(merged, l...)
	}
	slices.SortStableFunc(merged, func(a, b Comment) int {
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})
	return merged
}
