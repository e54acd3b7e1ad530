package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/valksor/go-phaseflow/internal/provider"
)

// FakePullRequests is an in-memory provider.PullRequestSource.
type FakePullRequests struct {
	mu       sync.Mutex
	byBranch map[string]int
	prs      map[int]*provider.PullRequest
	comments map[int][]provider.Comment

	// Err, when set, is returned by every call.
	Err error
	// CommentsErr, when set, is returned by Comments only.
	CommentsErr error

	calls []string
}

var _ provider.PullRequestSource = (*FakePullRequests)(nil)

// NewFakePullRequests creates an empty fake.
func NewFakePullRequests() *FakePullRequests {
	return &FakePullRequests{
		byBranch: make(map[string]int),
		prs:      make(map[int]*provider.PullRequest),
		comments: make(map[int][]provider.Comment),
	}
}

// Add registers pr as open for its branch, with comments.
func (f *FakePullRequests) Add(pr provider.PullRequest, comments ...provider.Comment) *FakePullRequests {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prs[pr.Number] = &pr
	if pr.Branch != "" {
		f.byBranch[pr.Branch] = pr.Number
	}
	f.comments[pr.Number] = comments
	return f
}

// Calls returns the method calls made so far, e.g. "PullRequest(7)".
func (f *FakePullRequests) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// Name implements provider.PullRequestSource.
func (f *FakePullRequests) Name() string {
	return "fake"
}

// PullRequestForBranch implements provider.PullRequestSource.
func (f *FakePullRequests) PullRequestForBranch(_ context.Context, branch string) (*provider.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fmt.Sprintf("PullRequestForBranch(%s)", branch))
	if f.Err != nil {
		return nil, f.Err
	}
	n, ok := f.byBranch[branch]
	if !ok {
		return nil, fmt.Errorf("%w for branch %s", provider.ErrNoPullRequest, branch)
	}
	pr := *f.prs[n]
	return &pr, nil
}

// PullRequest implements provider.PullRequestSource.
func (f *FakePullRequests) PullRequest(_ context.Context, number int) (*provider.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fmt.Sprintf("PullRequest(%d)", number))
	if f.Err != nil {
		return nil, f.Err
	}
	pr, ok := f.prs[number]
	if !ok {
		return nil, fmt.Errorf("%w: #%d", provider.ErrNoPullRequest, number)
	}
	cp := *pr
	return &cp, nil
}

// Comments implements provider.PullRequestSource.
func (f *FakePullRequests) Comments(_ context.Context, number int) ([]provider.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fmt.Sprintf("Comments(%d)", number))
	if f.Err != nil {
		return nil, f.Err
	}
	if f.CommentsErr != nil {
		return nil, f.CommentsErr
	}
	return provider.MergeComments(f.comments[number]), nil
}
