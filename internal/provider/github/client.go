// Package github reads pull requests and their discussion from GitHub.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/go-github/v67/github"

	"github.com/valksor/go-phaseflow/internal/cache"
	"github.com/valksor/go-phaseflow/internal/provider"
	perrors "github.com/valksor/go-phaseflow/internal/provider/errors"
	"github.com/valksor/go-phaseflow/internal/provider/httpclient"
	"github.com/valksor/go-phaseflow/internal/provider/token"
)

// ProviderName is the registry name of this platform
const ProviderName = "github"

const perPage = 100

// Client wraps the GitHub API client
type Client struct {
	gh    *github.Client
	owner string
	repo  string
	retry httpclient.Retry

	prCache       *cache.Cache[*provider.PullRequest]
	commentsCache *cache.Cache[[]provider.Comment]
}

var _ provider.PullRequestSource = (*Client)(nil)

// ClientOption configures a Client
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	noCache    bool
	retry      *httpclient.Retry
}

// WithBaseURL points the client at a GitHub Enterprise server
func WithBaseURL(u string) ClientOption {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithHTTPClient overrides the transport. The token is ignored when set.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithoutCache disables response caching
func WithoutCache() ClientOption {
	return func(o *clientOptions) { o.noCache = true }
}

// WithRetry replaces the retry policy for transient API failures
func WithRetry(r httpclient.Retry) ClientOption {
	return func(o *clientOptions) { o.retry = &r }
}

// NewClient creates a GitHub client for owner/repo. An empty token yields
// an anonymous client, which can read public repositories.
func NewClient(tok, owner, repo string, opts ...ClientOption) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = httpclient.NewAuthenticated(httpclient.New(), tok)
	}

	gh := github.NewClient(httpClient)
	if o.baseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(o.baseURL, o.baseURL)
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
	}

	c := &Client{
		gh:            gh,
		owner:         owner,
		repo:          repo,
		retry:         httpclient.DefaultRetry(),
		prCache:       cache.New[*provider.PullRequest](),
		commentsCache: cache.New[[]provider.Comment](),
	}
	if o.retry != nil {
		c.retry = *o.retry
	}
	if o.noCache {
		c.prCache.Disable()
		c.commentsCache.Disable()
	}

	return c, nil
}

// ResolveToken finds the GitHub token from multiple sources.
// Priority order:
//  1. PHASEFLOW_GITHUB_TOKEN env var
//  2. GITHUB_TOKEN env var
//  3. configToken (from config.yaml)
//  4. gh CLI auth token (via `gh auth token`)
func ResolveToken(configToken string) (string, error) {
	return token.Resolve(token.Config("GITHUB", configToken).
		WithEnvVars("GITHUB_TOKEN").
		WithCLIFallback(func() string { return token.CommandOutput("gh", "auth", "token") }))
}

// Name implements provider.PullRequestSource
func (c *Client) Name() string {
	return ProviderName
}

// Owner returns the repository owner
func (c *Client) Owner() string {
	return c.owner
}

// Repo returns the repository name
func (c *Client) Repo() string {
	return c.repo
}

// CacheKey generates a namespaced cache key for this client
func (c *Client) CacheKey(resourceType, id string) string {
	return fmt.Sprintf("github:%s/%s:%s:%s", c.owner, c.repo, resourceType, id)
}

// PullRequestForBranch returns the open pull request whose head is branch
func (c *Client) PullRequestForBranch(ctx context.Context, branch string) (*provider.PullRequest, error) {
	if branch == "" {
		return nil, provider.ErrNoPullRequest
	}

	return c.prCache.Fetch(c.CacheKey("branch", branch), cache.DefaultBranchTTL, func() (*provider.PullRequest, error) {
		prs, err := httpclient.Do(ctx, c.retry, func() ([]*github.PullRequest, error) {
			prs, _, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
				State:       "open",
				Head:        c.owner + ":" + branch,
				ListOptions: github.ListOptions{PerPage: 1},
			})
			return prs, wrapAPIError(err)
		})
		if err != nil {
			return nil, err
		}
		if len(prs) == 0 {
			return nil, fmt.Errorf("%w for branch %s", provider.ErrNoPullRequest, branch)
		}
		return mapPullRequest(prs[0]), nil
	})
}

// PullRequest fetches a pull request by number
func (c *Client) PullRequest(ctx context.Context, number int) (*provider.PullRequest, error) {
	key := c.CacheKey("pr", strconv.Itoa(number))

	return c.prCache.Fetch(key, cache.DefaultPullRequestTTL, func() (*provider.PullRequest, error) {
		pr, err := httpclient.Do(ctx, c.retry, func() (*github.PullRequest, error) {
			pr, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
			return pr, wrapAPIError(err)
		})
		if err != nil {
			if errors.Is(err, perrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: #%d: %w", provider.ErrNoPullRequest, number, err)
			}
			return nil, err
		}
		return mapPullRequest(pr), nil
	})
}

// Comments returns issue and review comments merged by creation time
func (c *Client) Comments(ctx context.Context, number int) ([]provider.Comment, error) {
	key := c.CacheKey("comments", strconv.Itoa(number))

	return c.commentsCache.Fetch(key, cache.DefaultCommentsTTL, func() ([]provider.Comment, error) {
		issue, err := c.issueComments(ctx, number)
		if err != nil {
			return nil, err
		}
		review, err := c.reviewComments(ctx, number)
		if err != nil {
			return nil, err
		}
		return provider.MergeComments(issue, review), nil
	})
}

func (c *Client) issueComments(ctx context.Context, number int) ([]provider.Comment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var out []provider.Comment
	for {
		var resp *github.Response
		comments, err := httpclient.Do(ctx, c.retry, func() ([]*github.IssueComment, error) {
			comments, r, err := c.gh.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
			resp = r
			return comments, wrapAPIError(err)
		})
		if err != nil {
			return nil, err
		}
		for _, cm := range comments {
			out = append(out, provider.Comment{
				ID:        strconv.FormatInt(cm.GetID(), 10),
				Author:    cm.GetUser().GetLogin(),
				Body:      cm.GetBody(),
				Kind:      provider.CommentIssue,
				CreatedAt: cm.GetCreatedAt().Time,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return out, nil
}

func (c *Client) reviewComments(ctx context.Context, number int) ([]provider.Comment, error) {
	opts := &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var out []provider.Comment
	for {
		var resp *github.Response
		comments, err := httpclient.Do(ctx, c.retry, func() ([]*github.PullRequestComment, error) {
			comments, r, err := c.gh.PullRequests.ListComments(ctx, c.owner, c.repo, number, opts)
			resp = r
			return comments, wrapAPIError(err)
		})
		if err != nil {
			return nil, err
		}
		for _, cm := range comments {
			out = append(out, provider.Comment{
				ID:        strconv.FormatInt(cm.GetID(), 10),
				Author:    cm.GetUser().GetLogin(),
				Body:      cm.GetBody(),
				Kind:      provider.CommentReview,
				Path:      cm.GetPath(),
				CreatedAt: cm.GetCreatedAt().Time,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return out, nil
}

func mapPullRequest(pr *github.PullRequest) *provider.PullRequest {
	return &provider.PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		URL:    pr.GetHTMLURL(),
		Branch: pr.GetHead().GetRef(),
		State:  pr.GetState(),
	}
}
