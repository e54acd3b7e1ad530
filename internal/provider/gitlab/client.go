// Package gitlab reads merge requests and their discussion from GitLab.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/valksor/go-phaseflow/internal/cache"
	"github.com/valksor/go-phaseflow/internal/provider"
	perrors "github.com/valksor/go-phaseflow/internal/provider/errors"
	"github.com/valksor/go-phaseflow/internal/provider/httpclient"
	"github.com/valksor/go-phaseflow/internal/provider/token"
)

// ProviderName is the registry name of this platform.
const ProviderName = "gitlab"

// DefaultHost is used when no host is configured or detected.
const DefaultHost = "https://gitlab.com"

const perPage = 100

// noteTypeDiff marks notes attached to a line of the diff.
const noteTypeDiff = "DiffNote"

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}

// Client wraps the GitLab API client.
type Client struct {
	gl          *gitlab.Client
	host        string
	projectPath string // e.g. "group/subgroup/project"

	prCache       *cache.Cache[*provider.PullRequest]
	commentsCache *cache.Cache[[]provider.Comment]
}

var _ provider.PullRequestSource = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	noCache    bool
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithoutCache disables response caching.
func WithoutCache() ClientOption {
	return func(o *clientOptions) { o.noCache = true }
}

// NewClient creates a GitLab client for projectPath on host. An empty host
// means gitlab.com.
func NewClient(tok, host, projectPath string, opts ...ClientOption) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	httpClient := o.httpClient
	if httpClient == nil {
		// client-go retries 429 and 5xx itself; only the timeout is ours.
		httpClient = httpclient.New()
	}
	options := []gitlab.ClientOptionFunc{
		gitlab.WithBaseURL(host + "/api/v4"),
		gitlab.WithHTTPClient(httpClient),
	}

	gl, err := gitlab.NewClient(tok, options...)
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}

	c := &Client{
		gl:            gl,
		host:          host,
		projectPath:   projectPath,
		prCache:       cache.New[*provider.PullRequest](),
		commentsCache: cache.New[[]provider.Comment](),
	}
	if o.noCache {
		c.prCache.Disable()
		c.commentsCache.Disable()
	}

	return c, nil
}

// ResolveToken finds the GitLab token from multiple sources.
// Priority order:
//  1. PHASEFLOW_GITLAB_TOKEN env var
//  2. GITLAB_TOKEN env var
//  3. configToken (from config.yaml)
func ResolveToken(configToken string) (string, error) {
	return token.Resolve(token.Config("GITLAB", configToken).WithEnvVars("GITLAB_TOKEN"))
}

// Name implements provider.PullRequestSource.
func (c *Client) Name() string {
	return ProviderName
}

// Host returns the base URL of the GitLab server.
func (c *Client) Host() string {
	return c.host
}

// ProjectPath returns the project path.
func (c *Client) ProjectPath() string {
	return c.projectPath
}

// CacheKey generates a namespaced cache key for this client.
func (c *Client) CacheKey(resourceType, id string) string {
	return fmt.Sprintf("gitlab:%s:%s:%s", c.projectPath, resourceType, id)
}

// PullRequestForBranch returns the open merge request whose source branch is branch.
func (c *Client) PullRequestForBranch(ctx context.Context, branch string) (*provider.PullRequest, error) {
	if branch == "" {
		return nil, provider.ErrNoPullRequest
	}

	return c.prCache.Fetch(c.CacheKey("branch", branch), cache.DefaultBranchTTL, func() (*provider.PullRequest, error) {
		mrs, _, err := c.gl.MergeRequests.ListProjectMergeRequests(c.projectPath, &gitlab.ListProjectMergeRequestsOptions{
			SourceBranch: ptr(branch),
			State:        ptr("opened"),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return nil, wrapAPIError(err)
		}
		if len(mrs) == 0 {
			return nil, fmt.Errorf("%w for branch %s", provider.ErrNoPullRequest, branch)
		}
		return mapMergeRequest(mrs[0]), nil
	})
}

// PullRequest fetches a merge request by IID.
func (c *Client) PullRequest(ctx context.Context, number int) (*provider.PullRequest, error) {
	key := c.CacheKey("mr", strconv.Itoa(number))

	return c.prCache.Fetch(key, cache.DefaultPullRequestTTL, func() (*provider.PullRequest, error) {
		mr, _, err := c.gl.MergeRequests.GetMergeRequest(c.projectPath, int64(number), nil, gitlab.WithContext(ctx))
		if err != nil {
			err = wrapAPIError(err)
			if errors.Is(err, perrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: !%d: %w", provider.ErrNoPullRequest, number, err)
			}
			return nil, err
		}
		return mapMergeRequest(&mr.BasicMergeRequest), nil
	})
}

// Comments returns the user notes of a merge request ordered by creation
// time. System notes are skipped; diff notes are reported as review comments.
func (c *Client) Comments(ctx context.Context, number int) ([]provider.Comment, error) {
	key := c.CacheKey("comments", strconv.Itoa(number))

	return c.commentsCache.Fetch(key, cache.DefaultCommentsTTL, func() ([]provider.Comment, error) {
		opts := &gitlab.ListMergeRequestNotesOptions{
			ListOptions: gitlab.ListOptions{PerPage: perPage},
			OrderBy:     ptr("created_at"),
			Sort:        ptr("asc"),
		}

		var out []provider.Comment
		for {
			notes, resp, err := c.gl.Notes.ListMergeRequestNotes(c.projectPath, int64(number), opts, gitlab.WithContext(ctx))
			if err != nil {
				return nil, wrapAPIError(err)
			}
			for _, n := range notes {
				if n == nil || n.System {
					continue
				}
				out = append(out, mapNote(n))
			}
			if resp == nil || resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}

		return provider.MergeComments(out), nil
	})
}

func mapMergeRequest(mr *gitlab.BasicMergeRequest) *provider.PullRequest {
	return &provider.PullRequest{
		Number: int(mr.IID),
		Title:  mr.Title,
		Body:   mr.Description,
		URL:    mr.WebURL,
		Branch: mr.SourceBranch,
		State:  mr.State,
	}
}

func mapNote(n *gitlab.Note) provider.Comment {
	cm := provider.Comment{
		ID:     strconv.FormatInt(n.ID, 10),
		Author: n.Author.Username,
		Body:   n.Body,
		Kind:   provider.CommentIssue,
	}
	if n.CreatedAt != nil {
		cm.CreatedAt = *n.CreatedAt
	}
	if string(n.Type) == noteTypeDiff {
		cm.Kind = provider.CommentReview
		if n.Position != nil {
			cm.Path = n.Position.NewPath
		}
	}
	return cm
}
