// Package briefing collects the externally observable history that feeds
// phase planning: recent commits, pull request discussion, completed tasks
// and handover notes.
//
// Every external query has its own failure boundary. A failing query is
// logged, reported as a source_failed event and leaves its section empty;
// it never fails the whole briefing.
package briefing

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/valksor/go-phaseflow/internal/events"
	"github.com/valksor/go-phaseflow/internal/log"
	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/provider"
	"github.com/valksor/go-phaseflow/internal/runbook"
	"github.com/valksor/go-phaseflow/internal/vcs"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

// Source names used in logs and source_failed events.
const (
	SourceCommits  = "commits"
	SourceComments = "comments"
	SourceRunbooks = "runbooks"
)

// ErrNoSource is returned by PullRequest when no platform is configured.
var ErrNoSource = errors.New("no pull request source configured")

// Repository is the subset of *vcs.Repo the aggregator reads.
type Repository interface {
	RecentCommits(ctx context.Context, n int) ([]vcs.Commit, error)
	CurrentBranch() (string, error)
}

// Limits caps how much of each section is fetched and rendered.
type Limits struct {
	CommitLimit    int // most recent commits shown
	CommentLimit   int // first comments shown
	CommentPreview int // runes kept per comment body
}

// DefaultLimits returns the stock caps.
func DefaultLimits() Limits {
	return Limits{CommitLimit: 10, CommentLimit: 10, CommentPreview: 200}
}

// withDefaults fills unset caps.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	return Limits{
		CommitLimit:    cmp.Or(max(l.CommitLimit, 0), d.CommitLimit),
		CommentLimit:   cmp.Or(max(l.CommentLimit, 0), d.CommentLimit),
		CommentPreview: cmp.Or(max(l.CommentPreview, 0), d.CommentPreview),
	}
}

// Briefing is the assembled context for one planning step.
type Briefing struct {
	Branch          string
	Commits         []vcs.Commit
	PullRequest     *provider.PullRequest
	Comments        []provider.Comment
	CompletedTasks  []workflow.TaskWithStatus
	Notes           workflow.Notes
	CurrentPhase    phase.Phase
	CompletedPhases []phase.Phase

	// Runbooks is the catalogue content. RunbooksScanned is false when no
	// catalogue is configured or the scan failed, in which case runbook
	// availability is unknown.
	Runbooks        []runbook.Runbook
	RunbooksScanned bool
}

// IsEmpty reports whether no section has content.
func (b *Briefing) IsEmpty() bool {
	return len(b.Commits) == 0 && len(b.Comments) == 0 && len(b.CompletedTasks) == 0 &&
		b.Notes.IsEmpty() && len(b.CompletedPhases) == 0
}

// Aggregator gathers briefings for a store.
type Aggregator struct {
	store     *workflow.Store
	repo      Repository
	prs       provider.PullRequestSource
	runbooks  *runbook.Catalogue
	publisher Publisher
	limits    Limits
}

// Publisher receives source failure events. Sources fail inside the
// fan-out goroutines, so delivery must not wait on subscribers.
// *events.Bus satisfies it.
type Publisher interface {
	PublishAsync(e events.Eventer)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRepository sets the git history source.
func WithRepository(r Repository) Option {
	return func(a *Aggregator) { a.repo = r }
}

// WithPullRequests sets the hosting platform source.
func WithPullRequests(src provider.PullRequestSource) Option {
	return func(a *Aggregator) { a.prs = src }
}

// WithRunbooks sets the runbook catalogue.
func WithRunbooks(c *runbook.Catalogue) Option {
	return func(a *Aggregator) { a.runbooks = c }
}

// WithPublisher reports degraded sources as events.
func WithPublisher(p Publisher) Option {
	return func(a *Aggregator) { a.publisher = p }
}

// WithLimits overrides the section caps. Zero fields keep their defaults.
func WithLimits(l Limits) Option {
	return func(a *Aggregator) { a.limits = l.withDefaults() }
}

// NewAggregator creates an aggregator reading from store. Without options
// only store-backed sections are populated.
func NewAggregator(store *workflow.Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, limits: DefaultLimits()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Limits returns the caps in effect.
func (a *Aggregator) Limits() Limits {
	return a.limits
}

// Runbooks returns the runbook catalogue, or nil.
func (a *Aggregator) Runbooks() *runbook.Catalogue {
	return a.runbooks
}

// Gather collects every section. External queries run concurrently and are
// joined before returning.
func (a *Aggregator) Gather(ctx context.Context) *Briefing {
	snap := a.store.Snapshot()
	b := &Briefing{
		Notes:           snap.Notes,
		CurrentPhase:    snap.Current,
		CompletedPhases: snap.Completed,
	}
	for _, t := range snap.Tasks {
		if t.Done {
			b.CompletedTasks = append(b.CompletedTasks, t)
		}
	}

	var g errgroup.Group

	if a.repo != nil {
		g.Go(func() error {
			commits, err := a.repo.RecentCommits(ctx, a.limits.CommitLimit)
			if err != nil {
				a.degrade(SourceCommits, err)
				return nil
			}
			b.Commits = commits
			return nil
		})
	}

	if a.prs != nil {
		g.Go(func() error {
			a.gatherDiscussion(ctx, b)
			return nil
		})
	}

	if a.runbooks != nil {
		g.Go(func() error {
			rbs, err := a.runbooks.Scan()
			if err != nil {
				a.degrade(SourceRunbooks, err)
				return nil
			}
			b.Runbooks = rbs
			b.RunbooksScanned = true
			return nil
		})
	}

	_ = g.Wait()
	return b
}

func (a *Aggregator) gatherDiscussion(ctx context.Context, b *Briefing) {
	branch, pr, err := a.pullRequestForBranch(ctx)
	b.Branch = branch
	if err != nil {
		if errors.Is(err, provider.ErrNoPullRequest) {
			log.Debug("no pull request for branch", "branch", branch)
			return
		}
		a.degrade(SourceComments, err)
		return
	}
	b.PullRequest = pr

	comments, err := a.prs.Comments(ctx, pr.Number)
	if err != nil {
		a.degrade(SourceComments, err)
		return
	}
	b.Comments = comments
}

// PullRequest resolves a pull request: number when positive, else the one
// open for the current branch. A missing pull request is reported as
// provider.ErrNoPullRequest.
func (a *Aggregator) PullRequest(ctx context.Context, number int) (*provider.PullRequest, error) {
	if a.prs == nil {
		return nil, ErrNoSource
	}
	if number > 0 {
		return a.prs.PullRequest(ctx, number)
	}
	_, pr, err := a.pullRequestForBranch(ctx)
	return pr, err
}

func (a *Aggregator) pullRequestForBranch(ctx context.Context) (string, *provider.PullRequest, error) {
	if a.repo == nil {
		return "", nil, fmt.Errorf("%w: no repository to read the branch from", provider.ErrNoPullRequest)
	}
	branch, err := a.repo.CurrentBranch()
	if err != nil {
		return "", nil, fmt.Errorf("current branch: %w", err)
	}
	pr, err := a.prs.PullRequestForBranch(ctx, branch)
	return branch, pr, err
}

func (a *Aggregator) degrade(source string, err error) {
	log.Warn("briefing source unavailable", "source", source, log.Err(err))
	if a.publisher != nil {
		a.publisher.PublishAsync(events.SourceFailedEvent{Source: source, Error: err})
	}
}
