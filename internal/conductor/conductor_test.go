package conductor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valksor/go-phaseflow/internal/briefing"
	"github.com/valksor/go-phaseflow/internal/config"
	"github.com/valksor/go-phaseflow/internal/dispatch"
	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/provider"
	ptestutil "github.com/valksor/go-phaseflow/internal/testutil"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

func newConductor(t *testing.T, opts ...Option) *Conductor {
	t.Helper()
	c, err := New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	c := newConductor(t, WithWorkDir(dir), WithConfig(config.NewDefault()))

	assert.Nil(t, c.Repo())
	assert.Nil(t, c.PullRequests())
	assert.Equal(t, filepath.Join(dir, "docs", "runbooks"), c.Runbooks().Dir())

	resp, err := c.Dispatcher().Handle(context.Background(), dispatch.Request{Action: dispatch.ActionList})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "No plan registered.")
}

func TestNewDetectsPlatformFromRemote(t *testing.T) {
	t.Setenv("PHASEFLOW_GITHUB_TOKEN", "test-token")

	repo := ptestutil.CreateTempGitRepo(t)
	repo.AddRemote("origin", "git@github.com:acme/widgets.git")

	c := newConductor(t, WithWorkDir(repo.Dir), WithConfig(config.NewDefault()))
	require.NotNil(t, c.Repo())
	require.NotNil(t, c.PullRequests())
	assert.Equal(t, "github", c.PullRequests().Name())
	assert.Equal(t, filepath.Join(c.Repo().Root(), "docs", "runbooks"), c.Runbooks().Dir())
}

func TestNewProviderNone(t *testing.T) {
	repo := ptestutil.CreateTempGitRepo(t)
	repo.AddRemote("origin", "https://gitlab.com/group/app.git")

	cfg := config.NewDefault()
	cfg.Provider.Name = provider.NameNone
	c := newConductor(t, WithWorkDir(repo.Dir), WithConfig(cfg))

	assert.Nil(t, c.PullRequests())
}

func TestNewMismatchedProviderDegrades(t *testing.T) {
	repo := ptestutil.CreateTempGitRepo(t)
	repo.AddRemote("origin", "/srv/git/app.git")

	cfg := config.NewDefault()
	cfg.Provider.Name = "github"
	c := newConductor(t, WithWorkDir(repo.Dir), WithConfig(cfg))

	assert.Nil(t, c.PullRequests(), "undetectable repository leaves the platform out")
}

func TestNewLoadsConfigFromWorkDir(t *testing.T) {
	dir := t.TempDir()
	ptestutil.WriteFile(t, filepath.Join(dir, config.Dir, config.ConfigFileName), "workflow:\n  default_scope: policy\nprovider:\n  name: none\n")

	c := newConductor(t, WithWorkDir(dir))
	assert.Equal(t, phase.ScopePolicy, c.Config().Scope())

	_, err := c.Dispatcher().Handle(context.Background(), dispatch.Request{
		Action:       dispatch.ActionRequirements,
		Goal:         "g",
		Requirements: []workflow.Requirement{{Want: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, phase.ScopePolicy, c.Store().Scope(), "configured default scope applies")
}

func TestEventsReachMetrics(t *testing.T) {
	prs := ptestutil.NewFakePullRequests()
	c := newConductor(t, WithWorkDir(t.TempDir()), WithConfig(config.NewDefault()), WithPullRequests(prs))
	assert.Same(t, prs, c.PullRequests())

	ctx := context.Background()
	d := c.Dispatcher()
	_, err := d.Handle(ctx, dispatch.Request{
		Action:       dispatch.ActionRequirements,
		Goal:         "g",
		Scope:        "policy",
		Requirements: []workflow.Requirement{{Want: "x"}},
	})
	require.NoError(t, err)
	_, err = d.Handle(ctx, dispatch.Request{Action: dispatch.ActionSet, Tasks: []workflow.Task{{What: "a", Phase: phase.Contract}}})
	require.NoError(t, err)
	idx := 0
	_, err = d.Handle(ctx, dispatch.Request{Action: dispatch.ActionDone, Index: &idx})
	require.NoError(t, err)

	m := c.Metrics()
	assert.InDelta(t, 1, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("done", "true")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TasksDoneTotal.WithLabelValues("contract")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PhaseTransitionsTotal.WithLabelValues("contract", "policy", "auto")), 0)
}

func TestProviderConfig(t *testing.T) {
	cfg := config.NewDefault()
	cfg.GitHub.Owner = "acme"
	cfg.GitLab.Project = "group/app"
	cfg.Cache.Disabled = true

	gh := providerConfig(cfg, "github")
	assert.Equal(t, "acme", gh.GetString("owner"))
	assert.Empty(t, gh.GetString("project"))
	assert.True(t, gh.GetBool("cache_disabled"))

	gl := providerConfig(cfg, "gitlab")
	assert.Equal(t, "group/app", gl.GetString("project"))
	assert.Empty(t, gl.GetString("owner"))
}

func TestRejectedActionsShareOneSeries(t *testing.T) {
	c := newConductor(t, WithWorkDir(t.TempDir()), WithConfig(config.NewDefault()))

	for i := range 50 {
		_, err := c.Dispatcher().Handle(context.Background(), dispatch.Request{Action: fmt.Sprintf("bogus-%d", i)})
		require.ErrorIs(t, err, dispatch.ErrUnknownAction)
	}

	m := c.Metrics()
	assert.Equal(t, 1, testutil.CollectAndCount(m.ActionsTotal))
	assert.InDelta(t, 50, testutil.ToFloat64(m.ActionsTotal.WithLabelValues(dispatch.ActionUnknown, "false")), 0)
}

func TestSourceFailuresDeliveredBeforeClose(t *testing.T) {
	prs := ptestutil.NewFakePullRequests()
	prs.Err = errors.New("network down")
	repo := ptestutil.CreateTempGitRepo(t)
	c := newConductor(t, WithWorkDir(repo.Dir), WithConfig(config.NewDefault()), WithPullRequests(prs))

	c.Aggregator().Gather(context.Background())
	c.Close()

	assert.InDelta(t, 1, testutil.ToFloat64(c.Metrics().SourceFailuresTotal.WithLabelValues(briefing.SourceComments)), 0)
}
