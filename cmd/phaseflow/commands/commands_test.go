package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valksor/go-phaseflow/internal/dispatch"
	"github.com/valksor/go-phaseflow/internal/display"
	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/testutil"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

// runCommand executes cmd under a throwaway root with the given project
// directory and returns stdout and stderr.
func runCommand(t *testing.T, dir string, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	display.SetColorsEnabled(false)

	prevDir, prevConfig := workDir, configPath
	workDir, configPath = dir, ""
	t.Cleanup(func() { workDir, configPath = prevDir, prevConfig })

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root := &cobra.Command{Use: "phaseflow", SilenceUsage: true, SilenceErrors: true}
	root.AddGroup(&cobra.Group{ID: "workflow", Title: "Workflow"}, &cobra.Group{ID: "info", Title: "Info"})
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(cmd)
	root.SetArgs(append([]string{cmd.Name()}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestPhasesCommand(t *testing.T) {
	t.Cleanup(func() { phasesScope = "" })

	out, _, err := runCommand(t, t.TempDir(), phasesCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Phases (scope: full, 0/7 complete)")
	assert.Contains(t, out, "05-server-implement")
	assert.Contains(t, out, "contract > policy\n")

	out, _, err = runCommand(t, t.TempDir(), phasesCmd, "--scope", "policy")
	require.NoError(t, err)
	assert.Contains(t, out, "Phases (scope: policy, 0/2 complete)")
	assert.NotContains(t, out, "03-frontend")
	assert.Contains(t, out, "*  policy")
}

func TestPhasesCommandUnknownScope(t *testing.T) {
	t.Cleanup(func() { phasesScope = "" })

	_, stderr, err := runCommand(t, t.TempDir(), phasesCmd, "--scope", "mobile")
	require.Error(t, err)
	assert.Contains(t, stderr, `Unknown scope "mobile"`)
	assert.Contains(t, stderr, "phaseflow phases --scope server-core")
}

func TestRunbooksCommand(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "docs", "runbooks", "01-contract.md"),
		"---\ntitle: Contract first\nphase: contract\n---\n# Body\n")
	testutil.WriteFile(t, filepath.Join(dir, "docs", "runbooks", "review.md"), "# Review checklist\n")

	out, _, err := runCommand(t, dir, runbooksCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "01-contract  Contract first")
	assert.Contains(t, out, "review")
	assert.NotContains(t, out, "API Contract (contract) has no runbook")
	assert.Contains(t, out, "Domain Policy (policy) has no runbook (expected 02-policy)")
}

func TestRunbooksCommandEmptyCatalogue(t *testing.T) {
	out, _, err := runCommand(t, t.TempDir(), runbooksCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "No runbooks in")
	assert.Equal(t, len(phase.Order), strings.Count(out, "has no runbook"))
}

func TestContextCommandOutsideRepository(t *testing.T) {
	dir := t.TempDir()

	out, stderr, err := runCommand(t, dir, contextCmd)
	require.NoError(t, err)
	assert.Contains(t, stderr, "No git repository at")
	assert.Contains(t, out, "No context available.")
}

func TestContextCommandShowsCommits(t *testing.T) {
	repo := testutil.CreateTempGitRepo(t)

	out, stderr, err := runCommand(t, repo.Dir, contextCmd)
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, out, "Branch:")
	assert.Contains(t, out, "Recent commits:")
}

func newSessionCommand(input string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := &cobra.Command{Use: "session"}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetContext(context.Background())
	return cmd, stdout, stderr
}

func TestSessionLoopText(t *testing.T) {
	display.SetColorsEnabled(false)
	input := strings.Join([]string{
		`{"action":"requirements","goal":"Order history","scope":"policy","requirements":[{"want":"see past orders"}]}`,
		``,
		`{"action":"set","tasks":[{"what":"Write OpenAPI spec","why":"contract first","doneWhen":"merged","phase":"contract"}]}`,
		`not json`,
		`{"action":"deploy"}`,
		`{"action":"done","index":0}`,
	}, "\n")
	cmd, stdout, stderr := newSessionCommand(input)

	store := workflow.NewStore()
	require.NoError(t, runSessionLoop(cmd, dispatch.New(store)))

	out := stdout.String()
	assert.Contains(t, out, "Plan registered with 1 requirement")
	assert.Contains(t, out, "Registered 1 task")
	assert.Contains(t, out, "Planning phase: Domain Policy (policy)")
	assert.Contains(t, stderr.String(), "line 4: invalid request")
	assert.Contains(t, stderr.String(), "line 5: ")
	assert.Equal(t, phase.Policy, store.CurrentPhase())
}

func TestSessionLoopJSON(t *testing.T) {
	sessionJSON = true
	t.Cleanup(func() { sessionJSON = false })

	input := `{"action":"list"}` + "\n" + `{"action":"advance"}` + "\n"
	cmd, stdout, stderr := newSessionCommand(input)

	require.NoError(t, runSessionLoop(cmd, dispatch.New(workflow.NewStore())))
	assert.Empty(t, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)

	var first sessionResult
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NotNil(t, first.Response)
	assert.Equal(t, "list", first.Response.Action)
	assert.True(t, first.Response.Success)

	var second sessionResult
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Nil(t, second.Response)
	assert.Contains(t, second.Error, "register requirements first")
}
