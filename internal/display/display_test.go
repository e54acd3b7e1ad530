package display

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/provider"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

func tasksFixture() []workflow.TaskWithStatus {
	return []workflow.TaskWithStatus{
		{Index: 0, What: "Write OpenAPI spec", DoneWhen: "spec lints", Phase: phase.Contract, Done: true},
		{Index: 1, What: "Write rego rules", Why: "authz", DoneWhen: "opa test passes", Phase: phase.Policy, Refs: []string{"docs/policy.md"}},
		{Index: 2, What: "Update README"},
		{Index: 3, What: "Generate client", Phase: phase.Contract},
		{Index: 4, What: "Migrate data", Phase: "data-migration"},
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer", 10, "this is..."},
		{"ünïcödé text", 8, "ünïcö..."},
		{"abc", 2, "..."},
		{"anything", 0, "anything"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.max), "Truncate(%q, %d)", tt.in, tt.max)
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "line one line two", Preview("line one\n\n  line two\n", 100))
	assert.Equal(t, "line...", Preview("line one\nline two", 7))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat("-", ProgressBarWidth)+"]", ProgressBar(0, 0))
	assert.Equal(t, "["+strings.Repeat("#", 10)+strings.Repeat("-", 10)+"]", ProgressBar(1, 2))
	assert.Equal(t, "["+strings.Repeat("#", ProgressBarWidth)+"]", ProgressBar(3, 3))
}

func TestTable(t *testing.T) {
	got := Table([]string{"A", "Long header"}, [][]string{{"value", "x"}, {"v", ""}})
	want := "A      Long header\n" +
		"-----  -----------\n" +
		"value  x\n" +
		"v\n"
	assert.Equal(t, want, got)
}

func TestStatusOf(t *testing.T) {
	completed := []phase.Phase{phase.Contract}
	assert.Equal(t, StatusDone, StatusOf(phase.Contract, phase.Policy, completed))
	assert.Equal(t, StatusCurrent, StatusOf(phase.Policy, phase.Policy, completed))
	assert.Equal(t, StatusPending, StatusOf(phase.Frontend, phase.Policy, completed))
	assert.Equal(t, StatusPending, StatusOf(phase.None, phase.None, nil))
}

func TestFormatPhaseTable(t *testing.T) {
	out := FormatPhaseTable(phase.ScopeFrontend, phase.Policy, []phase.Phase{phase.Contract})

	assert.Contains(t, out, "Phases (scope: frontend, 1/3 complete)")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// title, header, separator, three phases
	assert.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[3], "[x]"), lines[3])
	assert.Contains(t, lines[3], "01-contract")
	assert.True(t, strings.HasPrefix(lines[4], "[>]"), lines[4])
	assert.True(t, strings.HasPrefix(lines[5], "[ ]"), lines[5])
	assert.Contains(t, lines[5], "parallel")
	assert.NotContains(t, out, "\033[", "no ANSI codes in presenter output")
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "Tasks: none registered", FormatProgress(workflow.Progress{}))
	assert.Contains(t, FormatProgress(workflow.Progress{Total: 4, Completed: 1, Pending: 3}), "1/4 done, 3 pending")
}

func TestFormatCurrentPhase(t *testing.T) {
	assert.Equal(t, "Current phase: none", FormatCurrentPhase(phase.None, phase.ScopeFull))
	assert.Equal(t, "Current phase: Frontend (frontend), 3 of 7, mode parallel",
		FormatCurrentPhase(phase.Frontend, phase.ScopeFull))
}

func TestFormatTasksGrouping(t *testing.T) {
	out := FormatTasks(tasksFixture())

	contract := strings.Index(out, "API Contract (contract) 1/2")
	policy := strings.Index(out, "Domain Policy (policy) 0/1")
	unknown := strings.Index(out, "data-migration 0/1")
	unphased := strings.Index(out, "Unphased 0/1")

	assert.True(t, contract >= 0 && policy > contract, out)
	assert.True(t, unknown > policy, "uncatalogued phases follow catalogued ones")
	assert.True(t, unphased > unknown, "untagged tasks come last")
	assert.Contains(t, out, "[x] #0 Write OpenAPI spec")
	assert.Contains(t, out, "[ ] #3 Generate client")

	assert.Empty(t, FormatTasks(nil))
}

func TestFormatNextTask(t *testing.T) {
	out := FormatNextTask(tasksFixture())
	assert.True(t, strings.HasPrefix(out, "Next task #1: Write rego rules"), out)
	assert.Contains(t, out, "Why: authz")
	assert.Contains(t, out, "Done when: opa test passes")
	assert.Contains(t, out, "Refs: docs/policy.md")

	allDone := []workflow.TaskWithStatus{{Index: 0, What: "x", Done: true}}
	assert.Equal(t, "All registered tasks are done.\n", FormatNextTask(allDone))
	assert.Empty(t, FormatNextTask(nil))
}

func TestFormatBlocked(t *testing.T) {
	pending := []workflow.TaskWithStatus{
		{Index: 3, What: "Generate client", DoneWhen: "client compiles", Phase: phase.Contract},
	}
	out := FormatBlocked(phase.Contract, pending)

	assert.Contains(t, out, "Cannot advance: API Contract (contract) has 1 task pending.")
	assert.Contains(t, out, "[ ] #3 Generate client")
	assert.Contains(t, out, "Done when: client compiles")
	assert.Contains(t, out, `"action": "done"`)
}

func TestFormatRequirements(t *testing.T) {
	out := FormatRequirements("Order history", []workflow.Requirement{{
		Actor: "a customer", Want: "to list my orders", Because: "I reorder often",
		Acceptance: "orders sorted by date", Constraints: []string{"p95 < 200ms", "paginated"},
	}})

	assert.Contains(t, out, "Goal: Order history")
	assert.Contains(t, out, "1. As a customer, I want to list my orders, because I reorder often.")
	assert.Contains(t, out, "Acceptance: orders sorted by date")
	assert.Contains(t, out, "Constraints: p95 < 200ms; paginated")
}

func TestFormatNotes(t *testing.T) {
	assert.Empty(t, FormatNotes(workflow.Notes{}))

	out := FormatNotes(workflow.Notes{DesignDecisions: []string{"cursor pagination"}, BreakingChanges: []string{"v1 removed"}})
	assert.Contains(t, out, "Design decisions:\n  - cursor pagination\n")
	assert.Contains(t, out, "Breaking changes:\n  - v1 removed\n")
	assert.NotContains(t, out, "Remaining work")
}

func TestFormatHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	out := FormatHistory([]workflow.HistoryEntry{
		{From: phase.Contract, To: phase.Policy, Trigger: workflow.TriggerAuto, At: at},
		{From: phase.Policy, To: phase.None, Trigger: workflow.TriggerAdvance, At: at},
	})

	assert.Contains(t, out, "contract -> policy (auto, 2026-03-01 12:30)")
	assert.Contains(t, out, "policy -> complete (advance, 2026-03-01 12:30)")
	assert.Empty(t, FormatHistory(nil))
}

func TestFormatTransition(t *testing.T) {
	assert.Equal(t, "Phase API Contract (contract) complete. Moving to Domain Policy (policy).\n",
		FormatTransition(workflow.Transition{From: phase.Contract, To: phase.Policy}))
	assert.Contains(t, FormatTransition(workflow.Transition{From: phase.E2E, Finished: true}), "last phase")
}

func TestFormatState(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		out := FormatState(workflow.Snapshot{Scope: phase.ScopeFull}, nil)
		assert.Contains(t, out, "No plan registered.")
		assert.Contains(t, out, `"action": "requirements"`)
	})

	t.Run("populated", func(t *testing.T) {
		s := workflow.Snapshot{
			Goal:         "Order history",
			Requirements: []workflow.Requirement{{Actor: "a customer", Want: "orders", Because: "reorder"}},
			Scope:        phase.ScopePolicy,
			Tasks:        tasksFixture(),
			Notes:        workflow.Notes{RemainingWork: []string{"pagination"}},
			Current:      phase.Policy,
			Completed:    []phase.Phase{phase.Contract},
		}
		pr := &provider.PullRequest{Number: 12, Title: "Order history", URL: "https://example.com/pr/12"}

		out := FormatState(s, pr)
		for _, want := range []string{
			"Goal: Order history",
			"Current phase: Domain Policy (policy), 2 of 2",
			"Phases (scope: policy, 1/2 complete)",
			"Tasks: ",
			"Next task #1",
			"Remaining work:",
			"Pull request: #12 Order history (https://example.com/pr/12)",
		} {
			assert.Contains(t, out, want)
		}
		assert.NotContains(t, out, "Transitions:", "empty sections are omitted")
	})
}

func TestColorHelpers(t *testing.T) {
	SetColorsEnabled(true)
	t.Cleanup(func() { SetColorsEnabled(true) })

	assert.Equal(t, yellow+"careful"+reset, Warning("careful"))
	assert.Equal(t, red+"✗"+reset+" "+red+"boom 3"+reset, ErrorMsg("boom %d", 3))

	SetColorsEnabled(false)
	assert.Equal(t, "careful", Warning("careful"))
	assert.Equal(t, "→ 2 runbooks", InfoMsg("%d runbooks", 2))
	assert.Equal(t, "⚠ missing", WarningMsg("missing"))
}

func TestInitColorsRespectsNoColor(t *testing.T) {
	t.Cleanup(func() { SetColorsEnabled(true) })

	t.Setenv("NO_COLOR", "1")
	InitColors(false)
	assert.False(t, ColorsEnabled())
}

func TestErrorWithSuggestions(t *testing.T) {
	SetColorsEnabled(false)
	t.Cleanup(func() { SetColorsEnabled(true) })

	out := UnknownScopeError("mobile", []string{"policy", "full"})
	assert.Equal(t, strings.Join([]string{
		`✗ Unknown scope "mobile"`,
		"",
		"Try:",
		"  phaseflow phases --scope policy  show the policy scope",
		"  phaseflow phases --scope full    show the full scope",
		"",
	}, "\n"), out)

	assert.Equal(t, "✗ plain\n", ErrorWithSuggestions("plain", nil))
	assert.Contains(t, NoRepositoryError("/tmp/x"), "No git repository at /tmp/x")
}
