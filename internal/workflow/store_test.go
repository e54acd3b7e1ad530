package workflow

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valksor/go-phaseflow/internal/events"
	"github.com/valksor/go-phaseflow/internal/phase"
)

func ptr[T any](v T) *T { return &v }

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Eventer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.ToEvent())
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("task-%d", n)
	}
}

func newTestStore(opts ...Option) *Store {
	base := []Option{WithIDGenerator(sequentialIDs())}
	return NewStore(append(base, opts...)...)
}

func sampleRequirements() []Requirement {
	return []Requirement{{
		Actor:       "operator",
		Want:        "track delivery phases",
		Because:     "agents lose context between sessions",
		Acceptance:  "phase progress survives a replan",
		Constraints: []string{"no persistence"},
	}}
}

func TestNewStoreIsEmpty(t *testing.T) {
	s := newTestStore()

	assert.False(t, s.HasRequirements())
	assert.False(t, s.HasTasks())
	assert.Equal(t, phase.None, s.CurrentPhase())
	assert.Empty(t, s.CompletedPhases())
	assert.Equal(t, phase.DefaultScope, s.Scope())
	assert.Equal(t, phase.Contract, s.NextPhase())
}

func TestRegisterPlan(t *testing.T) {
	rec := &recorder{}
	s := newTestStore(WithPublisher(rec))

	current := s.RegisterPlan("ship billing", sampleRequirements(), phase.ScopePolicy)

	assert.Equal(t, phase.Contract, current)
	assert.Equal(t, phase.Contract, s.CurrentPhase())
	assert.Equal(t, "ship billing", s.Goal())
	assert.Equal(t, phase.ScopePolicy, s.Scope())
	assert.True(t, s.HasRequirements())
	assert.Equal(t, []events.Type{events.TypeRequirementsSet}, rec.types())
}

func TestRegisterPlanResetsProgress(t *testing.T) {
	s := newTestStore()
	s.RegisterPlan("g", sampleRequirements(), phase.ScopePolicy)
	s.SetTasks([]Task{{What: "a", Phase: phase.Contract, Done: ptr(true)}}, "")
	_, err := s.AdvanceIfPossible(TriggerAdvance)
	require.NoError(t, err)
	require.NotEmpty(t, s.CompletedPhases())

	s.RegisterPlan("g2", sampleRequirements(), phase.ScopeFrontend)

	assert.Empty(t, s.CompletedPhases())
	assert.Empty(t, s.History())
	assert.Equal(t, phase.Contract, s.CurrentPhase())
	assert.True(t, s.HasTasks(), "tasks survive re-registration")
}

func TestRequirementsAreCopied(t *testing.T) {
	s := newTestStore()
	reqs := sampleRequirements()
	s.SetRequirements(reqs)

	reqs[0].Constraints[0] = "mutated"
	got := s.Requirements()
	got[0].Want = "mutated"

	assert.Equal(t, "no persistence", s.Requirements()[0].Constraints[0])
	assert.Equal(t, "track delivery phases", s.Requirements()[0].Want)
}

func TestSetTasksIndexesInOrder(t *testing.T) {
	s := newTestStore()

	got := s.SetTasks([]Task{
		{What: "first"},
		{What: "second", Done: ptr(true)},
		{What: "third", Done: ptr(false)},
	}, "")

	require.Len(t, got, 3)
	for i, task := range s.Tasks() {
		assert.Equal(t, i, task.Index)
	}
	assert.Equal(t, "first", got[0].What)
	assert.False(t, got[0].Done)
	assert.True(t, got[1].Done)
	assert.False(t, got[2].Done)
	assert.Equal(t, "task-1", got[0].ID)
}

func TestSetTasksReplacesAndSetsGoal(t *testing.T) {
	s := newTestStore()
	s.SetGoal("old")
	s.SetTasks([]Task{{What: "a"}, {What: "b"}}, "")
	s.SetTasks([]Task{{What: "c"}}, "new")

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "c", tasks[0].What)
	assert.Equal(t, 0, tasks[0].Index)
	assert.Equal(t, "new", s.Goal())

	s.SetTasks([]Task{{What: "d"}}, "")
	assert.Equal(t, "new", s.Goal(), "empty goal leaves goal unchanged")
}

func TestSetTasksReplanWithoutEchoResetsCompletion(t *testing.T) {
	s := newTestStore()
	s.SetTasks([]Task{{What: "a"}}, "")
	require.True(t, s.MarkDone(0))

	s.SetTasks([]Task{{What: "a"}}, "")

	assert.False(t, s.Tasks()[0].Done)
}

func TestSetTasksCarriesCompletionByID(t *testing.T) {
	s := newTestStore()
	first := s.SetTasks([]Task{{What: "a"}, {What: "b"}}, "")
	require.True(t, s.MarkDone(first[0].Index))

	// Reordered, one echoed by ID, one new.
	got := s.SetTasks([]Task{
		{What: "new"},
		{ID: first[1].ID, What: "b"},
		{ID: first[0].ID, What: "a"},
	}, "")

	assert.False(t, got[0].Done)
	assert.False(t, got[1].Done)
	assert.True(t, got[2].Done, "completion carried by id")
	assert.Equal(t, first[0].ID, got[2].ID)
	assert.Equal(t, 2, got[2].Index)
}

func TestSetTasksExplicitDoneOverridesCarry(t *testing.T) {
	s := newTestStore()
	first := s.SetTasks([]Task{{What: "a"}}, "")
	s.MarkDone(0)

	got := s.SetTasks([]Task{{ID: first[0].ID, What: "a", Done: ptr(false)}}, "")

	assert.False(t, got[0].Done)
}

func TestSetTasksUnknownIDStartsPending(t *testing.T) {
	s := newTestStore()
	got := s.SetTasks([]Task{{ID: "external-7", What: "a"}}, "")

	assert.Equal(t, "external-7", got[0].ID)
	assert.False(t, got[0].Done)
}

func TestMarkDoneIdempotent(t *testing.T) {
	rec := &recorder{}
	s := newTestStore(WithPublisher(rec))
	s.SetTasks([]Task{{What: "a"}, {What: "b"}}, "")

	assert.True(t, s.MarkDone(1))
	assert.True(t, s.MarkDone(1))
	assert.True(t, s.Tasks()[1].Done)
	assert.False(t, s.Tasks()[0].Done)
	assert.Equal(t, []events.Type{events.TypeTaskDone}, rec.types(), "second call publishes nothing")
}

func TestMarkDoneUnknownIndex(t *testing.T) {
	s := newTestStore()
	s.SetTasks([]Task{{What: "a"}}, "")
	before := s.Tasks()

	assert.False(t, s.MarkDone(5))
	assert.False(t, s.MarkDone(-1))
	assert.Equal(t, before, s.Tasks())
}

func TestTaskQueries(t *testing.T) {
	s := newTestStore()
	s.SetTasks([]Task{
		{What: "c1", Phase: phase.Contract, Done: ptr(true)},
		{What: "c2", Phase: phase.Contract},
		{What: "p1", Phase: phase.Policy},
		{What: "loose"},
	}, "")

	assert.Len(t, s.PendingTasks(), 3)
	assert.Len(t, s.CompletedTasks(), 1)
	assert.Len(t, s.TasksForPhase(phase.Contract), 2)
	pending := s.PendingTasksForPhase(phase.Contract)
	require.Len(t, pending, 1)
	assert.Equal(t, "c2", pending[0].What)
	assert.Empty(t, s.TasksForPhase(phase.None), "untagged tasks belong to no phase")
	assert.Equal(t, Progress{Total: 4, Completed: 1, Pending: 3}, s.Progress())
}

func TestCompletePhaseIdempotent(t *testing.T) {
	rec := &recorder{}
	s := newTestStore(WithPublisher(rec))

	s.CompletePhase(phase.Contract)
	s.CompletePhase(phase.Policy)
	s.CompletePhase(phase.Contract)

	assert.Equal(t, []phase.Phase{phase.Contract, phase.Policy}, s.CompletedPhases())
	assert.Len(t, rec.types(), 2)
}

func TestNextPhase(t *testing.T) {
	tests := []struct {
		name      string
		scope     phase.Scope
		current   phase.Phase
		completed []phase.Phase
		want      phase.Phase
	}{
		{"untouched", phase.ScopePolicy, phase.None, nil, phase.Contract},
		{"from current", phase.ScopePolicy, phase.Contract, nil, phase.Policy},
		{"last current", phase.ScopePolicy, phase.Policy, []phase.Phase{phase.Contract}, phase.None},
		{"finished plan", phase.ScopePolicy, phase.None, []phase.Phase{phase.Contract, phase.Policy}, phase.None},
		{"continues after completed", phase.ScopeFull, phase.None, []phase.Phase{phase.Contract}, phase.Policy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			s.SetScope(tt.scope)
			s.SetCurrentPhase(tt.current)
			for _, p := range tt.completed {
				s.CompletePhase(p)
			}
			assert.Equal(t, tt.want, s.NextPhase())
		})
	}
}

func TestNotesPartialUpdate(t *testing.T) {
	s := newTestStore()
	s.SetNotes(NotesUpdate{
		DesignDecisions: []string{"use uuid ids"},
		RemainingWork:   []string{"docs"},
	})

	s.SetNotes(NotesUpdate{RemainingWork: []string{"tests"}})

	n := s.Notes()
	assert.Equal(t, []string{"use uuid ids"}, n.DesignDecisions, "absent list untouched")
	assert.Equal(t, []string{"tests"}, n.RemainingWork)
	assert.Empty(t, n.BreakingChanges)

	s.SetNotes(NotesUpdate{DesignDecisions: []string{}})
	assert.Empty(t, s.Notes().DesignDecisions, "present empty list replaces")
}

func TestNotesAppend(t *testing.T) {
	s := newTestStore()
	s.AppendDesignDecision("a")
	s.AppendRemainingWork("b")
	s.AppendBreakingChange("c")
	s.AppendDesignDecision("d")

	n := s.Notes()
	assert.Equal(t, []string{"a", "d"}, n.DesignDecisions)
	assert.Equal(t, []string{"b"}, n.RemainingWork)
	assert.Equal(t, []string{"c"}, n.BreakingChanges)
	assert.False(t, n.IsEmpty())
}

func TestClear(t *testing.T) {
	s := newTestStore()
	s.RegisterPlan("g", sampleRequirements(), phase.ScopePolicy)
	s.SetTasks([]Task{{What: "a", Phase: phase.Contract, Done: ptr(true)}}, "")
	s.AppendRemainingWork("x")
	_, err := s.AdvanceIfPossible(TriggerAdvance)
	require.NoError(t, err)

	s.Clear()

	assert.False(t, s.HasRequirements())
	assert.False(t, s.HasTasks())
	assert.Equal(t, phase.None, s.CurrentPhase())
	assert.Empty(t, s.CompletedPhases())
	assert.Empty(t, s.History())
	assert.True(t, s.Notes().IsEmpty())
	assert.Empty(t, s.Goal())
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newTestStore()
	s.SetTasks([]Task{{What: "a", Refs: []string{"doc.md"}}}, "")

	snap := s.Snapshot()
	snap.Tasks[0].Refs[0] = "mutated"
	snap.Tasks[0].Done = true

	task := s.Tasks()[0]
	assert.Equal(t, "doc.md", task.Refs[0])
	assert.False(t, task.Done)
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestStore(WithIDGenerator(func() string { return time.Now().String() }))
	s.SetTasks([]Task{{What: "a"}, {What: "b"}, {What: "c"}}, "")

	var wg sync.WaitGroup
	for i := range 30 {
		wg.Go(func() {
			s.MarkDone(i % 3)
			_ = s.Snapshot()
			_ = s.Progress()
		})
	}
	wg.Wait()

	assert.Equal(t, Progress{Total: 3, Completed: 3}, s.Progress())
}
