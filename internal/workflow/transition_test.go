package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valksor/go-phaseflow/internal/events"
	"github.com/valksor/go-phaseflow/internal/phase"
)

func TestCompletePhaseIfReady(t *testing.T) {
	tests := []struct {
		name  string
		tasks []Task
		ready bool
	}{
		{"no tasks", nil, false},
		{"only untagged done", []Task{{What: "x", Done: ptr(true)}}, false},
		{"pending tagged", []Task{{What: "x", Phase: phase.Contract, Done: ptr(true)}, {What: "y", Phase: phase.Contract}}, false},
		{"all tagged done", []Task{{What: "x", Phase: phase.Contract, Done: ptr(true)}, {What: "y"}}, true},
		{"other phase done", []Task{{What: "x", Phase: phase.Policy, Done: ptr(true)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			s.RegisterPlan("g", sampleRequirements(), phase.ScopePolicy)
			s.SetTasks(tt.tasks, "")

			p, ok := s.CompletePhaseIfReady()

			assert.Equal(t, phase.Contract, p)
			assert.Equal(t, tt.ready, ok)
			assert.Equal(t, tt.ready, len(s.CompletedPhases()) == 1)
			assert.Equal(t, phase.Contract, s.CurrentPhase(), "pointer does not move")
		})
	}
}

func TestCompletePhaseIfReadyWithoutCurrent(t *testing.T) {
	s := newTestStore()
	p, ok := s.CompletePhaseIfReady()
	assert.Equal(t, phase.None, p)
	assert.False(t, ok)
}

func TestAdvanceIfPossibleNoCurrent(t *testing.T) {
	s := newTestStore()
	_, err := s.AdvanceIfPossible(TriggerAdvance)
	assert.ErrorIs(t, err, ErrNoCurrentPhase)
}

func TestAdvanceIfPossibleBlocked(t *testing.T) {
	s := newTestStore()
	s.RegisterPlan("g", sampleRequirements(), phase.ScopePolicy)
	s.SetTasks([]Task{
		{What: "done", Phase: phase.Contract, Done: ptr(true)},
		{What: "open", Phase: phase.Contract},
	}, "")
	before := s.Snapshot()

	_, err := s.AdvanceIfPossible(TriggerAdvance)

	require.ErrorIs(t, err, ErrBlocked)
	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, phase.Contract, blocked.Phase)
	require.Len(t, blocked.Pending, 1)
	assert.Equal(t, 1, blocked.Pending[0].Index)
	assert.Contains(t, err.Error(), "#1")
	assert.Equal(t, before, s.Snapshot(), "blocked advance does not mutate")
}

func TestAdvanceIfPossibleWalksScope(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &recorder{}
	s := newTestStore(WithPublisher(rec), WithClock(func() time.Time { return at }))
	s.RegisterPlan("g", sampleRequirements(), phase.ScopePolicy)

	tr, err := s.AdvanceIfPossible(TriggerAdvance)
	require.NoError(t, err)
	assert.Equal(t, Transition{From: phase.Contract, To: phase.Policy}, tr)
	assert.Equal(t, phase.Policy, s.CurrentPhase())

	tr, err = s.AdvanceIfPossible(TriggerAuto)
	require.NoError(t, err)
	assert.True(t, tr.Finished)
	assert.Equal(t, phase.None, tr.To)
	assert.Equal(t, phase.None, s.CurrentPhase())
	assert.Equal(t, []phase.Phase{phase.Contract, phase.Policy}, s.CompletedPhases())
	assert.Equal(t, phase.None, s.NextPhase())

	assert.Equal(t, []HistoryEntry{
		{From: phase.Contract, To: phase.Policy, Trigger: TriggerAdvance, At: at},
		{From: phase.Policy, To: phase.None, Trigger: TriggerAuto, At: at},
	}, s.History())

	assert.Equal(t, []events.Type{
		events.TypeRequirementsSet,
		events.TypePhaseCompleted,
		events.TypePhaseAdvanced,
		events.TypePhaseCompleted,
		events.TypePhaseAdvanced,
		events.TypeWorkflowCompleted,
	}, rec.types())
}

func TestAdvanceAfterCompletePhaseIfReadyPublishesOnce(t *testing.T) {
	rec := &recorder{}
	s := newTestStore(WithPublisher(rec))
	s.RegisterPlan("g", sampleRequirements(), phase.ScopeFull)
	s.SetTasks([]Task{{What: "a", Phase: phase.Contract}}, "")

	require.True(t, s.MarkDone(0))
	_, ok := s.CompletePhaseIfReady()
	require.True(t, ok)
	_, err := s.AdvanceIfPossible(TriggerAuto)
	require.NoError(t, err)

	completed := 0
	for _, typ := range rec.types() {
		if typ == events.TypePhaseCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, phase.Policy, s.CurrentPhase())
}

// Auto-advance property: after a done call that empties the current phase,
// current becomes Next(previous, scope).
func TestAutoAdvanceProperty(t *testing.T) {
	for _, scope := range phase.Scopes {
		t.Run(string(scope), func(t *testing.T) {
			s := newTestStore()
			s.RegisterPlan("g", sampleRequirements(), scope)

			phases := phase.ForScope(scope)
			tasks := make([]Task, len(phases))
			for i, p := range phases {
				tasks[i] = Task{What: string(p), Phase: p}
			}
			s.SetTasks(tasks, "")

			for i, p := range phases {
				require.Equal(t, p, s.CurrentPhase())
				require.True(t, s.MarkDone(i))
				_, ok := s.CompletePhaseIfReady()
				require.True(t, ok)
				_, err := s.AdvanceIfPossible(TriggerAuto)
				require.NoError(t, err)
				assert.Equal(t, phase.Next(p, scope), s.CurrentPhase())
			}
			assert.Equal(t, phases, s.CompletedPhases())
		})
	}
}
