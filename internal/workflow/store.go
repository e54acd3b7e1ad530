// Package workflow holds the mutable record of one active delivery plan:
// requirements, goal, tasks, handover notes and phase progress.
//
// A Store is an explicit value; callers that want separate plans create
// separate stores. All methods are safe for concurrent use. Lifecycle events
// are published after the lock is released so subscribers may read the
// store.
package workflow

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valksor/go-phaseflow/internal/events"
	"github.com/valksor/go-phaseflow/internal/phase"
)

// Publisher receives lifecycle events. *events.Bus satisfies it.
type Publisher interface {
	Publish(e events.Eventer)
}

// Store is the workflow state record
type Store struct {
	mu sync.RWMutex

	goal         string
	requirements []Requirement
	scope        phase.Scope
	tasks        []TaskWithStatus
	notes        Notes
	current      phase.Phase
	completed    []phase.Phase
	history      []HistoryEntry

	publisher Publisher
	now       func() time.Time
	newID     func() string
}

// Option configures a Store
type Option func(*Store)

// WithPublisher sets where lifecycle events go
func WithPublisher(p Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

// WithClock overrides the time source used for history entries
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides task ID generation
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		scope: phase.DefaultScope,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) emit(evts ...events.Eventer) {
	if s.publisher == nil {
		return
	}
	for _, e := range evts {
		s.publisher.Publish(e)
	}
}

// RegisterPlan seeds goal, requirements and scope in one step, points the
// current phase at the first phase of the scope and forgets earlier phase
// progress. Tasks and notes are left alone.
func (s *Store) RegisterPlan(goal string, reqs []Requirement, scope phase.Scope) phase.Phase {
	s.mu.Lock()
	s.goal = goal
	s.requirements = cloneRequirements(reqs)
	s.scope = scope
	s.current = phase.First(scope)
	s.completed = nil
	s.history = nil
	current := s.current
	s.mu.Unlock()

	s.emit(events.RequirementsSetEvent{
		Goal:   goal,
		Scope:  string(scope),
		Phases: len(phase.ForScope(scope)),
	})
	return current
}

// SetRequirements replaces the requirement list wholesale
func (s *Store) SetRequirements(reqs []Requirement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requirements = cloneRequirements(reqs)
}

// Requirements returns the registered requirements
func (s *Store) Requirements() []Requirement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRequirements(s.requirements)
}

// HasRequirements reports whether at least one requirement is registered
func (s *Store) HasRequirements() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requirements) > 0
}

// SetGoal sets the plan goal
func (s *Store) SetGoal(goal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goal = goal
}

// Goal returns the plan goal
func (s *Store) Goal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal
}

// SetScope sets the plan scope
func (s *Store) SetScope(scope phase.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = scope
}

// Scope returns the plan scope
func (s *Store) Scope() phase.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// SetTasks replaces the task list and re-indexes it from zero. A task's
// done flag is its supplied Done value; when Done is absent, completion is
// carried from the previously registered task with the same ID, and is false
// otherwise. A non-empty goal replaces the stored goal.
func (s *Store) SetTasks(tasks []Task, goal string) []TaskWithStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[string]bool, len(s.tasks))
	for _, t := range s.tasks {
		previous[t.ID] = t.Done
	}

	next := make([]TaskWithStatus, len(tasks))
	for i, t := range tasks {
		id := t.ID
		if id == "" {
			id = s.newID()
		}
		done := t.ID != "" && previous[t.ID]
		if t.Done != nil {
			done = *t.Done
		}
		next[i] = TaskWithStatus{
			Index:    i,
			ID:       id,
			What:     t.What,
			Why:      t.Why,
			DoneWhen: t.DoneWhen,
			Refs:     slices.Clone(t.Refs),
			Phase:    t.Phase,
			Done:     done,
		}
	}
	s.tasks = next
	if goal != "" {
		s.goal = goal
	}

	return cloneTasks(s.tasks)
}

// MarkDone marks the task whose current index is index as done. It returns
// false, changing nothing, when no such task exists. Marking an already done
// task is a successful no-op.
func (s *Store) MarkDone(index int) bool {
	s.mu.Lock()
	var evt events.Eventer
	found := false
	for i := range s.tasks {
		if s.tasks[i].Index != index {
			continue
		}
		found = true
		if !s.tasks[i].Done {
			s.tasks[i].Done = true
			evt = events.TaskDoneEvent{
				TaskID: s.tasks[i].ID,
				Index:  index,
				Phase:  string(s.tasks[i].Phase),
			}
		}
		break
	}
	s.mu.Unlock()

	if evt != nil {
		s.emit(evt)
	}
	return found
}

// Tasks returns every registered task
func (s *Store) Tasks() []TaskWithStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.tasks)
}

// HasTasks reports whether any task is registered
func (s *Store) HasTasks() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks) > 0
}

// PendingTasks returns tasks not yet done
func (s *Store) PendingTasks() []TaskWithStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterTasks(s.tasks, func(t TaskWithStatus) bool { return !t.Done })
}

// CompletedTasks returns tasks already done
func (s *Store) CompletedTasks() []TaskWithStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterTasks(s.tasks, func(t TaskWithStatus) bool { return t.Done })
}

// TasksForPhase returns tasks tagged with p. Untagged tasks belong to no
// phase.
func (s *Store) TasksForPhase(p phase.Phase) []TaskWithStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasksForPhaseLocked(p)
}

func (s *Store) tasksForPhaseLocked(p phase.Phase) []TaskWithStatus {
	if p == phase.None {
		return []TaskWithStatus{}
	}
	return filterTasks(s.tasks, func(t TaskWithStatus) bool { return t.Phase == p })
}

// PendingTasksForPhase returns tasks tagged with p that are not done
func (s *Store) PendingTasksForPhase(p phase.Phase) []TaskWithStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingForPhaseLocked(p)
}

func (s *Store) pendingForPhaseLocked(p phase.Phase) []TaskWithStatus {
	if p == phase.None {
		return []TaskWithStatus{}
	}
	return filterTasks(s.tasks, func(t TaskWithStatus) bool { return t.Phase == p && !t.Done })
}

// Progress counts all tasks by completion
func (s *Store) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countProgress(s.tasks)
}

// SetCurrentPhase moves the current phase pointer without recording history
func (s *Store) SetCurrentPhase(p phase.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
}

// CurrentPhase returns the current phase, or phase.None
func (s *Store) CurrentPhase() phase.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// CompletePhase adds p to the completed set. Completing an already
// completed phase is a no-op.
func (s *Store) CompletePhase(p phase.Phase) {
	s.mu.Lock()
	added := s.completePhaseLocked(p)
	s.mu.Unlock()

	if added {
		s.emit(events.PhaseCompletedEvent{Phase: string(p)})
	}
}

func (s *Store) completePhaseLocked(p phase.Phase) bool {
	if p == phase.None || slices.Contains(s.completed, p) {
		return false
	}
	s.completed = append(s.completed, p)
	return true
}

// CompletedPhases returns completed phases in completion order
func (s *Store) CompletedPhases() []phase.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.completed)
}

// NextPhase returns the phase after the current one within the scope. With
// no current phase it continues after the last completed phase, so a
// finished plan has no next phase; an untouched store yields the first
// phase of the scope.
func (s *Store) NextPhase() phase.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextPhaseLocked()
}

func (s *Store) nextPhaseLocked() phase.Phase {
	if s.current != phase.None {
		return phase.Next(s.current, s.scope)
	}
	if n := len(s.completed); n > 0 {
		return phase.Next(s.completed[n-1], s.scope)
	}
	return phase.First(s.scope)
}

// History returns recorded phase transitions, oldest first
func (s *Store) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// SetNotes applies a partial update; only lists present in u are replaced.
func (s *Store) SetNotes(u NotesUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.DesignDecisions != nil {
		s.notes.DesignDecisions = slices.Clone(u.DesignDecisions)
	}
	if u.RemainingWork != nil {
		s.notes.RemainingWork = slices.Clone(u.RemainingWork)
	}
	if u.BreakingChanges != nil {
		s.notes.BreakingChanges = slices.Clone(u.BreakingChanges)
	}
}

// AppendDesignDecision adds one design decision
func (s *Store) AppendDesignDecision(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes.DesignDecisions = append(s.notes.DesignDecisions, note)
}

// AppendRemainingWork adds one remaining-work entry
func (s *Store) AppendRemainingWork(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes.RemainingWork = append(s.notes.RemainingWork, note)
}

// AppendBreakingChange adds one breaking-change entry
func (s *Store) AppendBreakingChange(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes.BreakingChanges = append(s.notes.BreakingChanges, note)
}

// Notes returns a copy of the handover notes
func (s *Store) Notes() Notes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notes.clone()
}

// Clear resets the store to its initial empty state
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.goal = ""
	s.requirements = nil
	s.scope = phase.DefaultScope
	s.tasks = nil
	s.notes = Notes{}
	s.current = phase.None
	s.completed = nil
	s.history = nil
}

// Snapshot returns a consistent copy of the whole record
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Goal:         s.goal,
		Requirements: cloneRequirements(s.requirements),
		Scope:        s.scope,
		Tasks:        cloneTasks(s.tasks),
		Notes:        s.notes.clone(),
		Current:      s.current,
		Completed:    slices.Clone(s.completed),
		History:      slices.Clone(s.history),
	}
}

func cloneTasks(tasks []TaskWithStatus) []TaskWithStatus {
	out := make([]TaskWithStatus, len(tasks))
	for i, t := range tasks {
		out[i] = t.clone()
	}
	return out
}

func cloneRequirements(reqs []Requirement) []Requirement {
	out := make([]Requirement, len(reqs))
	for i, r := range reqs {
		r.Constraints = slices.Clone(r.Constraints)
		out[i] = r
	}
	return out
}
