package workflow

import (
	"slices"
	"time"

	"github.com/valksor/go-phaseflow/internal/phase"
)

// Requirement captures who needs what and how acceptance is judged.
type Requirement struct {
	Actor       string   `json:"actor"`
	Want        string   `json:"want"`
	Because     string   `json:"because"`
	Acceptance  string   `json:"acceptance"`
	Constraints []string `json:"constraints,omitempty"`
}

// Task is a unit of planned work as supplied by the caller.
type Task struct {
	// ID is optional. Echoing the ID of a previously registered task carries
	// its completion over a re-plan.
	ID       string      `json:"id,omitempty"`
	What     string      `json:"what"`
	Why      string      `json:"why"`
	DoneWhen string      `json:"doneWhen"`
	Refs     []string    `json:"refs,omitempty"`
	Phase    phase.Phase `json:"phase,omitempty"`
	Done     *bool       `json:"done,omitempty"`
}

// TaskWithStatus is a registered task. Index is its position in the current
// list and changes on every replacement; ID does not.
type TaskWithStatus struct {
	Index    int         `json:"index"`
	ID       string      `json:"id"`
	What     string      `json:"what"`
	Why      string      `json:"why"`
	DoneWhen string      `json:"doneWhen"`
	Refs     []string    `json:"refs,omitempty"`
	Phase    phase.Phase `json:"phase,omitempty"`
	Done     bool        `json:"done"`
}

func (t TaskWithStatus) clone() TaskWithStatus {
	t.Refs = slices.Clone(t.Refs)
	return t
}

// Notes are handover notes carried between sessions.
type Notes struct {
	DesignDecisions []string `json:"designDecisions"`
	RemainingWork   []string `json:"remainingWork"`
	BreakingChanges []string `json:"breakingChanges"`
}

// IsEmpty reports whether no list has entries
func (n Notes) IsEmpty() bool {
	return len(n.DesignDecisions) == 0 && len(n.RemainingWork) == 0 && len(n.BreakingChanges) == 0
}

func (n Notes) clone() Notes {
	return Notes{
		DesignDecisions: slices.Clone(n.DesignDecisions),
		RemainingWork:   slices.Clone(n.RemainingWork),
		BreakingChanges: slices.Clone(n.BreakingChanges),
	}
}

// NotesUpdate is a partial notes update. A nil list is absent and leaves the
// stored list alone; a non-nil list (even empty) replaces it.
type NotesUpdate struct {
	DesignDecisions []string `json:"designDecisions,omitempty"`
	RemainingWork   []string `json:"remainingWork,omitempty"`
	BreakingChanges []string `json:"breakingChanges,omitempty"`
}

// IsZero reports whether the update carries no lists at all
func (u NotesUpdate) IsZero() bool {
	return u.DesignDecisions == nil && u.RemainingWork == nil && u.BreakingChanges == nil
}

// Progress counts tasks by completion.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Trigger names what caused a phase transition.
type Trigger string

const (
	TriggerAuto    Trigger = "auto"    // last task of the phase marked done
	TriggerAdvance Trigger = "advance" // explicit caller request
)

// HistoryEntry records a phase transition. To is phase.None when the
// transition finished the workflow.
type HistoryEntry struct {
	From    phase.Phase `json:"from"`
	To      phase.Phase `json:"to"`
	Trigger Trigger     `json:"trigger"`
	At      time.Time   `json:"at"`
}

// Transition is the outcome of AdvanceIfPossible.
type Transition struct {
	From phase.Phase
	To   phase.Phase
	// Finished is true when From was the last phase of the scope.
	Finished bool
}

// Snapshot is a consistent copy of the whole record.
type Snapshot struct {
	Goal         string
	Requirements []Requirement
	Scope        phase.Scope
	Tasks        []TaskWithStatus
	Notes        Notes
	Current      phase.Phase
	Completed    []phase.Phase
	History      []HistoryEntry
}

// HasRequirements reports whether a plan has been registered
func (s Snapshot) HasRequirements() bool {
	return len(s.Requirements) > 0
}

// Progress counts tasks in the snapshot
func (s Snapshot) Progress() Progress {
	return countProgress(s.Tasks)
}

// TasksForPhase returns snapshot tasks tagged with p
func (s Snapshot) TasksForPhase(p phase.Phase) []TaskWithStatus {
	return filterTasks(s.Tasks, func(t TaskWithStatus) bool { return t.Phase == p })
}

func countProgress(tasks []TaskWithStatus) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		if t.Done {
			p.Completed++
		}
	}
	p.Pending = p.Total - p.Completed
	return p
}

func filterTasks(tasks []TaskWithStatus, keep func(TaskWithStatus) bool) []TaskWithStatus {
	out := make([]TaskWithStatus, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t.clone())
		}
	}
	return out
}
