package events

import "time"

// Type identifies event categories
type Type string

const (
	TypeActionDispatched  Type = "action_dispatched"
	TypeRequirementsSet   Type = "requirements_set"
	TypeTaskDone          Type = "task_done"
	TypePhaseCompleted    Type = "phase_completed"
	TypePhaseAdvanced     Type = "phase_advanced"
	TypeWorkflowCompleted Type = "workflow_completed"
	TypeSourceFailed      Type = "source_failed"
)

// Event is the base event structure
type Event struct {
	Type      Type
	Timestamp time.Time
	Data      map[string]any
}

// Eventer interface for typed events
type Eventer interface {
	ToEvent() Event
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// ActionDispatchedEvent is emitted once per handled request.
type ActionDispatchedEvent struct {
	Action    string
	Success   bool
	Timestamp time.Time
}

func (e ActionDispatchedEvent) ToEvent() Event {
	return Event{
		Type:      TypeActionDispatched,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"action":  e.Action,
			"success": e.Success,
		},
	}
}

// RequirementsSetEvent when a plan's goal and scope are (re)registered
type RequirementsSetEvent struct {
	Goal      string
	Scope     string
	Phases    int
	Timestamp time.Time
}

func (e RequirementsSetEvent) ToEvent() Event {
	return Event{
		Type:      TypeRequirementsSet,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"goal":   e.Goal,
			"scope":  e.Scope,
			"phases": e.Phases,
		},
	}
}

// TaskDoneEvent when a task transitions to done
type TaskDoneEvent struct {
	TaskID    string
	Index     int
	Phase     string
	Timestamp time.Time
}

func (e TaskDoneEvent) ToEvent() Event {
	return Event{
		Type:      TypeTaskDone,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"task_id": e.TaskID,
			"index":   e.Index,
			"phase":   e.Phase,
		},
	}
}

// PhaseCompletedEvent when the last open task of a phase is finished
type PhaseCompletedEvent struct {
	Phase     string
	Timestamp time.Time
}

func (e PhaseCompletedEvent) ToEvent() Event {
	return Event{
		Type:      TypePhaseCompleted,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"phase": e.Phase,
		},
	}
}

// PhaseAdvancedEvent when the current phase pointer moves
type PhaseAdvancedEvent struct {
	From      string
	To        string
	Trigger   string // auto or advance
	Timestamp time.Time
}

func (e PhaseAdvancedEvent) ToEvent() Event {
	return Event{
		Type:      TypePhaseAdvanced,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"from":    e.From,
			"to":      e.To,
			"trigger": e.Trigger,
		},
	}
}

// WorkflowCompletedEvent when every phase in scope is completed
type WorkflowCompletedEvent struct {
	Scope     string
	Timestamp time.Time
}

func (e WorkflowCompletedEvent) ToEvent() Event {
	return Event{
		Type:      TypeWorkflowCompleted,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"scope": e.Scope,
		},
	}
}

// SourceFailedEvent when a briefing source query fails and is degraded
type SourceFailedEvent struct {
	Source    string // commits, comments or runbooks
	Error     error
	Timestamp time.Time
}

func (e SourceFailedEvent) ToEvent() Event {
	errMsg := ""
	if e.Error != nil {
		errMsg = e.Error.Error()
	}
	return Event{
		Type:      TypeSourceFailed,
		Timestamp: stamp(e.Timestamp),
		Data: map[string]any{
			"source": e.Source,
			"error":  errMsg,
		},
	}
}
