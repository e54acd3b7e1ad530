package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

var (
	// ErrUnknownAction is returned for an action name outside the catalogue.
	ErrUnknownAction = errors.New("unknown action")
	// ErrPrecondition is returned when a request is well formed but cannot be
	// applied to the current record. The store is left unmodified.
	ErrPrecondition = errors.New("precondition failed")
)

// Action names as they appear on the wire.
const (
	ActionRequirements = "requirements"
	ActionSet          = "set"
	ActionDone         = "done"
	ActionAdvance      = "advance"
	ActionList         = "list"
	ActionPlan         = "plan"
	ActionRestore      = "restore"
	ActionClear        = "clear"

	// ActionUnknown is reported for requests whose action is not recognised.
	ActionUnknown = "unknown"
)

// Actions lists every action name in catalogue order.
var Actions = []string{
	ActionRequirements, ActionSet, ActionDone, ActionAdvance,
	ActionList, ActionPlan, ActionRestore, ActionClear,
}

// Request is the loosely typed wire form shared by the MCP tool and the
// session command. Only the fields relevant to Action are read.
type Request struct {
	Action       string                 `json:"action" jsonschema:"one of requirements, set, done, advance, list, plan, restore, clear"`
	Goal         string                 `json:"goal,omitempty" jsonschema:"one-line goal of the plan (requirements; optional on set)"`
	Requirements []workflow.Requirement `json:"requirements,omitempty" jsonschema:"who needs what and how acceptance is judged (requirements)"`
	Scope        string                 `json:"scope,omitempty" jsonschema:"policy, frontend, server-core or full (requirements; default full)"`
	Tasks        []workflow.Task        `json:"tasks,omitempty" jsonschema:"complete replacement task list (set)"`
	Notes        *workflow.NotesUpdate  `json:"notes,omitempty" jsonschema:"handover notes; a list that is sent replaces the stored one (set)"`
	Index        *int                   `json:"index,omitempty" jsonschema:"current index of the task to mark done (done)"`
	Phase        string                 `json:"phase,omitempty" jsonschema:"phase to plan instead of the current one (plan)"`
	PRNumber     int                    `json:"prNumber,omitempty" jsonschema:"pull request to restore from; default is the current branch (restore)"`
}

// Action is one validated request. The concrete types below are the only
// implementations.
type Action interface {
	Name() string
}

// Requirements registers a plan. An empty Scope takes the dispatcher's
// default scope.
type Requirements struct {
	Goal         string
	Requirements []workflow.Requirement
	Scope        phase.Scope
}

// Set replaces the task list and merges notes.
type Set struct {
	Tasks []workflow.Task
	Notes workflow.NotesUpdate
	Goal  string
}

// Done marks one task done by its current index.
type Done struct {
	Index int
}

// Advance moves past the current phase on request.
type Advance struct{}

// List renders the whole record.
type List struct{}

// Plan asks for a phase briefing. Phase is phase.None for the default target.
type Plan struct {
	Phase phase.Phase
}

// Restore reads a pull request description to rebuild a plan. PRNumber 0
// means the pull request of the current branch.
type Restore struct {
	PRNumber int
}

// Clear resets the record.
type Clear struct{}

func (Requirements) Name() string { return ActionRequirements }
func (Set) Name() string          { return ActionSet }
func (Done) Name() string         { return ActionDone }
func (Advance) Name() string      { return ActionAdvance }
func (List) Name() string         { return ActionList }
func (Plan) Name() string         { return ActionPlan }
func (Restore) Name() string      { return ActionRestore }
func (Clear) Name() string        { return ActionClear }

// Decode validates a wire request and converts it to its Action. Checks that
// depend on the stored record happen at dispatch time instead.
func Decode(r Request) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(r.Action)) {
	case ActionRequirements:
		return decodeRequirements(r)
	case ActionSet:
		return decodeSet(r)
	case ActionDone:
		if r.Index == nil {
			return nil, fmt.Errorf("%w: done needs an \"index\"", ErrPrecondition)
		}
		return Done{Index: *r.Index}, nil
	case ActionAdvance:
		return Advance{}, nil
	case ActionList:
		return List{}, nil
	case ActionPlan:
		p, err := phase.Parse(r.Phase)
		if err != nil {
			return nil, err
		}
		return Plan{Phase: p}, nil
	case ActionRestore:
		if r.PRNumber < 0 {
			return nil, fmt.Errorf("%w: prNumber must be positive, got %d", ErrPrecondition, r.PRNumber)
		}
		return Restore{PRNumber: r.PRNumber}, nil
	case ActionClear:
		return Clear{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing \"action\" (expected one of %s)", ErrUnknownAction, strings.Join(Actions, ", "))
	default:
		return nil, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownAction, r.Action, strings.Join(Actions, ", "))
	}
}

func decodeRequirements(r Request) (Action, error) {
	goal := strings.TrimSpace(r.Goal)
	if goal == "" {
		return nil, fmt.Errorf("%w: requirements needs a non-empty \"goal\"", ErrPrecondition)
	}
	if len(r.Requirements) == 0 {
		return nil, fmt.Errorf("%w: requirements needs at least one requirement", ErrPrecondition)
	}
	a := Requirements{Goal: goal, Requirements: r.Requirements}
	if strings.TrimSpace(r.Scope) != "" {
		scope, err := phase.ParseScope(r.Scope)
		if err != nil {
			return nil, err
		}
		a.Scope = scope
	}
	return a, nil
}

// decodeSet only checks that task phases exist. Whether they are in scope
// and whether any tasks were sent is decided against the record, so that a
// set before requirements reports the missing plan first.
func decodeSet(r Request) (Action, error) {
	tasks := make([]workflow.Task, len(r.Tasks))
	for i, t := range r.Tasks {
		p, err := phase.Parse(string(t.Phase))
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		t.Phase = p
		tasks[i] = t
	}

	s := Set{Tasks: tasks, Goal: strings.TrimSpace(r.Goal)}
	if r.Notes != nil {
		s.Notes = *r.Notes
	}
	return s, nil
}
