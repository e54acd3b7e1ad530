// Package dispatch applies workflow actions to a store and renders the text
// response an agent reads back.
//
// A Dispatcher serialises actions: each one runs to completion before the
// next starts, so a chained done (mark, complete, advance, brief) is never
// interleaved with another action on the same store.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/valksor/go-phaseflow/internal/briefing"
	"github.com/valksor/go-phaseflow/internal/display"
	"github.com/valksor/go-phaseflow/internal/events"
	"github.com/valksor/go-phaseflow/internal/log"
	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/planner"
	"github.com/valksor/go-phaseflow/internal/provider"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

// Response is the outcome of one action.
type Response struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	// Blocked is set when advance was refused because tasks are pending.
	Blocked bool   `json:"blocked,omitempty"`
	Text    string `json:"text"`
}

// Dispatcher routes actions to the store, the planner and the aggregator.
type Dispatcher struct {
	mu sync.Mutex

	store      *workflow.Store
	aggregator *briefing.Aggregator
	planner    *planner.Planner
	publisher  workflow.Publisher

	defaultScope phase.Scope
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithAggregator sets the context sources used by plan, list and restore
func WithAggregator(a *briefing.Aggregator) Option {
	return func(d *Dispatcher) {
		d.aggregator = a
	}
}

// WithPublisher sets where action_dispatched events go
func WithPublisher(p workflow.Publisher) Option {
	return func(d *Dispatcher) {
		d.publisher = p
	}
}

// WithDefaultScope sets the scope used when requirements names none
func WithDefaultScope(s phase.Scope) Option {
	return func(d *Dispatcher) {
		d.defaultScope = s
	}
}

// New creates a dispatcher over store.
func New(store *workflow.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store, defaultScope: phase.DefaultScope}
	for _, opt := range opts {
		opt(d)
	}
	if d.aggregator == nil {
		d.aggregator = briefing.NewAggregator(store)
	}
	d.planner = planner.New(store, d.aggregator)
	return d
}

// Store returns the record this dispatcher mutates
func (d *Dispatcher) Store() *workflow.Store {
	return d.store
}

// Handle decodes and dispatches a wire request.
func (d *Dispatcher) Handle(ctx context.Context, r Request) (*Response, error) {
	action, err := Decode(r)
	if err != nil {
		d.published(actionLabel(r.Action), false)
		return nil, err
	}
	return d.Dispatch(ctx, action)
}

// Dispatch runs one action. Rejections (unknown phase or scope, failed
// preconditions) are returned as errors and leave the store untouched.
// Unknown task indexes and blocked transitions are successful calls with
// explanatory text.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action) (*Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	log.Debug("dispatching action", "action", action.Name())

	var (
		resp *Response
		err  error
	)
	switch a := action.(type) {
	case Requirements:
		resp = d.requirements(a)
	case Set:
		resp, err = d.set(a)
	case Done:
		resp = d.done(ctx, a)
	case Advance:
		resp, err = d.advance()
	case List:
		resp = d.list(ctx)
	case Plan:
		resp = d.plan(ctx, a)
	case Restore:
		resp = d.restore(ctx, a)
	case Clear:
		resp = d.clear()
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}

	if err != nil {
		log.With("action", action.Name()).Debugw("action rejected", log.Err(err))
		d.published(action.Name(), false)
		return nil, err
	}

	resp.Action = action.Name()
	d.published(resp.Action, resp.Success)
	return resp, nil
}

// actionLabel names a request that failed to decode. Anything outside the
// catalogue is reported as ActionUnknown so clients cannot mint new names.
func actionLabel(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if slices.Contains(Actions, name) {
		return name
	}
	return ActionUnknown
}

func (d *Dispatcher) published(action string, success bool) {
	if d.publisher == nil {
		return
	}
	d.publisher.Publish(events.ActionDispatchedEvent{Action: action, Success: success})
}

func (d *Dispatcher) requirements(a Requirements) *Response {
	if a.Scope == "" {
		a.Scope = d.defaultScope
	}
	first := d.store.RegisterPlan(a.Goal, a.Requirements, a.Scope)
	log.Info("plan registered", "scope", a.Scope, log.Phase(first))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan registered with %s.\n", display.Plural(len(a.Requirements), "requirement"))
	if first != phase.None {
		fmt.Fprintf(&sb, "Current phase: %s.\n", display.PhaseLabel(first))
	}
	text := display.JoinSections(
		sb.String(),
		display.FormatRequirements(a.Goal, a.Requirements),
		display.FormatPhaseTable(a.Scope, first, nil),
		"Next: call {\"action\": \"plan\"} for the first phase briefing.",
	)
	return &Response{Success: true, Text: text}
}

func (d *Dispatcher) set(a Set) (*Response, error) {
	if !d.store.HasRequirements() {
		return nil, fmt.Errorf("%w: no requirements registered; call \"requirements\" with a goal and at least one requirement before \"set\"", ErrPrecondition)
	}
	if len(a.Tasks) == 0 {
		return nil, fmt.Errorf("%w: set needs at least one task", ErrPrecondition)
	}
	scope := d.store.Scope()
	for i, t := range a.Tasks {
		if t.Phase != phase.None && !phase.InScope(t.Phase, scope) {
			return nil, fmt.Errorf("%w: task %d is tagged %q, which is outside scope %q (phases: %s)",
				ErrPrecondition, i, t.Phase, scope, display.FormatPhaseList(phase.ForScope(scope)))
		}
	}

	tasks := d.store.SetTasks(a.Tasks, a.Goal)
	if !a.Notes.IsZero() {
		d.store.SetNotes(a.Notes)
	}

	snap := d.store.Snapshot()
	header := fmt.Sprintf("Registered %s.", display.Plural(len(tasks), "task"))
	text := display.JoinSections(
		header,
		display.FormatProgress(snap.Progress())+"\n"+display.FormatTasks(tasks),
		display.FormatNextTask(tasks),
		display.FormatNotes(snap.Notes),
	)
	return &Response{Success: true, Text: text}, nil
}

func (d *Dispatcher) done(ctx context.Context, a Done) *Response {
	if !d.store.MarkDone(a.Index) {
		total := len(d.store.Tasks())
		text := fmt.Sprintf("No task with index %d. ", a.Index)
		if total == 0 {
			text += "No tasks are registered; use \"set\" first.\n"
		} else {
			text += fmt.Sprintf("Valid indexes are 0 to %d; call {\"action\": \"list\"} to see them.\n", total-1)
		}
		return &Response{Success: false, Text: text}
	}

	sections := []string{fmt.Sprintf("Task #%d marked done.", a.Index)}

	current, ready := d.store.CompletePhaseIfReady()
	if !ready {
		snap := d.store.Snapshot()
		sections = append(sections, display.FormatProgress(snap.Progress()))
		if current != phase.None {
			pending := len(d.store.PendingTasksForPhase(current))
			if pending > 0 {
				sections = append(sections, fmt.Sprintf("%s: %s still pending.", display.PhaseLabel(current), display.Plural(pending, "task")))
			}
		}
		sections = append(sections, display.FormatNextTask(snap.Tasks))
		return &Response{Success: true, Text: display.JoinSections(sections...)}
	}

	tr, err := d.store.AdvanceIfPossible(workflow.TriggerAuto)
	if err != nil {
		// Only reachable when the store is mutated outside this dispatcher.
		log.Warn("auto-advance failed", log.Phase(current), log.Err(err))
		return &Response{Success: true, Text: display.JoinSections(sections...)}
	}
	log.Info("phase advanced", append(log.Transition(tr.From, tr.To), "trigger", workflow.TriggerAuto)...)

	sections = append(sections, display.FormatTransition(tr))
	if tr.Finished {
		sections = append(sections, planner.CompleteSummary(d.store.Scope(), d.store.CompletedPhases()))
	} else {
		sections = append(sections, d.briefNextPhase(ctx, tr.To))
	}
	return &Response{Success: true, Text: display.JoinSections(sections...)}
}

// briefNextPhase plans the phase an automatic transition landed on.
func (d *Dispatcher) briefNextPhase(ctx context.Context, next phase.Phase) string {
	return d.planner.Plan(ctx, next).Text
}

func (d *Dispatcher) advance() (*Response, error) {
	tr, err := d.store.AdvanceIfPossible(workflow.TriggerAdvance)
	if err != nil {
		var blocked *workflow.BlockedError
		switch {
		case errors.As(err, &blocked):
			return &Response{Success: true, Blocked: true, Text: display.FormatBlocked(blocked.Phase, blocked.Pending)}, nil
		case errors.Is(err, workflow.ErrNoCurrentPhase):
			if !d.store.HasRequirements() {
				return nil, fmt.Errorf("%w: no current phase; register requirements first", ErrPrecondition)
			}
			return nil, fmt.Errorf("%w: no current phase; every phase of scope %q is complete", ErrPrecondition, d.store.Scope())
		default:
			return nil, err
		}
	}
	log.Info("phase advanced", append(log.Transition(tr.From, tr.To), "trigger", workflow.TriggerAdvance)...)

	sections := []string{display.FormatTransition(tr)}
	if tr.Finished {
		sections = append(sections, planner.CompleteSummary(d.store.Scope(), d.store.CompletedPhases()))
	} else {
		sections = append(sections, fmt.Sprintf("Call {\"action\": \"plan\"} for the %s briefing.", phase.DisplayName(tr.To)))
	}
	return &Response{Success: true, Text: display.JoinSections(sections...)}, nil
}

func (d *Dispatcher) list(ctx context.Context) *Response {
	pr, err := d.aggregator.PullRequest(ctx, 0)
	if err != nil {
		if !errors.Is(err, briefing.ErrNoSource) && !errors.Is(err, provider.ErrNoPullRequest) {
			log.Debug("list: pull request unavailable", log.Err(err))
		}
		pr = nil
	}
	return &Response{Success: true, Text: display.FormatState(d.store.Snapshot(), pr)}
}

func (d *Dispatcher) plan(ctx context.Context, a Plan) *Response {
	res := d.planner.Plan(ctx, a.Phase)
	return &Response{Success: true, Text: res.Text}
}

func (d *Dispatcher) restore(ctx context.Context, a Restore) *Response {
	pr, err := d.aggregator.PullRequest(ctx, a.PRNumber)
	if err != nil {
		return &Response{Success: true, Text: restoreGuidance(a.PRNumber, err)}
	}
	if strings.TrimSpace(pr.Body) == "" {
		text := fmt.Sprintf("Pull request #%d has an empty description, so there is no plan to restore.\n", pr.Number) +
			"Register the plan again with \"requirements\" and \"set\", or write the plan into the description and retry.\n"
		return &Response{Success: true, Text: text}
	}
	return &Response{Success: true, Text: restoreBriefing(pr)}
}

func restoreGuidance(number int, err error) string {
	var sb strings.Builder
	switch {
	case errors.Is(err, briefing.ErrNoSource):
		sb.WriteString("No hosting platform is configured, so there is no pull request to restore from.\n")
		sb.WriteString("Set provider.name (github or gitlab) and a token, or register the plan again with \"requirements\" and \"set\".\n")
	case errors.Is(err, provider.ErrNoPullRequest):
		if number > 0 {
			fmt.Fprintf(&sb, "Pull request #%d was not found.\n", number)
		} else {
			sb.WriteString("No open pull request was found for the current branch.\n")
		}
		sb.WriteString("Push the branch and open a pull request, or pass \"prNumber\" explicitly.\n")
	default:
		fmt.Fprintf(&sb, "Could not read the pull request: %v\n", err)
		sb.WriteString("Check the platform token and network access, then retry.\n")
	}
	return sb.String()
}

func restoreBriefing(pr *provider.PullRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Restore the plan from pull request #%d: %s\n", pr.Number, pr.Title)
	if pr.URL != "" {
		sb.WriteString(pr.URL + "\n")
	}
	sb.WriteString("\nRead the description below and replay it:\n")
	sb.WriteString(display.IndentOne + "1. {\"action\": \"requirements\"} with the goal, scope and requirements it records.\n")
	sb.WriteString(display.IndentOne + "2. {\"action\": \"set\"} with its tasks and notes. Send finished tasks with \"done\": true.\n")
	sb.WriteString(display.IndentOne + "3. {\"action\": \"list\"} to check the restored state.\n")
	sb.WriteString("\n--- pull request description ---\n")
	sb.WriteString(strings.TrimRight(pr.Body, "\n"))
	sb.WriteString("\n--- end of description ---\n")
	return sb.String()
}

func (d *Dispatcher) clear() *Response {
	d.store.Clear()
	log.Info("workflow cleared")
	return &Response{Success: true, Text: "Workflow state cleared. Start again with {\"action\": \"requirements\"}.\n"}
}
