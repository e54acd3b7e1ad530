// Package planner decides which phase to plan next and writes the briefing
// an agent needs to register that phase's tasks. It never mutates the store.
package planner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/valksor/go-phaseflow/internal/briefing"
	"github.com/valksor/go-phaseflow/internal/display"
	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/runbook"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

// Kind is the shape of a planning result.
type Kind int

const (
	// KindNeedsRequirements means no plan is registered yet.
	KindNeedsRequirements Kind = iota
	// KindComplete means every phase of the scope is done.
	KindComplete
	// KindBriefing is the normal case: a briefing for Result.Phase.
	KindBriefing
)

func (k Kind) String() string {
	switch k {
	case KindNeedsRequirements:
		return "needs-requirements"
	case KindComplete:
		return "complete"
	case KindBriefing:
		return "briefing"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Result is the planner output.
type Result struct {
	Kind  Kind
	Phase phase.Phase // target phase; phase.None unless Kind is KindBriefing
	Text  string

	// Briefing is the gathered context, set only for KindBriefing.
	Briefing *briefing.Briefing
}

// Planner produces phase briefings for one store.
type Planner struct {
	store      *workflow.Store
	aggregator *briefing.Aggregator
}

// New creates a planner. The aggregator is consulted only in the normal
// case.
func New(store *workflow.Store, aggregator *briefing.Aggregator) *Planner {
	if aggregator == nil {
		aggregator = briefing.NewAggregator(store)
	}
	return &Planner{store: store, aggregator: aggregator}
}

// Target resolves the phase to plan: override, else the current phase,
// else the next phase of the scope. phase.None means nothing is left.
func (p *Planner) Target(override phase.Phase) phase.Phase {
	if override != phase.None {
		return override
	}
	if current := p.store.CurrentPhase(); current != phase.None {
		return current
	}
	return p.store.NextPhase()
}

// Plan builds the planning result. override may be phase.None.
func (p *Planner) Plan(ctx context.Context, override phase.Phase) Result {
	if !p.store.HasRequirements() || p.store.Goal() == "" {
		return Result{Kind: KindNeedsRequirements, Text: RequirementsContract()}
	}

	target := p.Target(override)
	if target == phase.None {
		return Result{Kind: KindComplete, Text: CompleteSummary(p.store.Scope(), p.store.CompletedPhases())}
	}

	b := p.aggregator.Gather(ctx)
	return Result{
		Kind:     KindBriefing,
		Phase:    target,
		Text:     p.render(target, b),
		Briefing: b,
	}
}

// RequirementsContract explains how to register a plan.
func RequirementsContract() string {
	var sb strings.Builder
	sb.WriteString("No requirements registered yet. Register the plan before planning any phase:\n\n")
	sb.WriteString(`{"action": "requirements", "goal": "<one-line goal>", "scope": "` + strings.Join(scopeNames(), "|") + `",` + "\n")
	sb.WriteString(` "requirements": [{"actor": "...", "want": "...", "because": "...", "acceptance": "...", "constraints": ["..."]}]}` + "\n\n")
	fmt.Fprintf(&sb, "A goal and at least one requirement are required. Scope defaults to %q.\n", phase.DefaultScope)
	return sb.String()
}

// CompleteSummary is the terminal message once the scope is done.
func CompleteSummary(scope phase.Scope, completed []phase.Phase) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Workflow complete: every phase of scope %q is done.\n", scope)
	sb.WriteString("Completed phases, in order:\n")
	for i, c := range completed {
		fmt.Fprintf(&sb, "%s%d. %s\n", display.IndentOne, i+1, display.PhaseLabel(c))
	}
	sb.WriteString("\nCall {\"action\": \"clear\"} before registering a new plan.\n")
	return sb.String()
}

func (p *Planner) render(target phase.Phase, b *briefing.Briefing) string {
	snap := p.store.Snapshot()
	info := phase.Lookup(target)

	header := fmt.Sprintf("Planning phase: %s", display.PhaseLabel(target))
	if phases := phase.ForScope(snap.Scope); phase.InScope(target, snap.Scope) {
		header += fmt.Sprintf(" (%d of %d in scope %s)", phase.Index(target)+1, len(phases), snap.Scope)
	} else {
		header += fmt.Sprintf("\nNote: %s is outside the plan's scope %q.", target, snap.Scope)
	}

	return display.JoinSections(
		header,
		display.FormatRequirements(snap.Goal, snap.Requirements),
		contextSection(b, p.aggregator.Limits()),
		p.runbookLine(target, info, b),
		modeLine(info.Mode),
		existingTasks(snap.Tasks),
		setShape(target),
	)
}

func contextSection(b *briefing.Briefing, limits briefing.Limits) string {
	text := briefing.Format(b, limits)
	if text == "" {
		return ""
	}
	return "Context:\n\n" + text
}

func (p *Planner) runbookLine(target phase.Phase, info phase.Info, b *briefing.Briefing) string {
	if rb, ok := runbook.ForPhase(b.Runbooks, target); ok {
		return fmt.Sprintf("Runbook: %s (available at %s)", rb.ID, filepath.ToSlash(rb.Path))
	}
	if info.Runbook == "" {
		return ""
	}
	if !b.RunbooksScanned {
		return "Runbook: " + info.Runbook
	}

	dir := runbook.DefaultDir
	if c := p.aggregator.Runbooks(); c != nil {
		dir = c.Dir()
	}
	return fmt.Sprintf("Runbook: %s (missing, expected in %s)", info.Runbook, filepath.ToSlash(dir))
}

func modeLine(mode phase.Mode) string {
	switch mode {
	case phase.ModeParallel:
		return "Mode: parallel. Tasks in this phase are independent and may be worked on concurrently."
	case phase.ModeSequential:
		return "Mode: sequential. Work through the tasks in index order."
	}
	return ""
}

func existingTasks(tasks []workflow.TaskWithStatus) string {
	if len(tasks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Registered tasks (echo these in \"set\" to keep them):\n")
	for _, t := range tasks {
		fmt.Fprintf(&sb, "%s%s id=%s", display.IndentOne, display.TaskLine(t), t.ID)
		if t.Phase != phase.None {
			fmt.Fprintf(&sb, " phase=%s", t.Phase)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func setShape(target phase.Phase) string {
	var sb strings.Builder
	sb.WriteString("Register this phase's tasks with:\n\n")
	fmt.Fprintf(&sb, `{"action": "set", "tasks": [{"what": "...", "why": "...", "doneWhen": "...", "phase": %q, "refs": ["..."]}],`+"\n", target)
	sb.WriteString(` "notes": {"designDecisions": ["..."], "remainingWork": ["..."], "breakingChanges": ["..."]}}` + "\n\n")
	sb.WriteString("\"set\" replaces the whole task list and renumbers it. To keep a completed task, echo it with \"done\": true")
	sb.WriteString(" or echo its \"id\"; tasks sent without either start pending.\n")
	return sb.String()
}

func scopeNames() []string {
	names := make([]string, len(phase.Scopes))
	for i, s := range phase.Scopes {
		names[i] = string(s)
	}
	return names
}
