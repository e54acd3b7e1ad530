package display

import (
	"fmt"
	"strings"

	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/provider"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

// FormatRequirements renders the goal and the numbered requirements.
func FormatRequirements(goal string, reqs []workflow.Requirement) string {
	var sb strings.Builder
	if goal != "" {
		fmt.Fprintf(&sb, "Goal: %s\n", goal)
	}
	if len(reqs) == 0 {
		return sb.String()
	}

	sb.WriteString("Requirements:\n")
	for i, r := range reqs {
		fmt.Fprintf(&sb, "%s%d. As %s, I want %s, because %s.\n", IndentOne, i+1, r.Actor, r.Want, r.Because)
		if r.Acceptance != "" {
			fmt.Fprintf(&sb, "%s   Acceptance: %s\n", IndentOne, r.Acceptance)
		}
		if len(r.Constraints) > 0 {
			fmt.Fprintf(&sb, "%s   Constraints: %s\n", IndentOne, strings.Join(r.Constraints, "; "))
		}
	}
	return sb.String()
}

// FormatNotes renders the non-empty note lists.
func FormatNotes(n workflow.Notes) string {
	if n.IsEmpty() {
		return ""
	}

	var sb strings.Builder
	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(title)
		sb.WriteString(":\n")
		for _, item := range items {
			fmt.Fprintf(&sb, "%s- %s\n", IndentOne, item)
		}
	}

	writeList("Design decisions", n.DesignDecisions)
	writeList("Remaining work", n.RemainingWork)
	writeList("Breaking changes", n.BreakingChanges)
	return sb.String()
}

// FormatHistory renders phase transitions oldest first.
func FormatHistory(history []workflow.HistoryEntry) string {
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Transitions:\n")
	for _, h := range history {
		to := "complete"
		if h.To != phase.None {
			to = string(h.To)
		}
		fmt.Fprintf(&sb, "%s%s -> %s (%s, %s)\n", IndentOne, h.From, to, h.Trigger, h.At.UTC().Format(TimestampFormat))
	}
	return sb.String()
}

// FormatTransition summarises one move between phases.
func FormatTransition(tr workflow.Transition) string {
	if tr.Finished {
		return fmt.Sprintf("Phase %s complete. That was the last phase of the plan.\n", PhaseLabel(tr.From))
	}
	return fmt.Sprintf("Phase %s complete. Moving to %s.\n", PhaseLabel(tr.From), PhaseLabel(tr.To))
}

// FormatPullRequest renders "Pull request: #12 Title (url)".
func FormatPullRequest(pr *provider.PullRequest) string {
	if pr == nil {
		return ""
	}
	line := fmt.Sprintf("Pull request: #%d %s", pr.Number, pr.Title)
	if pr.URL != "" {
		line += " (" + pr.URL + ")"
	}
	return line + "\n"
}

// FormatState renders the full record for the list action. pr may be nil.
func FormatState(s workflow.Snapshot, pr *provider.PullRequest) string {
	if !s.HasRequirements() && len(s.Tasks) == 0 {
		var sb strings.Builder
		sb.WriteString("No plan registered.\n")
		sb.WriteString("Start with {\"action\": \"requirements\", \"goal\": \"...\", \"requirements\": [...], \"scope\": \"full\"}.\n")
		sb.WriteString(FormatPullRequest(pr))
		return sb.String()
	}

	sections := []string{
		FormatRequirements(s.Goal, s.Requirements),
		FormatCurrentPhase(s.Current, s.Scope) + "\n" + FormatPhaseTable(s.Scope, s.Current, s.Completed),
		FormatProgress(s.Progress()) + "\n" + FormatTasks(s.Tasks),
		FormatNextTask(s.Tasks),
		FormatNotes(s.Notes),
		FormatHistory(s.History),
		FormatPullRequest(pr),
	}

	return JoinSections(sections...)
}

// JoinSections joins non-empty sections with a blank line.
func JoinSections(sections ...string) string {
	var parts []string
	for _, s := range sections {
		if s = strings.TrimRight(s, "\n"); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}
