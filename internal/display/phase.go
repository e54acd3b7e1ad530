package display

import (
	"fmt"
	"slices"
	"strings"

	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

// PhaseStatus is the progress of one phase within a plan.
type PhaseStatus int

const (
	StatusPending PhaseStatus = iota
	StatusCurrent
	StatusDone
)

// StatusMarker provides text markers so status does not rely on color.
var StatusMarker = map[PhaseStatus]string{
	StatusPending: "[ ]",
	StatusCurrent: "[>]",
	StatusDone:    "[x]",
}

// StatusOf reports where p stands given the current phase and completed set.
func StatusOf(p, current phase.Phase, completed []phase.Phase) PhaseStatus {
	switch {
	case slices.Contains(completed, p):
		return StatusDone
	case p == current && p != phase.None:
		return StatusCurrent
	default:
		return StatusPending
	}
}

// PhaseLabel is "API Contract (contract)". Unknown phases show the raw
// identifier.
func PhaseLabel(p phase.Phase) string {
	info := phase.Lookup(p)
	if !info.Known {
		return string(p)
	}
	return fmt.Sprintf("%s (%s)", info.Name, p)
}

// FormatPhaseTable renders the phases of scope with their status, runbook
// and mode hint.
func FormatPhaseTable(scope phase.Scope, current phase.Phase, completed []phase.Phase) string {
	phases := phase.ForScope(scope)
	rows := make([][]string, 0, len(phases))
	for i, p := range phases {
		info := phase.Lookup(p)
		rows = append(rows, []string{
			StatusMarker[StatusOf(p, current, completed)],
			fmt.Sprintf("%d.", i+1),
			info.Name,
			string(p),
			info.Runbook,
			string(info.Mode),
		})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Phases (scope: %s, %d/%d complete)\n", scope, countInScope(completed, scope), len(phases))
	sb.WriteString(Table([]string{"", "#", "Phase", "ID", "Runbook", "Mode"}, rows))
	return sb.String()
}

func countInScope(completed []phase.Phase, scope phase.Scope) int {
	n := 0
	for _, p := range completed {
		if phase.InScope(p, scope) {
			n++
		}
	}
	return n
}

// FormatProgress renders task completion counts.
func FormatProgress(p workflow.Progress) string {
	if p.Total == 0 {
		return "Tasks: none registered"
	}
	return fmt.Sprintf("Tasks: %s %d/%d done, %d pending", ProgressBar(p.Completed, p.Total), p.Completed, p.Total, p.Pending)
}

// FormatCurrentPhase is a one-line summary of where the plan stands.
func FormatCurrentPhase(current phase.Phase, scope phase.Scope) string {
	if current == phase.None {
		return "Current phase: none"
	}
	info := phase.Lookup(current)
	line := fmt.Sprintf("Current phase: %s", PhaseLabel(current))
	if idx := slices.Index(phase.ForScope(scope), current); idx >= 0 {
		line += fmt.Sprintf(", %d of %d", idx+1, len(phase.ForScope(scope)))
	}
	if info.Mode != phase.ModeNone {
		line += fmt.Sprintf(", mode %s", info.Mode)
	}
	return line
}

// FormatPhaseList joins display names in order, e.g. "API Contract, Policy".
func FormatPhaseList(phases []phase.Phase) string {
	if len(phases) == 0 {
		return "none"
	}
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = phase.Lookup(p).Name
	}
	return strings.Join(names, ", ")
}
