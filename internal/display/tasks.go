package display

import (
	"fmt"
	"slices"
	"strings"

	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

const unphasedHeading = "Unphased"

// TaskLine renders "[x] #2 what".
func TaskLine(t workflow.TaskWithStatus) string {
	mark := StatusMarker[StatusPending]
	if t.Done {
		mark = StatusMarker[StatusDone]
	}
	return fmt.Sprintf("%s #%d %s", mark, t.Index, t.What)
}

// FormatTasks groups tasks by phase in catalogue order. Phases outside the
// catalogue follow in first-seen order and untagged tasks come last.
func FormatTasks(tasks []workflow.TaskWithStatus) string {
	if len(tasks) == 0 {
		return ""
	}

	groups := make(map[phase.Phase][]workflow.TaskWithStatus)
	var unknown []phase.Phase
	for _, t := range tasks {
		if _, seen := groups[t.Phase]; !seen && t.Phase != phase.None && phase.Index(t.Phase) < 0 {
			unknown = append(unknown, t.Phase)
		}
		groups[t.Phase] = append(groups[t.Phase], t)
	}

	order := make([]phase.Phase, 0, len(groups))
	for _, p := range phase.Order {
		if _, ok := groups[p]; ok {
			order = append(order, p)
		}
	}
	order = append(order, unknown...)
	if _, ok := groups[phase.None]; ok {
		order = append(order, phase.None)
	}

	var sb strings.Builder
	for i, p := range order {
		if i > 0 {
			sb.WriteString("\n")
		}
		group := groups[p]
		done := 0
		for _, t := range group {
			if t.Done {
				done++
			}
		}

		heading := unphasedHeading
		if p != phase.None {
			heading = PhaseLabel(p)
		}
		fmt.Fprintf(&sb, "%s %d/%d\n", heading, done, len(group))
		for _, t := range group {
			sb.WriteString(IndentOne)
			sb.WriteString(TaskLine(t))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// FormatNextTask calls out the lowest-indexed pending task with its full
// detail. It returns "" when there are no tasks.
func FormatNextTask(tasks []workflow.TaskWithStatus) string {
	if len(tasks) == 0 {
		return ""
	}

	pending := slices.DeleteFunc(slices.Clone(tasks), func(t workflow.TaskWithStatus) bool { return t.Done })
	if len(pending) == 0 {
		return "All registered tasks are done.\n"
	}
	next := slices.MinFunc(pending, func(a, b workflow.TaskWithStatus) int { return a.Index - b.Index })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Next task #%d: %s\n", next.Index, next.What)
	writeTaskDetail(&sb, next)
	return sb.String()
}

func writeTaskDetail(sb *strings.Builder, t workflow.TaskWithStatus) {
	if t.Why != "" {
		fmt.Fprintf(sb, "%sWhy: %s\n", IndentOne, t.Why)
	}
	if t.DoneWhen != "" {
		fmt.Fprintf(sb, "%sDone when: %s\n", IndentOne, t.DoneWhen)
	}
	if t.Phase != phase.None {
		fmt.Fprintf(sb, "%sPhase: %s\n", IndentOne, PhaseLabel(t.Phase))
	}
	if len(t.Refs) > 0 {
		fmt.Fprintf(sb, "%sRefs: %s\n", IndentOne, strings.Join(t.Refs, ", "))
	}
}

// FormatBlocked explains why the current phase cannot be completed.
func FormatBlocked(p phase.Phase, pending []workflow.TaskWithStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cannot advance: %s has %s pending.\n", PhaseLabel(p), Plural(len(pending), "task"))
	for _, t := range pending {
		sb.WriteString(IndentOne)
		sb.WriteString(TaskLine(t))
		sb.WriteString("\n")
		if t.DoneWhen != "" {
			fmt.Fprintf(&sb, "%sDone when: %s\n", IndentTwo, t.DoneWhen)
		}
	}
	sb.WriteString("\nMark each one with {\"action\": \"done\", \"index\": N} or replace the task list with \"set\".\n")
	return sb.String()
}
