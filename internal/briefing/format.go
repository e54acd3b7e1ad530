package briefing

import (
	"fmt"
	"strings"

	"github.com/valksor/go-phaseflow/internal/display"
	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/provider"
)

// Format renders the non-empty sections of b within limits. It returns ""
// for an empty briefing.
func Format(b *Briefing, limits Limits) string {
	if b == nil {
		return ""
	}
	limits = limits.withDefaults()

	return display.JoinSections(
		formatCommits(b, limits.CommitLimit),
		formatComments(b, limits),
		formatCompletedTasks(b),
		display.FormatNotes(b.Notes),
		formatCompletedPhases(b.CompletedPhases),
	)
}

func formatCommits(b *Briefing, limit int) string {
	if len(b.Commits) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Recent commits:\n")
	for _, c := range b.Commits[:min(limit, len(b.Commits))] {
		fmt.Fprintf(&sb, "%s%s %s %s (%s)\n", display.IndentOne, c.ShortHash, c.Date.UTC().Format(display.DateFormat), c.Subject, c.Author)
	}
	if extra := len(b.Commits) - limit; extra > 0 {
		fmt.Fprintf(&sb, "%s... %s more\n", display.IndentOne, display.Plural(extra, "commit"))
	}
	return sb.String()
}

func formatComments(b *Briefing, limits Limits) string {
	if len(b.Comments) == 0 {
		return ""
	}

	var sb strings.Builder
	if b.PullRequest != nil {
		fmt.Fprintf(&sb, "Pull request #%d comments:\n", b.PullRequest.Number)
	} else {
		sb.WriteString("Pull request comments:\n")
	}

	for _, c := range b.Comments[:min(limits.CommentLimit, len(b.Comments))] {
		where := ""
		if c.Kind == provider.CommentReview && c.Path != "" {
			where = " on " + c.Path
		}
		fmt.Fprintf(&sb, "%s[%s] @%s%s: %s\n", display.IndentOne,
			c.CreatedAt.UTC().Format(display.TimestampFormat), c.Author, where,
			display.Preview(c.Body, limits.CommentPreview))
	}
	if extra := len(b.Comments) - limits.CommentLimit; extra > 0 {
		fmt.Fprintf(&sb, "%s... %s more\n", display.IndentOne, display.Plural(extra, "comment"))
	}
	return sb.String()
}

func formatCompletedTasks(b *Briefing) string {
	if len(b.CompletedTasks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Completed tasks:\n")
	for _, t := range b.CompletedTasks {
		sb.WriteString(display.IndentOne)
		sb.WriteString(display.TaskLine(t))
		if t.Phase != phase.None {
			fmt.Fprintf(&sb, " [%s]", t.Phase)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatCompletedPhases(completed []phase.Phase) string {
	if len(completed) == 0 {
		return ""
	}
	return "Completed phases: " + display.FormatPhaseList(completed) + "\n"
}
