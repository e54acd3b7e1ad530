package display

import (
	"fmt"
	"strings"
)

// Suggestion is a command the user can run to get past an error.
type Suggestion struct {
	Command     string
	Description string
}

// ErrorWithSuggestions renders message followed by a list of commands.
func ErrorWithSuggestions(message string, suggestions []Suggestion) string {
	var sb strings.Builder
	sb.WriteString(ErrorMsg("%s", message))
	sb.WriteString("\n")
	if len(suggestions) == 0 {
		return sb.String()
	}

	sb.WriteString("\n" + Muted("Try:") + "\n")
	width := 0
	for _, s := range suggestions {
		width = max(width, len(s.Command))
	}
	for _, s := range suggestions {
		pad := strings.Repeat(" ", width-len(s.Command))
		fmt.Fprintf(&sb, "%s%s%s  %s\n", IndentOne, Cyan(s.Command), pad, s.Description)
	}
	return sb.String()
}

// NoRepositoryError explains that commit history and pull request context
// are unavailable outside a git checkout.
func NoRepositoryError(dir string) string {
	return ErrorWithSuggestions(
		"No git repository at "+dir+"; commit history and pull request context are unavailable",
		[]Suggestion{
			{Command: "phaseflow --dir <path> context", Description: "point at a checkout"},
			{Command: "git init", Description: "create a repository here"},
		},
	)
}

// UnknownScopeError lists the valid scopes as phases commands.
func UnknownScopeError(scope string, valid []string) string {
	suggestions := make([]Suggestion, len(valid))
	for i, v := range valid {
		suggestions[i] = Suggestion{Command: "phaseflow phases --scope " + v, Description: "show the " + v + " scope"}
	}
	return ErrorWithSuggestions(fmt.Sprintf("Unknown scope %q", scope), suggestions)
}
