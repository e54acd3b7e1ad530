package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valksor/go-phaseflow/internal/display"
	"github.com/valksor/go-phaseflow/internal/phase"
)

var phasesScope string

var phasesCmd = &cobra.Command{
	Use:     "phases",
	Short:   "Show the phase catalogue",
	GroupID: "info",
	Long: `Print the phases of a scope in delivery order with their runbook reference
and execution mode, followed by the phases each scope covers.`,
	Example: `  phaseflow phases
  phaseflow phases --scope frontend`,
	RunE: runPhases,
}

func init() {
	phasesCmd.Flags().StringVar(&phasesScope, "scope", "", "Scope to show (policy, frontend, server-core, full)")
	rootCmd.AddCommand(phasesCmd)
}

func runPhases(cmd *cobra.Command, _ []string) error {
	scope, err := phase.ParseScope(phasesScope)
	if err != nil {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), display.UnknownScopeError(phasesScope, scopeNames()))
		return errors.New("unknown scope")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprint(out, display.FormatPhaseTable(scope, phase.None, nil))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, formatScopes(scope))
	return nil
}

// formatScopes lists every scope with its phases; selected is highlighted.
func formatScopes(selected phase.Scope) string {
	rows := make([][]string, 0, len(phase.Scopes))
	for _, s := range phase.Scopes {
		marker := ""
		if s == selected {
			marker = "*"
		}
		ids := make([]string, 0, len(phase.ForScope(s)))
		for _, p := range phase.ForScope(s) {
			ids = append(ids, string(p))
		}
		rows = append(rows, []string{marker, string(s), strings.Join(ids, " > ")})
	}
	return "Scopes\n" + display.Table([]string{"", "Scope", "Phases"}, rows)
}

func scopeNames() []string {
	names := make([]string, len(phase.Scopes))
	for i, s := range phase.Scopes {
		names[i] = string(s)
	}
	return names
}
