package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/valksor/go-phaseflow/internal/display"
	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/runbook"
)

var runbooksCmd = &cobra.Command{
	Use:     "runbooks",
	Short:   "List the runbook catalogue",
	GroupID: "info",
	Long: `List the runbooks found in the catalogue directory (runbooks.dir, default
docs/runbooks) and report which phases have no runbook.`,
	RunE: runRunbooks,
}

func init() {
	rootCmd.AddCommand(runbooksCmd)
}

func runRunbooks(cmd *cobra.Command, _ []string) error {
	c, err := newConductor(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	cat := c.Runbooks()
	rbs, err := cat.Scan()
	if err != nil {
		return fmt.Errorf("scan runbooks: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(rbs) == 0 {
		_, _ = fmt.Fprintln(out, display.InfoMsg("No runbooks in %s", filepath.ToSlash(cat.Dir())))
	} else {
		rows := make([][]string, 0, len(rbs))
		for _, rb := range rbs {
			rows = append(rows, []string{rb.ID, rb.Title, string(rb.Phase), string(rb.Mode)})
		}
		_, _ = fmt.Fprintf(out, "Runbooks in %s\n", filepath.ToSlash(cat.Dir()))
		_, _ = fmt.Fprint(out, display.Table([]string{"ID", "Title", "Phase", "Mode"}, rows))
	}

	for _, p := range phase.Order {
		if _, ok := runbook.ForPhase(rbs, p); ok {
			continue
		}
		ref := phase.Lookup(p).Runbook
		if ref == "" {
			continue
		}
		_, _ = fmt.Fprintln(out, display.WarningMsg("%s has no runbook (expected %s)", display.PhaseLabel(p), ref))
	}
	return nil
}
