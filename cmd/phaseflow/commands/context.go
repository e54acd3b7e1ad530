package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valksor/go-phaseflow/internal/briefing"
	"github.com/valksor/go-phaseflow/internal/display"
)

var contextCmd = &cobra.Command{
	Use:     "context",
	Short:   "Print the briefing for this checkout",
	GroupID: "info",
	Long: `Gather the context a planning briefing is built from: recent commits on the
current branch, the open pull request and its discussion, and the runbook
catalogue. Sources that are unavailable are left out.`,
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	c, err := newConductor(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.Repo() == nil {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), display.NoRepositoryError(c.WorkDir()))
	}

	agg := c.Aggregator()
	b := agg.Gather(ctx)

	branch := b.Branch
	if branch == "" && c.Repo() != nil {
		branch, _ = c.Repo().CurrentBranch()
	}

	out := cmd.OutOrStdout()
	if branch != "" {
		_, _ = fmt.Fprintf(out, "%s %s\n\n", display.Bold("Branch:"), branch)
	}
	if pr := display.FormatPullRequest(b.PullRequest); pr != "" {
		_, _ = fmt.Fprintln(out, pr)
	}

	text := briefing.Format(b, agg.Limits())
	if text == "" {
		_, _ = fmt.Fprintln(out, display.InfoMsg("No context available."))
		return nil
	}
	_, _ = fmt.Fprint(out, text)
	return nil
}
