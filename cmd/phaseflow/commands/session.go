package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valksor/go-phaseflow/internal/dispatch"
	"github.com/valksor/go-phaseflow/internal/display"
)

// maxSessionLine bounds one JSON request; task lists with long notes can
// exceed bufio's 64KB default.
const maxSessionLine = 1 << 20

var sessionJSON bool

var sessionCmd = &cobra.Command{
	Use:     "session",
	Short:   "Drive the workflow with JSON lines on stdin",
	GroupID: "workflow",
	Long: `Read one JSON request per line from stdin and dispatch it against a single
workflow record that lives as long as the process.

Each request has the same shape as the MCP tool input. Responses are written
to stdout as text, or as one JSON object per line with --json. A rejected
request is reported and the session continues.`,
	Example: `  printf '%s\n' '{"action":"requirements","goal":"g","requirements":[{"want":"x"}]}' '{"action":"list"}' | phaseflow session
  phaseflow session --json < actions.jsonl`,
	RunE: runSession,
}

func init() {
	sessionCmd.Flags().BoolVar(&sessionJSON, "json", false, "Write responses as JSON lines")
	rootCmd.AddCommand(sessionCmd)
}

// sessionResult is one line of --json output.
type sessionResult struct {
	Response *dispatch.Response `json:"response,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func runSession(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	c, err := newConductor(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	return runSessionLoop(cmd, c.Dispatcher())
}

func runSessionLoop(cmd *cobra.Command, d *dispatch.Dispatcher) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), maxSessionLine)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var req dispatch.Request
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			writeSessionError(out, errOut, fmt.Errorf("line %d: invalid request: %w", line, err))
			continue
		}

		resp, err := d.Handle(ctx, req)
		if err != nil {
			writeSessionError(out, errOut, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		writeSessionResponse(out, resp)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

func writeSessionResponse(out io.Writer, resp *dispatch.Response) {
	if sessionJSON {
		_ = json.NewEncoder(out).Encode(sessionResult{Response: resp})
		return
	}
	text := strings.TrimRight(resp.Text, "\n")
	if resp.Blocked {
		text = display.Warning(text)
	}
	_, _ = fmt.Fprintf(out, "%s\n\n", text)
}

func writeSessionError(out, errOut io.Writer, err error) {
	if sessionJSON {
		_ = json.NewEncoder(out).Encode(sessionResult{Error: err.Error()})
		return
	}
	_, _ = fmt.Fprintln(errOut, display.ErrorMsg("%v", err))
}
