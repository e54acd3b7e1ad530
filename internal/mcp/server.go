// Package mcp exposes the workflow dispatcher as a single MCP tool.
//
// The tool takes the wire request of the dispatch package and answers with
// the rendered text plus the structured response. Rejected requests come
// back as tool errors so that the agent can read the explanation and retry.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valksor/go-phaseflow/internal/dispatch"
	"github.com/valksor/go-phaseflow/internal/log"
)

// ToolName is the name the workflow tool is registered under.
const ToolName = "workflow"

const toolDescription = `Phase-based delivery workflow. One call per action:
- requirements: register goal, requirements and scope (policy|frontend|server-core|full); resets phase progress.
- set: replace the task list (each task: what, why, doneWhen, phase, refs, id, done) and merge notes.
- done: mark task "index" done; finishing the last task of the current phase advances and returns the next briefing.
- advance: complete the current phase explicitly; refused while its tasks are pending.
- list: show requirements, phases, tasks, notes and history.
- plan: briefing for the current phase, or for "phase".
- restore: read a pull request description to rebuild the plan.
- clear: forget everything.`

// Server wraps an MCP server with the workflow tool registered.
type Server struct {
	mcp        *mcp.Server
	dispatcher *dispatch.Dispatcher
}

// NewServer creates the MCP server for d.
func NewServer(d *dispatch.Dispatcher, version string) *Server {
	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "phaseflow",
			Version: version,
		}, nil),
		dispatcher: d,
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolName,
		Description: toolDescription,
	}, s.handle)

	return s
}

// MCP returns the underlying server, for custom transports.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Run serves on the stdio transport until ctx is canceled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Info("starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) handle(ctx context.Context, _ *mcp.CallToolRequest, in dispatch.Request) (*mcp.CallToolResult, dispatch.Response, error) {
	resp, err := s.dispatcher.Handle(ctx, in)
	if err != nil {
		log.With("tool", ToolName, "action", in.Action).Debugw("workflow tool rejected request", log.Err(err))
		return nil, dispatch.Response{}, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: resp.Text}},
	}, *resp, nil
}
