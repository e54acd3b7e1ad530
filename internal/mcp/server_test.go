package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/valksor/go-phaseflow/internal/dispatch"
	"github.com/valksor/go-phaseflow/internal/phase"
	"github.com/valksor/go-phaseflow/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// connect runs the server over in-memory transports and returns a client
// session. Both ends are closed when the test finishes.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: ToolName, Arguments: args})
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestListTools(t *testing.T) {
	cs := connect(t, NewServer(dispatch.New(workflow.NewStore()), "test"))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, ToolName, res.Tools[0].Name)
	assert.Contains(t, res.Tools[0].Description, "requirements")
	assert.NotNil(t, res.Tools[0].InputSchema)
}

func TestWorkflowRoundTrip(t *testing.T) {
	store := workflow.NewStore()
	cs := connect(t, NewServer(dispatch.New(store), "test"))

	res := call(t, cs, map[string]any{
		"action": "requirements",
		"goal":   "Order history",
		"scope":  "policy",
		"requirements": []map[string]any{{
			"actor": "a shopper", "want": "to see past orders", "because": "reordering", "acceptance": "list shows orders",
		}},
	})
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), "Plan registered")

	res = call(t, cs, map[string]any{
		"action": "set",
		"tasks": []map[string]any{
			{"what": "Write OpenAPI spec", "why": "contract first", "doneWhen": "merged", "phase": "contract"},
		},
	})
	require.False(t, res.IsError, text(t, res))

	res = call(t, cs, map[string]any{"action": "done", "index": 0})
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), "Planning phase: Domain Policy (policy)")
	assert.Equal(t, phase.Policy, store.CurrentPhase())
}

func TestRejectionIsToolError(t *testing.T) {
	store := workflow.NewStore()
	cs := connect(t, NewServer(dispatch.New(store), "test"))

	res := call(t, cs, map[string]any{
		"action": "set",
		"tasks":  []map[string]any{{"what": "x", "why": "y", "doneWhen": "z"}},
	})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "no requirements registered")
	assert.False(t, store.HasTasks())

	res = call(t, cs, map[string]any{"action": "deploy"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "unknown action")
}
