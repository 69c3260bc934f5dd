package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/mcp"
)

// noContentSentinel is returned when a tool call succeeds but yields no
// content at all.
const noContentSentinel = "Tool executed, no text content returned."

// ToolCaller is the subset of the MCP session an Invoker needs.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) (mcp.CallResult, error)
}

// Invoker executes one named remote tool and renders the outcome as text.
// It never returns an error: the dispatch loop forwards invoker output to the
// agent as opaque text, so failures are folded into the returned string.
type Invoker struct {
	name    string
	session ToolCaller
}

// NewInvoker binds a tool name to the session that serves it.
func NewInvoker(name string, session ToolCaller) *Invoker {
	return &Invoker{name: name, session: session}
}

// Name returns the bound tool name.
func (inv *Invoker) Name() string { return inv.name }

// Invoke calls the remote tool with the given named arguments. On success the
// result's text items are joined with newlines; non-text content falls back
// to its JSON rendering and an empty result yields a fixed sentinel. On any
// failure the returned string names the tool and the reason.
func (inv *Invoker) Invoke(ctx context.Context, args map[string]any) string {
	result, err := inv.session.CallTool(ctx, inv.name, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool '%s': %s", inv.name, err)
	}
	return renderResult(result)
}

func renderResult(result mcp.CallResult) string {
	if len(result.Content) == 0 {
		return noContentSentinel
	}
	if result.HasText() {
		return result.Text()
	}
	raw, err := json.Marshal(result.Content)
	if err != nil {
		return noContentSentinel
	}
	return string(raw)
}
