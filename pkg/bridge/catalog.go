package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/agents"
	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/mcp"
)

// Session is what discovery requires from a tool-provider session.
type Session interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	ToolCaller
}

// Discover queries the session for its tools and produces, per tool, one
// agent-protocol function definition and one invoker bound to the tool's
// name. The returned definitions and registry always have identical name
// sets, in the provider's reported order.
//
// Discovery never fails: a nil session or a failed listing yields an empty
// catalog, which is the documented degraded mode for "no tool provider
// available". Individual bad descriptors are skipped, not fatal to the batch.
func Discover(ctx context.Context, session Session, logger *slog.Logger) ([]agents.FunctionDefinition, *Registry) {
	if logger == nil {
		logger = slog.Default()
	}

	registry := newRegistry()
	if session == nil {
		logger.Warn("no active tool provider session, continuing without tools")
		return nil, registry
	}

	tools, err := session.ListTools(ctx)
	if err != nil {
		logger.Error("listing tools failed, continuing without tools", "error", err)
		return nil, registry
	}
	logger.Info("discovered tools", "count", len(tools))

	defs := make([]agents.FunctionDefinition, 0, len(tools))
	for _, tool := range tools {
		name := strings.TrimSpace(tool.Name)
		if name == "" {
			logger.Warn("skipping tool with empty name")
			continue
		}
		if _, exists := registry.Lookup(name); exists {
			logger.Warn("skipping duplicate tool name", "tool", name)
			continue
		}

		description := strings.TrimSpace(tool.Description)
		if description == "" {
			description = fmt.Sprintf("Executes the remote tool '%s'.", name)
		}

		defs = append(defs, agents.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  TranslateSchema(tool.InputSchema, logger),
		})
		registry.add(name, NewInvoker(name, session))
		logger.Debug("prepared tool", "tool", name)
	}
	return defs, registry
}
