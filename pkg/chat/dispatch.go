// Package chat drives agent runs to completion and hosts the interactive
// session loop. One run is active at a time; the dispatch loop polls it,
// answers tool-call requests from the invoker registry and submits the
// results back until the run reaches a terminal state.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/agents"
	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/bridge"
)

const defaultPollInterval = time.Second

// DispatchLoop polls one run at a fixed interval and dispatches requested
// tool calls against the registry.
type DispatchLoop struct {
	svc      agents.Service
	registry *bridge.Registry
	interval time.Duration
	logger   *slog.Logger
}

// NewDispatchLoop builds a loop over the given service and registry. A
// non-positive interval falls back to one second.
func NewDispatchLoop(svc agents.Service, registry *bridge.Registry, interval time.Duration, logger *slog.Logger) *DispatchLoop {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchLoop{svc: svc, registry: registry, interval: interval, logger: logger}
}

// Await drives the run to a terminal state and reports whether it completed
// successfully. Unsuccessful terminal states (failed, cancelled, expired) are
// not distinguished to the caller. Tool-call handling absorbs per-call
// problems — malformed arguments become the empty argument map and unknown
// tool names become a sentinel output — but a failure to submit collected
// outputs propagates, since swallowing it would desynchronize the run state.
// A run already terminal on the first fetch triggers no submission.
func (d *DispatchLoop) Await(ctx context.Context, threadID, runID string) (bool, error) {
	run, err := d.svc.GetRun(ctx, threadID, runID)
	if err != nil {
		return false, fmt.Errorf("get run: %w", err)
	}

	for !run.Status.Terminal() {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(d.interval):
		}

		run, err = d.svc.GetRun(ctx, threadID, runID)
		if err != nil {
			return false, fmt.Errorf("get run: %w", err)
		}

		if run.Status == agents.StatusRequiresAction {
			outputs := d.execute(ctx, run.ToolCalls)
			// An empty batch is never submitted; the next poll picks up
			// whatever the run does instead.
			if len(outputs) > 0 {
				if err := d.svc.SubmitToolOutputs(ctx, threadID, runID, outputs); err != nil {
					return false, fmt.Errorf("submit tool outputs: %w", err)
				}
			}
		}
	}
	return run.Status == agents.StatusCompleted, nil
}

// execute runs every call in the batch concurrently and collects one output
// per call. Correlation is positional here and by call ID on the wire.
func (d *DispatchLoop) execute(ctx context.Context, calls []agents.ToolCall) []agents.ToolOutput {
	if len(calls) == 0 {
		return nil
	}

	outputs := make([]agents.ToolOutput, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call agents.ToolCall) {
			defer wg.Done()
			outputs[i] = agents.ToolOutput{CallID: call.ID, Output: d.dispatch(ctx, call)}
		}(i, call)
	}
	wg.Wait()
	return outputs
}

func (d *DispatchLoop) dispatch(ctx context.Context, call agents.ToolCall) string {
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			d.logger.Warn("malformed tool arguments, invoking with none", "tool", call.Name, "error", err)
			args = map[string]any{}
		}
	}

	inv, ok := d.registry.Lookup(call.Name)
	if !ok {
		d.logger.Warn("agent requested unknown tool", "tool", call.Name)
		return fmt.Sprintf("Unknown tool: %s", call.Name)
	}

	d.logger.Debug("dispatching tool call", "tool", call.Name, "call_id", call.ID)
	return inv.Invoke(ctx, args)
}
