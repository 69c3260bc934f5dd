// Command bridge connects an MCP tool server to an agent-hosting service:
// it discovers the server's tools, registers them as agent functions, then
// runs an interactive chat session answering the agent's tool calls.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/agents"
	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/bridge"
	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/chat"
	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/mcp"
)

const defaultInstructions = "Use the provided tools when appropriate."

type options struct {
	model        string
	agentName    string
	instructions string
	mcpURL       string
	mcpCommand   string
	pollInterval time.Duration
}

func main() {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	opts := options{}
	root := &cobra.Command{
		Use:           "bridge",
		Short:         "Bridge MCP tool servers into an agent-hosting service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), logger, opts)
		},
	}

	root.Flags().StringVar(&opts.model, "model", envOr("BRIDGE_MODEL", "gpt-4o"), "model the agent runs on")
	root.Flags().StringVar(&opts.agentName, "name", "mcp-bridge-agent", "name of the agent created for this session")
	root.Flags().StringVar(&opts.instructions, "instructions", defaultInstructions, "agent instructions")
	root.Flags().StringVar(&opts.mcpURL, "mcp-url", os.Getenv("MCP_SERVER_URL"), "streamable HTTP MCP server URL")
	root.Flags().StringVar(&opts.mcpCommand, "mcp-command", os.Getenv("MCP_SERVER_COMMAND"), "command spawning a stdio MCP server")
	root.Flags().DurationVar(&opts.pollInterval, "poll-interval", time.Second, "run status poll interval")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("bridge session failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return errors.New("OPENAI_API_KEY is not set, see .env.sample")
	}
	svc := agents.NewOpenAIService(openai.NewClient(apiKey))

	session, err := openSession(ctx, logger, opts)
	if err != nil {
		return fmt.Errorf("open MCP session: %w", err)
	}
	if session != nil {
		defer func() {
			logger.Info("closing MCP session")
			// Shutdown is best effort; servers without the method answer
			// with an error we only log.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := session.Shutdown(shutdownCtx); err != nil {
				logger.Debug("server shutdown request declined", "error", err)
			}
			_ = session.Close()
		}()
	}

	// A nil session degrades to an empty catalog; the agent simply has no
	// tools to call.
	var catalogSession bridge.Session
	if session != nil {
		catalogSession = session
	}
	defs, registry := bridge.Discover(ctx, catalogSession, logger)
	if len(defs) == 0 {
		logger.Warn("no tools discovered")
	}

	agentID, err := svc.CreateAgent(ctx, agents.AgentConfig{
		Model:        opts.model,
		Name:         opts.agentName,
		Instructions: opts.instructions,
		Tools:        defs,
	})
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	logger.Info("agent ready", "agent_id", agentID, "tools", registry.Len())
	defer func() {
		// Best-effort cleanup on a fresh context so cancellation of the
		// session does not leak the agent.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.DeleteAgent(cleanupCtx, agentID); err != nil {
			logger.Warn("failed to delete agent", "agent_id", agentID, "error", err)
		} else {
			logger.Info("deleted agent", "agent_id", agentID)
		}
	}()

	loop := chat.NewDispatchLoop(svc, registry, opts.pollInterval, logger)
	controller, err := chat.NewController(chat.ControllerConfig{
		Service: svc,
		Loop:    loop,
		AgentID: agentID,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	return controller.Run(ctx)
}

// openSession connects to the configured MCP server. No configured target is
// not an error: the bridge runs tool-less. A configured target that fails to
// open is fatal to the session.
func openSession(ctx context.Context, logger *slog.Logger, opts options) (*mcp.Client, error) {
	target := mcp.Target{
		URL:        opts.mcpURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Stderr:     os.Stderr,
	}
	if target.URL == "" && opts.mcpCommand != "" {
		parts := strings.Fields(opts.mcpCommand)
		target.Command = parts[0]
		target.Args = parts[1:]
	}

	session, err := mcp.OpenSession(ctx, target)
	if errors.Is(err, mcp.ErrNoTarget) {
		logger.Warn("no MCP server configured, continuing without tools")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info("MCP session initialized", "server", session.Server().Name)
	return session, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
