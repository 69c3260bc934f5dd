package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Protocol-Lattice/mcp-agent-bridge/pkg/agents"
)

// errRunFailed marks a run that reached an unsuccessful terminal state.
var errRunFailed = errors.New("run did not complete")

// Controller owns the interactive session: it reads user turns, creates the
// conversation thread lazily on the first real input, and renders the
// assistant's reply after each successful run.
type Controller struct {
	svc     agents.Service
	loop    *DispatchLoop
	agentID string
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
}

// ControllerConfig wires a Controller. Input defaults to os.Stdin and Output
// to os.Stdout.
type ControllerConfig struct {
	Service agents.Service
	Loop    *DispatchLoop
	AgentID string
	Input   io.Reader
	Output  io.Writer
	Logger  *slog.Logger
}

// NewController validates and applies the configuration.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Service == nil {
		return nil, errors.New("chat: service is required")
	}
	if cfg.Loop == nil {
		return nil, errors.New("chat: dispatch loop is required")
	}
	if strings.TrimSpace(cfg.AgentID) == "" {
		return nil, errors.New("chat: agent id is required")
	}
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		svc:     cfg.Service,
		loop:    cfg.Loop,
		agentID: cfg.AgentID,
		in:      cfg.Input,
		out:     cfg.Output,
		logger:  cfg.Logger,
	}, nil
}

// Run accepts user turns until a sentinel input ("quit" or "exit", any case)
// or end of input. A failed turn prints a notice and yields control back to
// the prompt; only thread creation and context cancellation end the session
// with an error.
func (c *Controller) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	var threadID string

	for {
		fmt.Fprint(c.out, "You: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "quit", "exit":
			fmt.Fprintln(c.out, "Exiting chat session...")
			return nil
		}

		if threadID == "" {
			id, err := c.svc.CreateThread(ctx)
			if err != nil {
				return fmt.Errorf("create thread: %w", err)
			}
			threadID = id
			c.logger.Debug("created thread", "thread_id", threadID)
		}

		if err := c.turn(ctx, threadID, input); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, errRunFailed) {
				c.logger.Error("turn failed", "error", err)
			}
			fmt.Fprintln(c.out, "Run failed.")
		}
	}
}

func (c *Controller) turn(ctx context.Context, threadID, input string) error {
	if err := c.svc.CreateMessage(ctx, threadID, agents.RoleUser, input); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	run, err := c.svc.CreateRun(ctx, threadID, c.agentID)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	completed, err := c.loop.Await(ctx, threadID, run.ID)
	if err != nil {
		return err
	}
	if !completed {
		return errRunFailed
	}

	messages, err := c.svc.ListMessages(ctx, threadID, 1)
	if err != nil {
		return err
	}
	// Anything but an assistant reply on top yields no output for the turn.
	if len(messages) == 0 || messages[0].Role != agents.RoleAssistant {
		return nil
	}
	fmt.Fprintln(c.out, "Assistant:", strings.Join(messages[0].TextParts, " "))
	return nil
}
