// Package agents defines the agent-hosting service surface the bridge drives:
// agent lifecycle, threads, messages, runs and tool-output submission. The
// bridge core only depends on the Service interface; the OpenAI assistants
// backend in this package is one implementation.
package agents

import "context"

// FunctionDefinition is the agent-protocol projection of a discovered tool.
// Parameters holds an object-shaped JSON schema and is marshaled as-is.
type FunctionDefinition struct {
	Name        string
	Description string
	Parameters  any
}

// AgentConfig describes the agent created for one bridge session.
type AgentConfig struct {
	Model        string
	Name         string
	Instructions string
	Tools        []FunctionDefinition
}

// RunStatus is the lifecycle state of a run as reported by the service.
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
	StatusCancelled      RunStatus = "cancelled"
	StatusExpired        RunStatus = "expired"
)

// Terminal reports whether the run has stopped making progress. Any status
// outside the active set counts as terminal so that statuses this package
// does not know about end the poll loop instead of spinning it forever.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusRequiresAction:
		return false
	default:
		return true
	}
}

// ToolCall is one tool invocation requested by the agent. Arguments is the
// raw JSON-encoded argument object.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Run is a snapshot of a run resource. ToolCalls is populated only while the
// run requires action.
type Run struct {
	ID        string
	ThreadID  string
	Status    RunStatus
	ToolCalls []ToolCall
}

// ToolOutput is the result for one requested tool call, correlated by CallID.
type ToolOutput struct {
	CallID string
	Output string
}

// Message is a thread message reduced to its text parts; non-text content is
// dropped by the backend.
type Message struct {
	Role      string
	TextParts []string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Service is the remote agent-hosting API consumed by the bridge.
type Service interface {
	CreateAgent(ctx context.Context, cfg AgentConfig) (string, error)
	DeleteAgent(ctx context.Context, agentID string) error

	CreateThread(ctx context.Context) (string, error)
	CreateMessage(ctx context.Context, threadID, role, content string) error

	CreateRun(ctx context.Context, threadID, agentID string) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error

	// ListMessages returns up to limit messages, newest first.
	ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error)
}
