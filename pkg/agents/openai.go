package agents

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIService implements Service on top of the OpenAI assistants API, which
// exposes the thread/run/requires_action model the bridge polls.
type OpenAIService struct {
	client *openai.Client
}

var _ Service = (*OpenAIService)(nil)

// NewOpenAIService wraps an explicitly constructed client. The caller owns
// the client and its HTTP transport.
func NewOpenAIService(client *openai.Client) *OpenAIService {
	return &OpenAIService{client: client}
}

func (s *OpenAIService) CreateAgent(ctx context.Context, cfg AgentConfig) (string, error) {
	tools := make([]openai.AssistantTool, 0, len(cfg.Tools))
	for _, def := range cfg.Tools {
		tools = append(tools, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	name := cfg.Name
	instructions := cfg.Instructions
	assistant, err := s.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        cfg.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        tools,
	})
	if err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	return assistant.ID, nil
}

func (s *OpenAIService) DeleteAgent(ctx context.Context, agentID string) error {
	if _, err := s.client.DeleteAssistant(ctx, agentID); err != nil {
		return fmt.Errorf("delete assistant: %w", err)
	}
	return nil
}

func (s *OpenAIService) CreateThread(ctx context.Context) (string, error) {
	thread, err := s.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (s *OpenAIService) CreateMessage(ctx context.Context, threadID, role, content string) error {
	_, err := s.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *OpenAIService) CreateRun(ctx context.Context, threadID, agentID string) (Run, error) {
	run, err := s.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: agentID})
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return convertRun(run), nil
}

func (s *OpenAIService) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := s.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("retrieve run: %w", err)
	}
	return convertRun(run), nil
}

func (s *OpenAIService) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error {
	converted := make([]openai.ToolOutput, 0, len(outputs))
	for _, out := range outputs {
		converted = append(converted, openai.ToolOutput{
			ToolCallID: out.CallID,
			Output:     out.Output,
		})
	}
	_, err := s.client.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: converted,
	})
	if err != nil {
		return fmt.Errorf("submit tool outputs: %w", err)
	}
	return nil
}

func (s *OpenAIService) ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error) {
	order := "desc"
	list, err := s.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, msg := range list.Messages {
		converted := Message{Role: msg.Role}
		for _, part := range msg.Content {
			if part.Type == "text" && part.Text != nil {
				converted.TextParts = append(converted.TextParts, part.Text.Value)
			}
		}
		messages = append(messages, converted)
	}
	return messages, nil
}

func convertRun(run openai.Run) Run {
	converted := Run{
		ID:       run.ID,
		ThreadID: run.ThreadID,
		Status:   RunStatus(run.Status),
	}
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		for _, call := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
	}
	return converted
}
