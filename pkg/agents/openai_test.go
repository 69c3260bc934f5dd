package agents

import (
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestRunStatusTerminal(t *testing.T) {
	active := []RunStatus{StatusQueued, StatusInProgress, StatusRequiresAction}
	for _, s := range active {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}

	terminal := []RunStatus{StatusCompleted, StatusFailed, StatusCancelled, StatusExpired, RunStatus("something_new")}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}

func TestConvertRunRequiredAction(t *testing.T) {
	run := openai.Run{
		ID:       "run-1",
		ThreadID: "thread-1",
		Status:   openai.RunStatusRequiresAction,
		RequiredAction: &openai.RunRequiredAction{
			Type: openai.RequiredActionTypeSubmitToolOutputs,
			SubmitToolOutputs: &openai.SubmitToolOutputs{
				ToolCalls: []openai.ToolCall{{
					ID:       "call-1",
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: "get_alerts", Arguments: `{"state":"CA"}`},
				}},
			},
		},
	}

	converted := convertRun(run)
	if converted.Status != StatusRequiresAction {
		t.Fatalf("unexpected status: %s", converted.Status)
	}
	if len(converted.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(converted.ToolCalls))
	}
	call := converted.ToolCalls[0]
	if call.ID != "call-1" || call.Name != "get_alerts" || call.Arguments != `{"state":"CA"}` {
		t.Fatalf("unexpected tool call: %#v", call)
	}
}

func TestConvertRunWithoutAction(t *testing.T) {
	converted := convertRun(openai.Run{ID: "run-1", Status: openai.RunStatusCompleted})
	if converted.Status != StatusCompleted {
		t.Fatalf("unexpected status: %s", converted.Status)
	}
	if len(converted.ToolCalls) != 0 {
		t.Fatalf("expected no tool calls, got %#v", converted.ToolCalls)
	}
}
