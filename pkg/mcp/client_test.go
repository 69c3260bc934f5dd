package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestClientListAndCall(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, server := newInMemoryPair()

	server.handle("initialize", func(id string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{
			"protocolVersion": defaultProtocolVersion,
			"serverInfo":      map[string]string{"name": "mock-server", "version": "1.0.0"},
		}, nil
	})
	server.handle("tools/list", func(id string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{
			"tools": []Tool{{Name: "echo", Description: "Echoes the provided input"}},
		}, nil
	})
	server.handle("tools/call", func(id string, params json.RawMessage) (any, *rpcError) {
		var payload struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := json.Unmarshal(params, &payload); err != nil {
			return nil, &rpcError{Code: -32602, Message: err.Error()}
		}
		if payload.Name != "echo" {
			return nil, &rpcError{Code: -32001, Message: "unknown tool"}
		}
		input, _ := payload.Arguments["input"].(string)
		return CallResult{Content: []Content{{Type: "text", Text: fmt.Sprintf("echo:%s", input)}}}, nil
	})

	go server.serve(ctx)

	client, err := NewClient(ctx, transport, Options{})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	if got := client.Server().Name; got != "mock-server" {
		t.Fatalf("unexpected server name: %s", got)
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("unexpected tools: %#v", tools)
	}

	result, err := client.CallTool(ctx, "echo", map[string]any{"input": "hello"})
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	if got := result.Text(); got != "echo:hello" {
		t.Fatalf("unexpected result: %s", got)
	}
}

func TestClientListToolsPagination(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, server := newInMemoryPair()

	server.handle("initialize", func(id string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"serverInfo": map[string]string{"name": "mock", "version": "1"}}, nil
	})
	server.handle("tools/list", func(id string, params json.RawMessage) (any, *rpcError) {
		var payload struct {
			Cursor string `json:"cursor"`
		}
		_ = json.Unmarshal(params, &payload)
		if payload.Cursor == "" {
			return map[string]any{
				"tools":      []Tool{{Name: "first"}},
				"nextCursor": "page2",
			}, nil
		}
		return map[string]any{"tools": []Tool{{Name: "second"}}}, nil
	})

	go server.serve(ctx)

	client, err := NewClient(ctx, transport, Options{})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	tools, err := client.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) != 2 || tools[0].Name != "first" || tools[1].Name != "second" {
		t.Fatalf("unexpected tools: %#v", tools)
	}
}

func TestClientCallToolServerError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, server := newInMemoryPair()

	server.handle("initialize", func(id string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"serverInfo": map[string]string{"name": "mock", "version": "1"}}, nil
	})
	server.handle("tools/call", func(id string, params json.RawMessage) (any, *rpcError) {
		return CallResult{IsError: true, Content: []Content{{Type: "text", Text: "failure"}}}, nil
	})

	go server.serve(ctx)

	client, err := NewClient(ctx, transport, Options{})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	_, err = client.CallTool(ctx, "echo", map[string]any{"input": "hi"})
	if err == nil || !strings.Contains(err.Error(), "failure") {
		t.Fatalf("expected failure error, got %v", err)
	}
}

func TestClientHandshakeFailureClosesTransport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, server := newInMemoryPair()

	server.handle("initialize", func(id string, params json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "handshake rejected"}
	})

	go server.serve(ctx)

	if _, err := NewClient(ctx, transport, Options{}); err == nil {
		t.Fatal("expected handshake error")
	}
	if !transport.closed() {
		t.Fatal("transport should be closed after a failed handshake")
	}
}

func TestClientClosedIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, server := newInMemoryPair()
	server.handle("initialize", func(id string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"serverInfo": map[string]string{"name": "mock", "version": "1"}}, nil
	})
	go server.serve(ctx)

	client, err := NewClient(ctx, transport, Options{})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if _, err := client.ListTools(ctx); err == nil {
		t.Fatal("expected error after Close")
	}
}

func TestClientShutdown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, server := newInMemoryPair()
	server.handle("initialize", func(id string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"serverInfo": map[string]string{"name": "mock", "version": "1"}}, nil
	})
	received := make(chan struct{}, 1)
	server.handle("shutdown", func(id string, params json.RawMessage) (any, *rpcError) {
		received <- struct{}{}
		return map[string]any{}, nil
	})
	go server.serve(ctx)

	client, err := NewClient(ctx, transport, Options{})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if err := client.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
	select {
	case <-received:
	default:
		t.Fatal("shutdown request never reached the server")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := client.Shutdown(ctx); err == nil {
		t.Fatal("expected error from Shutdown after Close")
	}
}

func TestClientCallToolBareStringContent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, server := newInMemoryPair()
	server.handle("initialize", func(id string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"serverInfo": map[string]string{"name": "mock", "version": "1"}}, nil
	})
	server.handle("tools/call", func(id string, params json.RawMessage) (any, *rpcError) {
		return map[string]any{"content": "plain reply"}, nil
	})
	go server.serve(ctx)

	client, err := NewClient(ctx, transport, Options{})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	result, err := client.CallTool(ctx, "echo", nil)
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	if got := result.Text(); got != "plain reply" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestCallResultDecodeForms(t *testing.T) {
	var result CallResult
	if err := json.Unmarshal([]byte(`{"content":"It is sunny."}`), &result); err != nil {
		t.Fatalf("decode bare string: %v", err)
	}
	if !result.HasText() || result.Text() != "It is sunny." {
		t.Fatalf("unexpected bare-string result: %#v", result)
	}

	if err := json.Unmarshal([]byte(`{"content":[{"type":"text","text":"A"}],"isError":true}`), &result); err != nil {
		t.Fatalf("decode array: %v", err)
	}
	if !result.IsError || result.Text() != "A" {
		t.Fatalf("unexpected array result: %#v", result)
	}

	if err := json.Unmarshal([]byte(`{"content":null}`), &result); err != nil {
		t.Fatalf("decode null: %v", err)
	}
	if len(result.Content) != 0 || result.IsError {
		t.Fatalf("unexpected null result: %#v", result)
	}
}

func TestCallResultText(t *testing.T) {
	result := CallResult{Content: []Content{
		{Type: "text", Text: "A"},
		{Type: "json", Data: json.RawMessage(`{"x":1}`)},
		{Type: "text", Text: "B"},
	}}
	if got := result.Text(); got != "A\nB" {
		t.Fatalf("unexpected text: %q", got)
	}
	if (CallResult{}).HasText() {
		t.Fatal("empty result should have no text")
	}
}

// ----------------------------------------------------------------------------
// Helpers

type testTransport struct {
	*lineTransport
	mu      sync.Mutex
	closedF bool
}

func (t *testTransport) Close() error {
	t.mu.Lock()
	t.closedF = true
	t.mu.Unlock()
	return t.lineTransport.Close()
}

func (t *testTransport) closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closedF
}

type inMemoryServer struct {
	reader   *bufio.Reader
	writer   io.Writer
	handlers map[string]func(id string, params json.RawMessage) (any, *rpcError)
	mu       sync.RWMutex
}

func newInMemoryPair() (*testTransport, *inMemoryServer) {
	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()

	transport := &testTransport{lineTransport: newLineTransport(clientWrite, clientRead)}
	server := &inMemoryServer{
		reader:   bufio.NewReader(serverRead),
		writer:   serverWrite,
		handlers: make(map[string]func(id string, params json.RawMessage) (any, *rpcError)),
	}
	return transport, server
}

func (s *inMemoryServer) handle(method string, fn func(id string, params json.RawMessage) (any, *rpcError)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

func (s *inMemoryServer) serve(ctx context.Context) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			return
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.reply(rpcEnvelope{JSONRPC: "2.0", ID: &req.ID, Error: &rpcError{Code: -32700, Message: err.Error()}})
			continue
		}

		s.mu.RLock()
		handler := s.handlers[req.Method]
		s.mu.RUnlock()

		if handler == nil {
			s.reply(rpcEnvelope{JSONRPC: "2.0", ID: &req.ID, Error: &rpcError{Code: -32601, Message: "method not found"}})
			continue
		}

		result, rpcErr := handler(req.ID, mustRaw(req.Params))
		if rpcErr != nil {
			s.reply(rpcEnvelope{JSONRPC: "2.0", ID: &req.ID, Error: rpcErr})
			continue
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			s.reply(rpcEnvelope{JSONRPC: "2.0", ID: &req.ID, Error: &rpcError{Code: -32603, Message: err.Error()}})
			continue
		}
		s.reply(rpcEnvelope{JSONRPC: "2.0", ID: &req.ID, Result: encoded})
	}
}

func (s *inMemoryServer) reply(env rpcEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	payload = append(payload, '\n')
	_, _ = s.writer.Write(payload)
}

func mustRaw(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
