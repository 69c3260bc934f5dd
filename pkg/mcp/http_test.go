package mcp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// The streamable HTTP server in mcp-go is stateful: it assigns a session ID
// on initialize and rejects later requests that do not echo it. The full
// handshake/list/call flow against a real instance exercises that path.
func TestHTTPClientAgainstStreamableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := server.NewMCPServer("mock-http", "0.1.0", server.WithToolCapabilities(false))
	echo := gomcp.NewTool("echo",
		gomcp.WithDescription("Echoes the provided input"),
		gomcp.WithString("input", gomcp.Required()),
	)
	srv.AddTool(echo, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		input, err := req.RequireString("input")
		if err != nil {
			return gomcp.NewToolResultError(err.Error()), nil
		}
		return gomcp.NewToolResultText("echo:" + input), nil
	})

	ts := httptest.NewServer(server.NewStreamableHTTPServer(srv))
	defer ts.Close()

	client, err := OpenSession(ctx, Target{URL: ts.URL, HTTPClient: ts.Client()})
	if err != nil {
		t.Fatalf("OpenSession error: %v", err)
	}
	defer client.Close()

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
		t.Fatalf("unexpected result: %q", got)
	}
}

// The transport must replay the Mcp-Session-Id header handed out on the
// initialize reply and cope with replies delivered as an SSE stream.
func TestHTTPTransportEchoesSessionHeader(t *testing.T) {
	const sessionID = "sess-9f2c"

	var requests atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch requests.Add(1) {
		case 1:
			w.Header().Set("Mcp-Session-Id", sessionID)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","result":{"serverInfo":{"name":"mock","version":"1"}}}`)
		default:
			if got := r.Header.Get("Mcp-Session-Id"); got != sessionID {
				http.Error(w, "Invalid session ID", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":\"2\",\"result\":{\"tools\":[{\"name\":\"first\"}]}}\n\n")
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewHTTPClient(ctx, HTTPConfig{URL: ts.URL, Client: ts.Client()})
	if err != nil {
		t.Fatalf("NewHTTPClient error: %v", err)
	}
	defer client.Close()

	tools, err := client.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "first" {
		t.Fatalf("unexpected tools: %#v", tools)
	}
}
