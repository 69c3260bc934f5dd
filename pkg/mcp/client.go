// Package mcp implements a minimal Model Context Protocol client covering the
// tooling surface the bridge needs: session initialization, tool listing and
// tool invocation. Transports for stdio-spawned servers and streamable HTTP
// endpoints are provided; anything else can plug in through the Transport
// interface.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// defaultProtocolVersion is sent during the initialize handshake. Servers may
// negotiate a different version; the client does not enforce the reply.
const defaultProtocolVersion = "2024-11-05"

// ClientInfo identifies the bridge to the tool server during initialization.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo is the counterpart metadata reported by the server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Options tune the initialize handshake.
type Options struct {
	ClientInfo      ClientInfo
	Capabilities    map[string]any
	ProtocolVersion string
}

// Tool describes one remotely callable operation. InputSchema is kept opaque;
// translating it into an agent-protocol schema is the bridge's job.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Content is a single content item inside a tool result.
type Content struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
}

// CallResult is the structured output of one tool invocation.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// UnmarshalJSON accepts both the structured content array and a bare string,
// which some servers emit for single-text results. The string form is
// normalized into one text content item.
func (r *CallResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content json.RawMessage `json:"content"`
		IsError bool            `json:"isError"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.IsError = raw.IsError
	r.Content = nil

	trimmed := bytes.TrimSpace(raw.Content)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		r.Content = []Content{{Type: "text", Text: text}}
		return nil
	}
	return json.Unmarshal(trimmed, &r.Content)
}

// Text joins all text content items with newlines, preserving server order.
func (r CallResult) Text() string {
	var parts []string
	for _, item := range r.Content {
		if item.Type == "text" {
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// HasText reports whether at least one content item is a text item.
func (r CallResult) HasText() bool {
	for _, item := range r.Content {
		if item.Type == "text" {
			return true
		}
	}
	return false
}

// Client drives JSON-RPC 2.0 requests over a Transport. One request is in
// flight at a time; concurrent callers queue on an internal lock.
type Client struct {
	transport Transport
	info      ClientInfo
	caps      map[string]any
	proto     string

	nextID atomic.Uint64
	mu     sync.Mutex
	closed atomic.Bool

	serverInfo ServerInfo
}

// NewClient performs the initialize handshake over the supplied transport.
// The transport is closed if the handshake fails, so callers never hold a
// half-open session.
func NewClient(ctx context.Context, transport Transport, opts Options) (*Client, error) {
	if transport == nil {
		return nil, errors.New("mcp: transport is nil")
	}

	info := opts.ClientInfo
	if strings.TrimSpace(info.Name) == "" {
		info.Name = "mcp-agent-bridge"
	}
	if strings.TrimSpace(info.Version) == "" {
		info.Version = "dev"
	}
	caps := opts.Capabilities
	if caps == nil {
		caps = map[string]any{"tools": map[string]bool{"list": true, "call": true}}
	}
	proto := opts.ProtocolVersion
	if strings.TrimSpace(proto) == "" {
		proto = defaultProtocolVersion
	}

	c := &Client{transport: transport, info: info, caps: caps, proto: proto}
	if err := c.initialize(ctx); err != nil {
		transport.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the transport. Safe to call more than once.
func (c *Client) Close() error {
	if c == nil || c.closed.Swap(true) {
		return nil
	}
	return c.transport.Close()
}

// Shutdown sends a shutdown request to the server. Best effort: servers that
// do not implement the method answer with an error, which is returned to the
// caller so it can be logged.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.call(ctx, "shutdown", map[string]any{}, &struct{}{})
}

// Server reports the metadata captured during the handshake.
func (c *Client) Server() ServerInfo {
	if c == nil {
		return ServerInfo{}
	}
	return c.serverInfo
}

// ListTools fetches the server's complete tool list, following pagination
// cursors when the server chooses to paginate.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	var (
		cursor string
		tools  []Tool
	)
	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var resp struct {
			Tools      []Tool `json:"tools"`
			NextCursor string `json:"nextCursor,omitempty"`
		}
		if err := c.call(ctx, "tools/list", params, &resp); err != nil {
			return nil, err
		}

		tools = append(tools, resp.Tools...)
		if strings.TrimSpace(resp.NextCursor) == "" {
			return tools, nil
		}
		cursor = resp.NextCursor
	}
}

// CallTool invokes a named tool with structured arguments. A result carrying
// the server-side isError flag is surfaced as a Go error that includes the
// result's textual payload.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (CallResult, error) {
	if err := c.ensureOpen(); err != nil {
		return CallResult{}, err
	}
	if strings.TrimSpace(name) == "" {
		return CallResult{}, errors.New("mcp: tool name is required")
	}

	params := map[string]any{"name": name}
	if len(arguments) > 0 {
		params["arguments"] = arguments
	}

	var result CallResult
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return CallResult{}, err
	}
	if result.IsError {
		msg := strings.TrimSpace(result.Text())
		if msg == "" {
			msg = "tool reported an error"
		}
		return result, fmt.Errorf("mcp: tool %s failed: %s", name, msg)
	}
	return result, nil
}

func (c *Client) ensureOpen() error {
	if c == nil {
		return errors.New("mcp: client is nil")
	}
	if c.closed.Load() {
		return errors.New("mcp: client has been closed")
	}
	return nil
}

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": c.proto,
		"clientInfo":      c.info,
		"capabilities":    c.caps,
	}

	var resp struct {
		ProtocolVersion string     `json:"protocolVersion"`
		ServerInfo      ServerInfo `json:"serverInfo"`
	}
	if err := c.call(ctx, "initialize", params, &resp); err != nil {
		return err
	}
	c.serverInfo = resp.ServerInfo
	return nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *string         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	id := strconv.FormatUint(c.nextID.Add(1), 10)
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: marshal request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return errors.New("mcp: client has been closed")
	}
	if err := c.transport.Send(ctx, payload); err != nil {
		return err
	}

	for {
		msg, err := c.transport.Receive(ctx)
		if err != nil {
			return err
		}

		var env rpcEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			return fmt.Errorf("mcp: decode response: %w", err)
		}
		if env.Method != "" {
			// Server notification. Skip it and keep waiting for our reply.
			continue
		}
		if env.ID == nil || *env.ID != id {
			continue
		}
		if env.Error != nil {
			return errors.New(env.Error.Message)
		}
		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return fmt.Errorf("mcp: decode result: %w", err)
			}
		}
		return nil
	}
}
