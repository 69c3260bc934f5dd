package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPConfig describes a streamable HTTP MCP endpoint. Every JSON-RPC request
// is POSTed to the endpoint and the response body carries the reply, either
// as plain JSON or as a server-sent event stream.
type HTTPConfig struct {
	URL     string
	Headers map[string]string

	// Client is the HTTP client used for all requests. The bridge owns and
	// passes one explicitly; when nil, http.DefaultClient is used.
	Client *http.Client

	Options Options
}

// NewHTTPClient connects to a streamable HTTP MCP server and performs the
// initialize handshake.
func NewHTTPClient(ctx context.Context, cfg HTTPConfig) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("mcp: server URL is required")
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	transport := &httpTransport{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  httpClient,
		replies: make(chan []byte, 8),
	}
	return NewClient(ctx, transport, cfg.Options)
}

// httpTransport maps the Send/Receive pair onto HTTP request/response: Send
// performs the POST and queues the body's JSON-RPC messages, Receive pops
// them. Stateful servers assign a session ID on the initialize reply which
// must accompany every later request; the transport captures and echoes it.
// Send is never called concurrently (the client serializes requests), so the
// session ID needs no locking.
type httpTransport struct {
	url       string
	headers   map[string]string
	client    *http.Client
	replies   chan []byte
	sessionID string
}

func (t *httpTransport) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mcp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if t.sessionID != "" {
		req.Header.Set("Mcp-Session-Id", t.sessionID)
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mcp: server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.sessionID = sid
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return t.queueEventStream(ctx, resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mcp: read response: %w", err)
	}
	// Notification responses carry no body; nothing to queue.
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return t.queue(ctx, body)
}

// queueEventStream drains an SSE body, queueing each data payload as one
// JSON-RPC message. Non-matching messages (notifications interleaved with
// the reply) are filtered by the client's ID correlation.
func (t *httpTransport) queueEventStream(ctx context.Context, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		payload := strings.TrimSpace(data)
		if payload == "" {
			continue
		}
		if err := t.queue(ctx, []byte(payload)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (t *httpTransport) queue(ctx context.Context, payload []byte) error {
	select {
	case t.replies <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *httpTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case body := <-t.replies:
		return body, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *httpTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
