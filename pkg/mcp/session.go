package mcp

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// Target selects how to reach a tool server. URL takes precedence; when it is
// empty, Command is spawned as a stdio server.
type Target struct {
	// URL of a streamable HTTP MCP endpoint.
	URL string
	// Command plus Args spawn a stdio MCP server.
	Command string
	Args    []string
	Env     []string

	// HTTPClient is used for HTTP targets. Stderr receives the child's
	// standard error for stdio targets.
	HTTPClient *http.Client
	Stderr     io.Writer

	Options Options
}

// ErrNoTarget indicates that neither a URL nor a command was configured.
var ErrNoTarget = errors.New("mcp: no server URL or command configured")

// OpenSession establishes a session against the configured target. The
// returned client is live and initialized, or nil with an error; any
// partially opened transport or spawned process is torn down before the error
// is returned. Callers that can run without a tool provider may treat a nil
// session as "no tools available" rather than aborting.
func OpenSession(ctx context.Context, target Target) (*Client, error) {
	switch {
	case target.URL != "":
		return NewHTTPClient(ctx, HTTPConfig{
			URL:     target.URL,
			Client:  target.HTTPClient,
			Options: target.Options,
		})
	case target.Command != "":
		return NewStdioClient(ctx, StdioConfig{
			Command: target.Command,
			Args:    target.Args,
			Env:     target.Env,
			Stderr:  target.Stderr,
			Options: target.Options,
		})
	default:
		return nil, ErrNoTarget
	}
}
