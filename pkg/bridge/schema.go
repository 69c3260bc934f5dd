// Package bridge adapts tools discovered over MCP into agent-protocol
// function definitions and uniform invokers. Discovery runs once per session;
// the resulting registry is read-only for the session's lifetime.
package bridge

import (
	"encoding/json"
	"log/slog"
)

// PropertySchema is one parameter in a translated function schema.
type PropertySchema struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// FunctionParameters is the object-shaped parameter schema the agent-hosting
// protocol expects for a function tool.
type FunctionParameters struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

func emptyParameters() FunctionParameters {
	return FunctionParameters{Type: "object", Properties: map[string]PropertySchema{}}
}

// TranslateSchema converts a provider-defined input schema into agent-protocol
// function parameters. It is total: malformed or missing input degrades to the
// empty object schema and malformed individual properties are skipped with a
// diagnostic, never failing the whole schema.
func TranslateSchema(raw json.RawMessage, logger *slog.Logger) FunctionParameters {
	if logger == nil {
		logger = slog.Default()
	}
	if len(raw) == 0 {
		return emptyParameters()
	}

	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		logger.Warn("tool schema is not an object, using empty parameters", "error", err)
		return emptyParameters()
	}

	params := emptyParameters()
	for name, decl := range schema.Properties {
		var prop map[string]any
		if err := json.Unmarshal(decl, &prop); err != nil || prop == nil {
			logger.Warn("skipping property with non-object declaration", "property", name)
			continue
		}
		translated := PropertySchema{Type: "string"}
		if t, ok := prop["type"].(string); ok && t != "" {
			translated.Type = t
		}
		if d, ok := prop["description"].(string); ok {
			translated.Description = d
		}
		params.Properties[name] = translated
	}
	if len(schema.Required) > 0 {
		params.Required = schema.Required
	}
	return params
}
