// Package provider translates between the internal conversation/tool model
// and the wire formats of the supported LLM backends. One adapter per
// backend; everything downstream of ParseResponse is provider-agnostic.
package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

// Reply is the normalized outcome of one model call.
type Reply struct {
	// Text is the model's reply text (its narration when tool calls are
	// present, the final answer otherwise).
	Text string
	// ToolCalls is nil/empty when the model considers the goal finished.
	ToolCalls []domain.ToolCall
	// Stats carries latency and, where the backend reports it, token usage.
	Stats domain.Annotations
}

// Adapter is implemented once per backend wire format.
type Adapter interface {
	// Kind identifies the wire format.
	Kind() domain.ProviderKind

	// BuildRequest serializes the transcript and tool schema into the
	// backend's request body.
	BuildRequest(model string, messages []domain.Message, tools []tool.Definition) ([]byte, error)

	// Endpoint computes the request URL. Gemini-style backends embed the
	// API key as a query parameter here.
	Endpoint(model, apiKey string) string

	// Headers computes the auth and content headers. Backends that carry
	// the key in the URL return no auth header.
	Headers(apiKey string) http.Header

	// ParseResponse parses the backend's raw response into a Reply.
	// A body that does not match the backend's shape yields a
	// *MalformedResponseError, never a silently empty reply.
	ParseResponse(raw []byte, elapsed time.Duration) (*Reply, error)
}

// ForKind returns the adapter for a provider kind.
func ForKind(kind domain.ProviderKind) (Adapter, error) {
	switch kind {
	case domain.ProviderOpenAI:
		return NewOpenAI(), nil
	case domain.ProviderGemini:
		return NewGemini(), nil
	case domain.ProviderOpenRouter:
		return NewOpenRouter(), nil
	}
	return nil, fmt.Errorf("unknown provider kind %q", kind)
}

// NormalizeToolCall converts a raw wire tool call in either known shape into
// the internal one. Accepted shapes:
//
//	{"id": ..., "function": {"name": ..., "arguments": "<json string>"}}   (OpenAI)
//	{"functionCall": {"name": ..., "args": {<json object>}}}               (Gemini)
func NormalizeToolCall(raw json.RawMessage) (domain.ToolCall, error) {
	var probe struct {
		ID       string `json:"id"`
		Function *struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
		FunctionCall *struct {
			Name string          `json:"name"`
			Args json.RawMessage `json:"args"`
		} `json:"functionCall"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return domain.ToolCall{}, fmt.Errorf("parsing tool call: %w", err)
	}

	switch {
	case probe.Function != nil:
		args := probe.Function.Arguments
		if args == "" {
			args = "{}"
		}
		return domain.ToolCall{ID: probe.ID, Name: probe.Function.Name, Arguments: args}, nil
	case probe.FunctionCall != nil:
		args := "{}"
		if len(probe.FunctionCall.Args) > 0 {
			args = string(probe.FunctionCall.Args)
		}
		return domain.ToolCall{Name: probe.FunctionCall.Name, Arguments: args}, nil
	}
	return domain.ToolCall{}, fmt.Errorf("tool call matches no known shape: %s", snippet(raw))
}

// snippet trims a raw payload for inclusion in error messages.
func snippet(raw []byte) string {
	const max = 200
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
