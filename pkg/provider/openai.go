package provider

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI implements Adapter for the OpenAI chat-completions wire format.
type OpenAI struct {
	BaseURL     string
	Temperature float64
}

// NewOpenAI returns an adapter against the public OpenAI endpoint.
func NewOpenAI() *OpenAI {
	return &OpenAI{BaseURL: defaultOpenAIBaseURL, Temperature: 0.2}
}

var _ Adapter = (*OpenAI)(nil)

func (o *OpenAI) Kind() domain.ProviderKind { return domain.ProviderOpenAI }

// Wire shapes.

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
}

type schemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type toolParameters struct {
	Type       string                    `json:"type"`
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

type openAIFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  *toolParameters `json:"parameters,omitempty"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

// Reasoning models reject an explicit temperature; the field is omitted from
// the body entirely for them.
var fixedTemperaturePrefixes = []string{"o1", "o3", "o4", "gpt-5"}

func modelRejectsTemperature(model string) bool {
	for _, p := range fixedTemperaturePrefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// BuildTools maps the generic tool list to the OpenAI function-calling schema.
func (o *OpenAI) BuildTools(defs []tool.Definition) []openAITool {
	tools := make([]openAITool, 0, len(defs))
	for _, d := range defs {
		params := &toolParameters{
			Type:       "object",
			Properties: map[string]schemaProperty{},
		}
		for _, p := range d.Parameters {
			params.Properties[p.Name] = schemaProperty{
				Type:        string(p.Type),
				Description: p.Description,
			}
			if p.Required {
				params.Required = append(params.Required, p.Name)
			}
		}
		tools = append(tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

func (o *OpenAI) BuildRequest(model string, messages []domain.Message, tools []tool.Definition) ([]byte, error) {
	req := openAIRequest{
		Model:    model,
		Messages: buildOpenAIMessages(messages),
		Tools:    o.BuildTools(tools),
	}
	if !modelRejectsTemperature(model) {
		t := o.Temperature
		req.Temperature = &t
	}
	return json.Marshal(req)
}

func buildOpenAIMessages(messages []domain.Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		wire := openAIMessage{Role: string(m.Role)}

		if text := m.Text(); text != "" || len(m.ToolCalls) == 0 {
			t := text
			wire.Content = &t
		}

		switch m.Role {
		case domain.RoleTool:
			wire.ToolCallID = m.ToolCallID
			wire.Name = m.Name
		case domain.RoleAssistant:
			for _, tc := range m.ToolCalls {
				wire.ToolCalls = append(wire.ToolCalls, openAIToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openAIFunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
		}
		out = append(out, wire)
	}
	return out
}

func (o *OpenAI) Endpoint(model, apiKey string) string {
	return o.BaseURL + "/chat/completions"
}

func (o *OpenAI) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+apiKey)
	return h
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   *string           `json:"content"`
			ToolCalls []json.RawMessage `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (o *OpenAI) ParseResponse(raw []byte, elapsed time.Duration) (*Reply, error) {
	return parseOpenAIShaped(string(o.Kind()), raw, elapsed)
}

// parseOpenAIShaped handles the choices/usage response shape shared by
// OpenAI-compatible backends.
func parseOpenAIShaped(kind string, raw []byte, elapsed time.Duration) (*Reply, error) {
	var resp openAIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &MalformedResponseError{Kind: kind, Snippet: snippet(raw)}
	}
	if len(resp.Choices) == 0 {
		return nil, &MalformedResponseError{Kind: kind, Snippet: snippet(raw)}
	}

	msg := resp.Choices[0].Message
	reply := &Reply{
		Stats: domain.Annotations{
			LatencyMS:    elapsed.Milliseconds(),
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if msg.Content != nil {
		reply.Text = *msg.Content
	}
	for _, rawCall := range msg.ToolCalls {
		tc, err := NormalizeToolCall(rawCall)
		if err != nil {
			return nil, &MalformedResponseError{Kind: kind, Snippet: snippet(rawCall)}
		}
		reply.ToolCalls = append(reply.ToolCalls, tc)
	}
	return reply, nil
}
