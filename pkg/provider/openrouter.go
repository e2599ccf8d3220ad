package provider

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter implements Adapter for OpenRouter's OpenAI-compatible API.
// It reuses the OpenAI request/response shapes with two deviations: tools
// are only advertised to models on the function-calling allow-list (not
// every routed model supports them), and tool-role messages carry content,
// tool_call_id and name explicitly.
type OpenRouter struct {
	BaseURL     string
	Temperature float64

	// ToolModels is the allow-list of model prefixes that support function
	// calling through this backend.
	ToolModels []string
}

// NewOpenRouter returns an adapter against the public OpenRouter endpoint.
func NewOpenRouter() *OpenRouter {
	return &OpenRouter{
		BaseURL:     defaultOpenRouterBaseURL,
		Temperature: 0.2,
		ToolModels: []string{
			"openai/",
			"anthropic/",
			"google/gemini",
			"meta-llama/llama-3",
			"qwen/",
			"mistralai/",
		},
	}
}

var _ Adapter = (*OpenRouter)(nil)

func (o *OpenRouter) Kind() domain.ProviderKind { return domain.ProviderOpenRouter }

// SupportsTools reports whether tools may be advertised to the given model.
func (o *OpenRouter) SupportsTools(model string) bool {
	for _, prefix := range o.ToolModels {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func (o *OpenRouter) BuildRequest(model string, messages []domain.Message, tools []tool.Definition) ([]byte, error) {
	req := openAIRequest{
		Model:    model,
		Messages: buildOpenRouterMessages(messages),
	}
	if o.SupportsTools(model) {
		req.Tools = (&OpenAI{}).BuildTools(tools)
	}
	if !modelRejectsTemperature(model) {
		t := o.Temperature
		req.Temperature = &t
	}
	return json.Marshal(req)
}

// buildOpenRouterMessages mirrors the OpenAI serialization but special-cases
// tool-role messages, which this backend requires to carry content,
// tool_call_id and name together.
func buildOpenRouterMessages(messages []domain.Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleTool {
			text := m.Text()
			out = append(out, openAIMessage{
				Role:       string(domain.RoleTool),
				Content:    &text,
				ToolCallID: m.ToolCallID,
				Name:       m.Name,
			})
			continue
		}
		out = append(out, buildOpenAIMessages([]domain.Message{m})...)
	}
	return out
}

func (o *OpenRouter) Endpoint(model, apiKey string) string {
	return o.BaseURL + "/chat/completions"
}

func (o *OpenRouter) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+apiKey)
	return h
}

func (o *OpenRouter) ParseResponse(raw []byte, elapsed time.Duration) (*Reply, error) {
	return parseOpenAIShaped(string(o.Kind()), raw, elapsed)
}
