package provider

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

var clickDef = tool.Definition{
	Name:        "click",
	Description: "Tap the screen.",
	Parameters: []tool.Parameter{
		{Name: "x", Type: tool.TypeInteger, Description: "x", Required: true},
		{Name: "y", Type: tool.TypeInteger, Description: "y", Required: true},
	},
}

var homeDef = tool.Definition{
	Name:        "home",
	Description: "Press home.",
}

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	return body
}

func TestOpenAIBuildRequest(t *testing.T) {
	adapter := NewOpenAI()
	messages := []domain.Message{
		domain.TextMessage(domain.RoleSystem, "be helpful"),
		domain.TextMessage(domain.RoleUser, "press home"),
	}

	raw, err := adapter.BuildRequest("gpt-4o-mini", messages, []tool.Definition{clickDef, homeDef})
	if err != nil {
		t.Fatal(err)
	}
	body := decodeBody(t, raw)

	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", body["model"])
	}
	if temp, ok := body["temperature"].(float64); !ok || temp != 0.2 {
		t.Errorf("temperature = %v, want 0.2", body["temperature"])
	}

	tools := body["tools"].([]any)
	if len(tools) != 2 {
		t.Fatalf("tools count = %d", len(tools))
	}
	first := tools[0].(map[string]any)
	if first["type"] != "function" {
		t.Errorf("tool type = %v", first["type"])
	}
	fn := first["function"].(map[string]any)
	props := fn["parameters"].(map[string]any)["properties"].(map[string]any)
	// Integer parameters keep their declared type on this wire format.
	if typ := props["x"].(map[string]any)["type"]; typ != "integer" {
		t.Errorf("x type = %v, want integer", typ)
	}
}

func TestOpenAITemperatureOmittedForReasoningModels(t *testing.T) {
	adapter := NewOpenAI()
	for _, model := range []string{"o1-mini", "o3", "o4-mini", "gpt-5"} {
		raw, err := adapter.BuildRequest(model, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, present := decodeBody(t, raw)["temperature"]; present {
			t.Errorf("model %s: temperature present, want omitted", model)
		}
	}
}

func TestOpenAIMessageSerialization(t *testing.T) {
	assistant := domain.Message{
		Role: domain.RoleAssistant,
		ToolCalls: []domain.ToolCall{
			{ID: "call_1", Name: "click", Arguments: `{"x":1,"y":2}`},
		},
	}
	toolReply := domain.TextMessage(domain.RoleTool, "Clicked at coordinates (1, 2)")
	toolReply.ToolCallID = "call_1"
	toolReply.Name = "click"

	out := buildOpenAIMessages([]domain.Message{assistant, toolReply})
	if len(out) != 2 {
		t.Fatalf("message count = %d", len(out))
	}

	if len(out[0].ToolCalls) != 1 || out[0].ToolCalls[0].ID != "call_1" ||
		out[0].ToolCalls[0].Function.Name != "click" {
		t.Errorf("assistant tool calls = %+v", out[0].ToolCalls)
	}
	if out[1].ToolCallID != "call_1" || out[1].Name != "click" ||
		out[1].Content == nil || *out[1].Content != "Clicked at coordinates (1, 2)" {
		t.Errorf("tool message = %+v", out[1])
	}
}

func TestOpenAIHeaders(t *testing.T) {
	h := NewOpenAI().Headers("sk-test")
	if got := h.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q", got)
	}
	if got := h.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestOpenAIParseResponse(t *testing.T) {
	raw := []byte(`{
		"choices": [{
			"message": {
				"content": "pressing home now",
				"tool_calls": [
					{"id": "call_abc", "type": "function", "function": {"name": "home", "arguments": "{}"}}
				]
			}
		}],
		"usage": {"prompt_tokens": 120, "completion_tokens": 15}
	}`)

	reply, err := NewOpenAI().ParseResponse(raw, 250*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "pressing home now" {
		t.Errorf("text = %q", reply.Text)
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Name != "home" || reply.ToolCalls[0].ID != "call_abc" {
		t.Errorf("tool calls = %+v", reply.ToolCalls)
	}
	if reply.Stats.InputTokens != 120 || reply.Stats.OutputTokens != 15 || reply.Stats.LatencyMS != 250 {
		t.Errorf("stats = %+v", reply.Stats)
	}
}

func TestOpenAIParseResponseMalformed(t *testing.T) {
	adapter := NewOpenAI()
	for _, raw := range []string{`not json`, `{"choices": []}`, `{"error": {"message": "nope"}}`} {
		_, err := adapter.ParseResponse([]byte(raw), 0)
		var malformed *MalformedResponseError
		if !errors.As(err, &malformed) {
			t.Errorf("ParseResponse(%q) error = %v, want MalformedResponseError", raw, err)
		}
	}
}
