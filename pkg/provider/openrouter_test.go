package provider

import (
	"testing"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

func TestOpenRouterSupportsTools(t *testing.T) {
	adapter := NewOpenRouter()
	tests := []struct {
		model string
		want  bool
	}{
		{"openai/gpt-4o", true},
		{"anthropic/claude-sonnet-4", true},
		{"google/gemini-2.0-flash-001", true},
		{"meta-llama/llama-3.3-70b-instruct", true},
		{"qwen/qwen-2.5-72b-instruct", true},
		{"mistralai/mistral-large", true},
		{"deepseek/deepseek-chat", false},
		{"perplexity/sonar", false},
	}
	for _, tc := range tests {
		if got := adapter.SupportsTools(tc.model); got != tc.want {
			t.Errorf("SupportsTools(%q) = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestOpenRouterOmitsToolsForUnsupportedModels(t *testing.T) {
	adapter := NewOpenRouter()
	defs := []tool.Definition{clickDef}

	raw, err := adapter.BuildRequest("deepseek/deepseek-chat", nil, defs)
	if err != nil {
		t.Fatal(err)
	}
	if _, present := decodeBody(t, raw)["tools"]; present {
		t.Error("tools advertised to a model outside the allow-list")
	}

	raw, err = adapter.BuildRequest("openai/gpt-4o", nil, defs)
	if err != nil {
		t.Fatal(err)
	}
	if _, present := decodeBody(t, raw)["tools"]; !present {
		t.Error("tools missing for an allow-listed model")
	}
}

func TestOpenRouterToolMessageShape(t *testing.T) {
	reply := domain.TextMessage(domain.RoleTool, "Pressed home button")
	reply.ToolCallID = "call_7"
	reply.Name = "home"

	out := buildOpenRouterMessages([]domain.Message{reply})
	if len(out) != 1 {
		t.Fatalf("message count = %d", len(out))
	}
	m := out[0]
	if m.Role != "tool" || m.ToolCallID != "call_7" || m.Name != "home" {
		t.Errorf("tool message = %+v", m)
	}
	if m.Content == nil || *m.Content != "Pressed home button" {
		t.Errorf("tool message content = %v", m.Content)
	}
}
