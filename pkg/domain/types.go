package domain

import (
	"encoding/json"
	"time"
)

// Content part types.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
)

// Content is a single part of a message body: text, or a reference to a
// captured screenshot for providers that accept image input.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// ImageRef points at a stored screenshot (file path or data URL).
	ImageRef string `json:"image_ref,omitempty"`
}

// ToolCall is one model-issued request to invoke a tool, normalized from
// whatever shape the active provider used on the wire.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Arguments is the JSON-encoded argument object.
	Arguments string `json:"arguments"`
}

// Args decodes the argument string into a generic object.
func (tc ToolCall) Args() (map[string]any, error) {
	if tc.Arguments == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// Annotations is the opaque per-message observability side channel. It is
// never consulted for control flow.
type Annotations struct {
	LatencyMS    int64 `json:"latency_ms,omitempty"`
	InputTokens  int   `json:"input_tokens,omitempty"`
	OutputTokens int   `json:"output_tokens,omitempty"`
}

// Message is one turn in a conversation transcript.
type Message struct {
	Role    Role      `json:"role"`
	Content []Content `json:"content,omitempty"`

	// ToolCalls is present only on assistant messages.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name are present only on tool messages and link the
	// result back to the assistant tool call that requested it.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`

	Annotations Annotations `json:"annotations,omitempty"`
	Timestamp   time.Time   `json:"timestamp,omitempty"`
}

// Text returns the concatenation of the message's text parts.
func (m Message) Text() string {
	var out string
	for _, c := range m.Content {
		if c.Type == ContentTypeText {
			out += c.Text
		}
	}
	return out
}

// TextMessage builds a message holding a single text part.
func TextMessage(role Role, text string) Message {
	return Message{
		Role:      role,
		Content:   []Content{{Type: ContentTypeText, Text: text}},
		Timestamp: time.Now(),
	}
}

// Conversation is the transcript of one goal-directed agent run.
type Conversation struct {
	ID         string     `json:"id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Messages   []Message  `json:"messages"`
	IsComplete bool       `json:"is_complete"`
}

// Complete marks the conversation finished. The end time is set exactly once;
// later calls are no-ops so teardown after cancellation cannot move it.
func (c *Conversation) Complete(at time.Time) {
	if c.EndTime != nil {
		return
	}
	t := at
	c.EndTime = &t
	c.IsComplete = true
}

// ProviderKind identifies one LLM backend wire format.
type ProviderKind string

const (
	ProviderOpenAI     ProviderKind = "openai"
	ProviderGemini     ProviderKind = "gemini"
	ProviderOpenRouter ProviderKind = "openrouter"
)

// Model describes one selectable LLM.
type Model struct {
	DisplayName string       `json:"display_name"`
	Identifier  string       `json:"identifier"`
	Provider    ProviderKind `json:"provider"`
}
