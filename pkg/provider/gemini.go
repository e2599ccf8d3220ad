package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini implements Adapter for the generateContent wire format.
//
// Two documented quirks of this backend are preserved deliberately:
//   - integer parameters are downgraded to string in the tool schema, since
//     the schema does not reliably support integer in that position;
//   - the multi-turn transcript is flattened into one newline-joined
//     "role: content" text blob in a single user turn. This is a lossy
//     mapping of the transcript onto the backend's single-turn content
//     model, not an accident.
type Gemini struct {
	BaseURL string
}

// NewGemini returns an adapter against the public Gemini endpoint.
func NewGemini() *Gemini {
	return &Gemini{BaseURL: defaultGeminiBaseURL}
}

var _ Adapter = (*Gemini)(nil)

func (g *Gemini) Kind() domain.ProviderKind { return domain.ProviderGemini }

// Wire shapes.

type geminiFunctionDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  *toolParameters `json:"parameters,omitempty"`
}

type geminiToolDecls struct {
	FunctionDeclarations []geminiFunctionDecl `json:"function_declarations"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents geminiContent     `json:"contents"`
	Tools    []geminiToolDecls `json:"tools,omitempty"`
}

// BuildTools maps the generic tool list into a single function_declarations
// object. Integer parameters become string typed, and the parameters object
// is omitted entirely for no-argument tools (the backend rejects an empty
// properties object).
func (g *Gemini) BuildTools(defs []tool.Definition) []geminiToolDecls {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]geminiFunctionDecl, 0, len(defs))
	for _, d := range defs {
		decl := geminiFunctionDecl{
			Name:        d.Name,
			Description: d.Description,
		}
		if len(d.Parameters) > 0 {
			params := &toolParameters{
				Type:       "object",
				Properties: map[string]schemaProperty{},
			}
			for _, p := range d.Parameters {
				typ := string(p.Type)
				if p.Type == tool.TypeInteger {
					typ = "string"
				}
				params.Properties[p.Name] = schemaProperty{
					Type:        typ,
					Description: p.Description,
				}
				if p.Required {
					params.Required = append(params.Required, p.Name)
				}
			}
			decl.Parameters = params
		}
		decls = append(decls, decl)
	}
	return []geminiToolDecls{{FunctionDeclarations: decls}}
}

func (g *Gemini) BuildRequest(model string, messages []domain.Message, tools []tool.Definition) ([]byte, error) {
	req := geminiRequest{
		Contents: geminiContent{
			Role:  "user",
			Parts: []geminiPart{{Text: flattenTranscript(messages)}},
		},
		Tools: g.BuildTools(tools),
	}
	return json.Marshal(req)
}

// flattenTranscript joins the whole history into one "role: content" blob.
func flattenTranscript(messages []domain.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		text := m.Text()
		if text == "" && len(m.ToolCalls) > 0 {
			calls := make([]string, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, fmt.Sprintf("[called %s(%s)]", tc.Name, tc.Arguments))
			}
			text = strings.Join(calls, " ")
		}
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, text))
	}
	return strings.Join(lines, "\n")
}

// Endpoint embeds the API key as a query parameter; this backend uses no
// auth header.
func (g *Gemini) Endpoint(model, apiKey string) string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.BaseURL, model, apiKey)
}

func (g *Gemini) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []json.RawMessage `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ParseResponse reads candidates[0].content.parts, treating any part with a
// functionCall key as a tool invocation. The backend reports no usage block,
// so the stats annotation carries only latency.
func (g *Gemini) ParseResponse(raw []byte, elapsed time.Duration) (*Reply, error) {
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &MalformedResponseError{Kind: string(g.Kind()), Snippet: snippet(raw)}
	}
	if len(resp.Candidates) == 0 {
		return nil, &MalformedResponseError{Kind: string(g.Kind()), Snippet: snippet(raw)}
	}

	reply := &Reply{Stats: domain.Annotations{LatencyMS: elapsed.Milliseconds()}}
	var texts []string
	for _, rawPart := range resp.Candidates[0].Content.Parts {
		var part geminiPart
		if err := json.Unmarshal(rawPart, &part); err != nil {
			return nil, &MalformedResponseError{Kind: string(g.Kind()), Snippet: snippet(rawPart)}
		}
		if part.FunctionCall != nil {
			tc, err := NormalizeToolCall(rawPart)
			if err != nil {
				return nil, &MalformedResponseError{Kind: string(g.Kind()), Snippet: snippet(rawPart)}
			}
			reply.ToolCalls = append(reply.ToolCalls, tc)
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	reply.Text = strings.Join(texts, "")
	return reply, nil
}
