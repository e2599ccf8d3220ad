package provider

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

const defaultRequestTimeout = 120 * time.Second

// Client performs model calls through an adapter, classifying failures into
// the taxonomy the agent loop retries on.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client. requestsPerMinute bounds the outbound request
// rate; zero disables the limiter.
func NewClient(timeout time.Duration, requestsPerMinute int) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// Complete sends the transcript and tool schema to the model and returns the
// normalized reply. Errors are *AuthError, *TransientError or
// *MalformedResponseError.
func (c *Client) Complete(ctx context.Context, adapter Adapter, model string, messages []domain.Message, tools []tool.Definition, apiKey string) (*Reply, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransientError{Err: err}
	}

	body, err := adapter.BuildRequest(model, messages, tools)
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, adapter.Endpoint(model, apiKey), bytes.NewReader(body))
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	req.Header = adapter.Headers(apiKey)

	slog.Debug("Model request",
		"provider", adapter.Kind(),
		"model", model,
		"messages", len(messages),
		"bodyBytes", len(body),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: snippet(raw)}
	case resp.StatusCode != http.StatusOK:
		return nil, &TransientError{StatusCode: resp.StatusCode, Body: snippet(raw)}
	}

	reply, err := adapter.ParseResponse(raw, elapsed)
	if err != nil {
		return nil, err
	}

	slog.Debug("Model reply",
		"provider", adapter.Kind(),
		"latencyMS", reply.Stats.LatencyMS,
		"toolCalls", len(reply.ToolCalls),
	)
	return reply, nil
}
