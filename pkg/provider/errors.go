package provider

import "fmt"

// AuthError reports a credential failure (401-equivalent). It is terminal:
// retrying cannot fix a bad key, so the loop surfaces it immediately.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (%d): %s", e.StatusCode, e.Body)
}

// TransientError reports a failure worth retrying: network errors, 5xx,
// throttling, and other plausibly temporary conditions.
type TransientError struct {
	StatusCode int // 0 when the request never got an HTTP response
	Err        error
	Body       string
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider request failed: %v", e.Err)
	}
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Body)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response body matching no known provider
// shape. Terminal for the current turn and clearly labeled, never silently
// dropped.
type MalformedResponseError struct {
	Kind    string
	Snippet string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unrecognized %s response format: %s", e.Kind, e.Snippet)
}
