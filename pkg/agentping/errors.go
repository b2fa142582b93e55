package agentping

import (
	"fmt"
	"strings"
)

const maxErrorSnippet = 512

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	snippet := readBodySnippet(e.Body)
	if snippet == "" {
		return fmt.Sprintf("agent ping %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("agent ping %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, snippet)
}

// DecodeError is returned when a successful response body is not the expected JSON.
type DecodeError struct {
	URL  string
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("agent ping decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxErrorSnippet {
		body = body[:maxErrorSnippet]
	}
	return strings.TrimSpace(string(body))
}
