package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adda-baaj/agent-ping/pkg/httpclient"
)

// Relay headers describe the event when the body carries only its payload.
const (
	headerRelayEvent      = "X-Relay-Event"
	headerRelayEventID    = "X-Relay-Event-Id"
	headerRelayReceivedAt = "X-Relay-Received-At"
)

// httpPublisher posts events to a webhook. By default the body is the raw
// event payload; with envelope set it is the whole relay Event.
type httpPublisher struct {
	id       string
	method   string
	url      string
	headers  map[string]string
	envelope bool
	client   httpclient.Client
	log      Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	return &httpPublisher{
		id:       cfg.ID,
		method:   cfg.HTTP.Method,
		url:      cfg.HTTP.URL,
		headers:  cfg.HTTP.Headers,
		envelope: cfg.HTTP.Envelope,
		client:   httpclient.NewRestyHTTPClient(timeout),
		log:      ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.Do(ctx, httpclient.Request{
		Method:  h.method,
		URL:     h.url,
		Headers: h.requestHeaders(evt),
		Body:    h.body(evt),
	})
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return fmt.Errorf("http response status %d: %s", status, readBodySnippet(resp.Body()))
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
		"status":       status,
	})
	return nil
}

// requestHeaders layers the relay headers over the configured ones.
func (h *httpPublisher) requestHeaders(evt Event) map[string]string {
	out := make(map[string]string, len(h.headers)+3)
	for k, v := range h.headers {
		out[k] = v
	}
	out[headerRelayEvent] = evt.Event
	out[headerRelayEventID] = evt.ID
	if !evt.ReceivedAt.IsZero() {
		out[headerRelayReceivedAt] = evt.ReceivedAt.Format(time.RFC3339Nano)
	}
	return out
}

func (h *httpPublisher) body(evt Event) any {
	if h.envelope {
		return evt
	}
	if len(evt.Payload) == 0 {
		return []byte("null")
	}
	return []byte(evt.Payload)
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
