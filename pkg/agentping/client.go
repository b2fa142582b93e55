// Package agentping is a client for the Agent Ping messaging API.
package agentping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adda-baaj/agent-ping/pkg/httpclient"
)

const (
	// TokenHeader carries the shared secret on every request when a token is configured.
	TokenHeader = "X-Agent-Ping-Token"

	DefaultTimeout       = 30 * time.Second
	DefaultSessionsLimit = 100
	DefaultMessagesLimit = 200

	pathSend     = "/v1/messages/send"
	pathSendBulk = "/v1/messages/send-bulk"
	pathSessions = "/v1/sessions"
	pathAck      = "/v1/inbound/ack"
	pathHealth   = "/v1/health"
	pathStatus   = "/v1/status"
	pathStream   = "/v1/ws"
)

// Config holds connection settings. BaseURL is used verbatim; paths are appended to it.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client issues requests against one Agent Ping service. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	cfg  Config
	http httpclient.Client
	log  Logger
}

// NewClient builds a client backed by resty. A non-positive timeout selects DefaultTimeout.
func NewClient(cfg Config, log Logger) *Client {
	cfg = cfg.withDefaults()
	return newClient(cfg, httpclient.NewRestyClient(cfg.Timeout), log)
}

// newClient wires an arbitrary transport; cfg is taken as given.
func newClient(cfg Config, hc httpclient.Client, log Logger) *Client {
	return &Client{cfg: cfg, http: hc, log: ensureLogger(log)}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Config returns the settings the client was built with.
func (c *Client) Config() Config { return c.cfg }

// SendMessage posts an outbound message. Nil attachments are sent as an empty list.
func (c *Client) SendMessage(ctx context.Context, msg OutboundMessage) (map[string]any, error) {
	if msg.Attachments == nil {
		msg.Attachments = []Attachment{}
	}
	var out map[string]any
	if err := c.call(ctx, http.MethodPost, pathSend, nil, msg, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMedia sends a single attachment, optionally captioned with opts.Text.
func (c *Client) SendMedia(ctx context.Context, sessionKey, url string, opts MediaOptions) (map[string]any, error) {
	return c.SendMessage(ctx, OutboundMessage{
		SessionKey: sessionKey,
		Text:       opts.Text,
		Attachments: []Attachment{{
			URL:      url,
			Filename: opts.Filename,
			MimeType: opts.MimeType,
		}},
	})
}

// SendBulk posts several messages in one request. The service reports a result per message.
func (c *Client) SendBulk(ctx context.Context, msgs []OutboundMessage) (map[string]any, error) {
	body := bulkSendRequest{Messages: make([]OutboundMessage, len(msgs))}
	for i, msg := range msgs {
		if msg.Attachments == nil {
			msg.Attachments = []Attachment{}
		}
		body.Messages[i] = msg
	}
	var out map[string]any
	if err := c.call(ctx, http.MethodPost, pathSendBulk, nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSessions returns session records. limit and offset are passed through unchanged.
func (c *Client) ListSessions(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.call(ctx, http.MethodGet, pathSessions, pageQuery(limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSession returns one session record.
func (c *Client) GetSession(ctx context.Context, sessionKey string) (map[string]any, error) {
	var out map[string]any
	if err := c.call(ctx, http.MethodGet, pathSessions+"/"+sessionKey, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMessages returns the messages stored for a session.
func (c *Client) GetMessages(ctx context.Context, sessionKey string, limit, offset int) ([]map[string]any, error) {
	var out []map[string]any
	path := pathSessions + "/" + sessionKey + "/messages"
	if err := c.call(ctx, http.MethodGet, path, pageQuery(limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EmitEvent forwards payload verbatim to the inbound acknowledgement endpoint.
func (c *Client) EmitEvent(ctx context.Context, payload map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.call(ctx, http.MethodPost, pathAck, nil, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health reports service liveness.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.call(ctx, http.MethodGet, pathHealth, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Status reports session and message counts.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.call(ctx, http.MethodGet, pathStatus, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.cfg.Token != "" {
		h[TokenHeader] = c.cfg.Token
	}
	return h
}

func (c *Client) call(ctx context.Context, method, path string, query map[string]string, body any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	url := c.cfg.BaseURL + path
	start := time.Now()

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  method,
		URL:     url,
		Headers: c.headers(),
		Query:   query,
		Body:    body,
	})
	if err != nil {
		c.log.WarnObj("agent ping request failed", "agent_ping_error", map[string]any{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return fmt.Errorf("agent ping %s %s request: %w", method, path, err)
	}

	status := resp.StatusCode()
	c.log.DebugObj("agent ping request completed", "agent_ping_request", map[string]any{
		"method":     method,
		"path":       path,
		"status":     status,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if status < 200 || status >= 300 {
		return &StatusError{Method: method, URL: url, StatusCode: status, Body: resp.Body()}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &DecodeError{URL: url, Body: resp.Body(), Err: err}
	}
	return nil
}

func pageQuery(limit, offset int) map[string]string {
	return map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}
}
