package agentping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSubscriptionClosed is returned by Next after Close.
var ErrSubscriptionClosed = errors.New("agent ping subscription closed")

const closeWriteWait = time.Second

// Subscription is a live event stream. Next must be called from one goroutine
// at a time; Ping and Close may be called concurrently with it.
type Subscription struct {
	conn    *websocket.Conn
	ctx     context.Context
	writeMu sync.Mutex
	closed  atomic.Bool
	once    sync.Once
	done    chan struct{}
}

// Subscribe opens the event stream, authenticates and, when events are
// given, restricts delivery to those event names. Cancelling ctx closes the
// subscription.
func (c *Client) Subscribe(ctx context.Context, events ...string) (*Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target, err := streamURL(c.cfg.BaseURL + pathStream)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set(TokenHeader, c.cfg.Token)
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.Timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorSnippet))
			return nil, &StatusError{Method: http.MethodGet, URL: target, StatusCode: resp.StatusCode, Body: body}
		}
		return nil, fmt.Errorf("agent ping dial %s: %w", pathStream, err)
	}

	sub := &Subscription{conn: conn, ctx: ctx, done: make(chan struct{})}
	if err := sub.send(streamCommand{Type: "connect", Token: c.cfg.Token}); err != nil {
		sub.Close()
		return nil, fmt.Errorf("agent ping stream connect: %w", err)
	}
	if len(events) > 0 {
		if err := sub.send(streamCommand{Type: "subscribe", Events: events}); err != nil {
			sub.Close()
			return nil, fmt.Errorf("agent ping stream subscribe: %w", err)
		}
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	c.log.InfoObj("agent ping stream opened", "agent_ping_stream", map[string]any{
		"url":    target,
		"events": events,
	})
	return sub, nil
}

// Next blocks until the service pushes an event.
func (s *Subscription) Next() (Event, error) {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return Event{}, ctxErr
			}
			if s.closed.Load() {
				return Event{}, ErrSubscriptionClosed
			}
			return Event{}, fmt.Errorf("agent ping stream read: %w", err)
		}

		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			return Event{}, &DecodeError{URL: s.conn.RemoteAddr().String(), Body: raw, Err: err}
		}
		if evt.Event == "" {
			continue
		}
		return evt, nil
	}
}

// Ping asks the service for a health event.
func (s *Subscription) Ping() error {
	return s.send(streamCommand{Type: "ping"})
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)

		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteWait),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Subscription) send(cmd streamCommand) error {
	if s.closed.Load() {
		return ErrSubscriptionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(cmd)
}

// streamURL maps an http(s) base address onto the ws(s) scheme.
func streamURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported stream url scheme %q", u.Scheme)
	}
	return u.String(), nil
}
