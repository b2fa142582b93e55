package agentping

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/adda-baaj/agent-ping/pkg/httpclient"
)

// fakeResponse is a canned httpclient.Response.
type fakeResponse struct {
	status int
	body   []byte
}

func (r fakeResponse) Body() []byte    { return r.body }
func (r fakeResponse) StatusCode() int { return r.status }

// fakeTransport records requests handed to the httpclient seam.
type fakeTransport struct {
	requests []httpclient.Request
	resp     httpclient.Response
	err      error
}

func (f *fakeTransport) Do(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func TestClientBuildsTransportRequests(t *testing.T) {
	hc := &fakeTransport{resp: fakeResponse{status: http.StatusOK, body: []byte(`[]`)}}
	client := newClient(Config{BaseURL: "https://ping.example", Token: "t0k"}, hc, nil)

	if _, err := client.GetMessages(context.Background(), "agent:main:dm:1", 7, 3); err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	req := hc.requests[0]
	if req.Method != http.MethodGet || req.URL != "https://ping.example/v1/sessions/agent:main:dm:1/messages" {
		t.Fatalf("unexpected request line %s %s", req.Method, req.URL)
	}
	if !reflect.DeepEqual(req.Query, map[string]string{"limit": "7", "offset": "3"}) {
		t.Fatalf("unexpected query %v", req.Query)
	}
	wantHeaders := map[string]string{"Accept": "application/json", TokenHeader: "t0k"}
	if !reflect.DeepEqual(req.Headers, wantHeaders) {
		t.Fatalf("unexpected headers %v", req.Headers)
	}
	if req.Body != nil {
		t.Fatalf("GET must not carry a body, got %#v", req.Body)
	}
}

func TestClientPassesMessageToTransport(t *testing.T) {
	hc := &fakeTransport{resp: fakeResponse{status: http.StatusOK, body: []byte(`{"message_id":"m1"}`)}}
	client := newClient(Config{BaseURL: "https://ping.example"}, hc, nil)

	out, err := client.SendMessage(context.Background(), OutboundMessage{SessionKey: "s1", Text: "hi"})
	if err != nil || out["message_id"] != "m1" {
		t.Fatalf("SendMessage = %v, %v", out, err)
	}
	msg, ok := hc.requests[0].Body.(OutboundMessage)
	if !ok {
		t.Fatalf("expected OutboundMessage body, got %T", hc.requests[0].Body)
	}
	if msg.Attachments == nil || len(msg.Attachments) != 0 {
		t.Fatalf("attachments should be an empty list, got %#v", msg.Attachments)
	}
	if _, present := hc.requests[0].Headers[TokenHeader]; present {
		t.Fatalf("token header must be absent without a token")
	}
}

func TestClientWrapsTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	client := newClient(Config{BaseURL: "https://ping.example"}, &fakeTransport{err: boom}, nil)

	_, err := client.Status(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestClientRejectsRedirectStatus(t *testing.T) {
	hc := &fakeTransport{resp: fakeResponse{status: http.StatusFound}}
	client := newClient(Config{BaseURL: "https://ping.example"}, hc, nil)

	_, err := client.Health(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 StatusError, got %v", err)
	}
}
