package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recorded struct {
	method string
	path   string
	query  string
	token  string
	body   map[string]any
}

func newAPI(t *testing.T, response string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, token: r.Header.Get("X-Agent-Ping-Token")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSendCommand(t *testing.T) {
	srv, calls := newAPI(t, `{"ok":true}`)

	out, err := execute(t, "--base-url", srv.URL, "--token", "tkn",
		"send", "s1", "hello", "--channel", "telegram", "--attach", "https://x/a.png")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(out, `"ok": true`) {
		t.Fatalf("unexpected output %q", out)
	}
	got := (*calls)[0]
	if got.method != http.MethodPost || got.path != "/v1/messages/send" || got.token != "tkn" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.body["session_key"] != "s1" || got.body["text"] != "hello" || got.body["channel"] != "telegram" {
		t.Fatalf("unexpected body %#v", got.body)
	}
	atts, _ := got.body["attachments"].([]any)
	if len(atts) != 1 {
		t.Fatalf("expected one attachment, got %#v", got.body["attachments"])
	}
}

func TestSessionsCommandUsesDefaults(t *testing.T) {
	srv, calls := newAPI(t, `[]`)

	if _, err := execute(t, "--base-url", srv.URL, "sessions"); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if got := (*calls)[0]; got.path != "/v1/sessions" || got.query != "limit=100&offset=0" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestMessagesCommandPassesPaging(t *testing.T) {
	srv, calls := newAPI(t, `[]`)

	if _, err := execute(t, "--base-url", srv.URL, "messages", "abc", "--limit", "5", "--offset", "2"); err != nil {
		t.Fatalf("messages: %v", err)
	}
	if got := (*calls)[0]; got.path != "/v1/sessions/abc/messages" || got.query != "limit=5&offset=2" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestSendBulkCommandReadsFile(t *testing.T) {
	srv, calls := newAPI(t, `{"results":[]}`)
	file := filepath.Join(t.TempDir(), "bulk.json")
	if err := os.WriteFile(file, []byte(`[{"session_key":"a","text":"1"},{"session_key":"b"}]`), 0o644); err != nil {
		t.Fatalf("write bulk file: %v", err)
	}

	if _, err := execute(t, "--base-url", srv.URL, "send-bulk", file); err != nil {
		t.Fatalf("send-bulk: %v", err)
	}
	got := (*calls)[0]
	msgs, _ := got.body["messages"].([]any)
	if got.path != "/v1/messages/send-bulk" || len(msgs) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestAckCommandForwardsPayload(t *testing.T) {
	srv, calls := newAPI(t, `{"acked":1}`)

	if _, err := execute(t, "--base-url", srv.URL, "ack", `{"inbound_id":"in-1","note":"x"}`); err != nil {
		t.Fatalf("ack: %v", err)
	}
	got := (*calls)[0]
	if got.path != "/v1/inbound/ack" || got.body["inbound_id"] != "in-1" || got.body["note"] != "x" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestAckCommandRejectsInvalidJSON(t *testing.T) {
	srv, calls := newAPI(t, `{}`)

	if _, err := execute(t, "--base-url", srv.URL, "ack", "not-json"); err == nil {
		t.Fatalf("expected decode error")
	}
	if len(*calls) != 0 {
		t.Fatalf("no request expected for invalid payload")
	}
}

func TestCommandSurfacesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := execute(t, "--base-url", srv.URL, "session", "missing")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}
