package agentping

import "encoding/json"

// Attachment references externally hosted media sent with an outbound message.
type Attachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// OutboundMessage is the body of a send request. Empty optional fields are
// omitted from the encoded body; SessionKey and Attachments are always sent.
type OutboundMessage struct {
	SessionKey  string       `json:"session_key"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments"`
	Channel     string       `json:"channel,omitempty"`
	AccountID   string       `json:"account_id,omitempty"`
	PeerID      string       `json:"peer_id,omitempty"`
	ReplyTo     string       `json:"reply_to,omitempty"`
}

// MediaOptions carries the optional parts of a SendMedia call.
type MediaOptions struct {
	Filename string
	MimeType string
	Text     string
}

type bulkSendRequest struct {
	Messages []OutboundMessage `json:"messages"`
}

// Event is a frame pushed by the service over the event stream.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// streamCommand is a client frame on the event stream.
type streamCommand struct {
	Type   string   `json:"type"`
	Token  string   `json:"token,omitempty"`
	Events []string `json:"events,omitempty"`
}
