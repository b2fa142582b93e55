package publishers

import (
	"encoding/json"
	"time"

	"github.com/adda-baaj/agent-ping/pkg/agentping"
)

// Event represents the payload published downstream.
type Event struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// NewEvent wraps a stream event with its relay ID.
func NewEvent(id string, evt agentping.Event) Event {
	payload := evt.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Event{
		ID:         id,
		Event:      evt.Event,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
}

// attributes are attached to queue and topic messages for subscriber-side filtering.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event":    e.Event,
		"event_id": e.ID,
	}
}
