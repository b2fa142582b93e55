package forwarder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/adda-baaj/agent-ping/internal/logger"
	"github.com/adda-baaj/agent-ping/pkg/agentping"
	"github.com/adda-baaj/agent-ping/pkg/publishers"
)

// idPaths locate a stable message identifier inside an event payload, in
// lookup order. chat frames carry the stored message record under "message".
var idPaths = [][]string{
	{"message", "id"},
	{"message", "dedupe_key"},
	{"message_id"},
	{"inbound_id"},
}

// Processor relays one event at a time: dedup, fan out, mark, ack.
type Processor struct {
	publisher EventPublisher
	deduper   Deduper
	acker     Acker
	log       logger.Logger
}

// NewProcessor builds a processor. deduper and acker are optional.
func NewProcessor(pub EventPublisher, deduper Deduper, acker Acker, log logger.Logger) *Processor {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Processor{publisher: pub, deduper: deduper, acker: acker, log: log}
}

// Process relays evt. It reports whether the event reached at least one publisher.
func (p *Processor) Process(ctx context.Context, evt agentping.Event) (bool, error) {
	if p == nil || p.publisher == nil {
		return false, fmt.Errorf("forwarder processor is not initialized")
	}

	id := EventID(evt)
	if p.alreadyRelayed(id, evt.Event) {
		p.log.DebugObj("skipping relayed event", "forward_skip", map[string]any{
			"event":    evt.Event,
			"event_id": id,
		})
		return false, nil
	}

	delivered, err := p.publisher.Publish(ctx, publishers.NewEvent(id, evt))
	if delivered == 0 {
		if err == nil {
			err = fmt.Errorf("no publishers accepted the event")
		}
		return false, fmt.Errorf("publish event %s: %w", id, err)
	}
	if err != nil {
		p.log.WarnObj("event delivered partially", "forward_partial", map[string]any{
			"event_id":  id,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}

	if p.deduper != nil {
		if err := p.deduper.Mark(id); err != nil {
			p.log.ErrorObj("failed to mark event as relayed", "forward_dedup_error", map[string]any{
				"event_id": id,
				"error":    err.Error(),
			})
		}
	}

	if p.acker != nil {
		if _, err := p.acker.EmitEvent(ctx, map[string]any{
			"type":  "ack",
			"event": evt.Event,
			"id":    id,
		}); err != nil {
			return true, fmt.Errorf("ack event %s: %w", id, err)
		}
	}

	p.log.InfoObj("event relayed", "forward_result", map[string]any{
		"event":     evt.Event,
		"event_id":  id,
		"delivered": delivered,
	})
	return true, nil
}

// alreadyRelayed treats a failing lookup as unseen so the event is not lost.
func (p *Processor) alreadyRelayed(id, event string) bool {
	if p.deduper == nil {
		return false
	}
	seen, err := p.deduper.Seen(id)
	if err != nil {
		p.log.WarnObj("dedup lookup failed; relaying anyway", "forward_dedup_error", map[string]any{
			"event":    event,
			"event_id": id,
			"error":    err.Error(),
		})
		return false
	}
	return seen
}

// EventID returns the message identifier carried by the payload (the chat
// record ID, then its dedupe key, then top-level message_id or inbound_id),
// otherwise a SHA-256 digest of the event name and raw payload.
func EventID(evt agentping.Event) string {
	var fields map[string]any
	if err := json.Unmarshal(evt.Payload, &fields); err == nil {
		for _, path := range idPaths {
			if v := lookupString(fields, path); v != "" {
				return v
			}
		}
	}
	sum := sha256.New()
	sum.Write([]byte(evt.Event))
	sum.Write([]byte{0})
	sum.Write(evt.Payload)
	return hex.EncodeToString(sum.Sum(nil))
}

func lookupString(fields map[string]any, path []string) string {
	var cur any = fields
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[key]
	}
	v, _ := cur.(string)
	return v
}
