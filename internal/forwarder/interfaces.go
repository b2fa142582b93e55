package forwarder

import (
	"context"

	"github.com/adda-baaj/agent-ping/pkg/agentping"
	"github.com/adda-baaj/agent-ping/pkg/publishers"
)

// EventStream yields events pushed by the service.
type EventStream interface {
	Next() (agentping.Event, error)
}

// EventPublisher fans relayed events out to downstream sinks and reports how many accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers event IDs that were already relayed.
type Deduper interface {
	Seen(id string) (bool, error)
	Mark(id string) error
}

// Acker acknowledges relayed events back to the service.
type Acker interface {
	EmitEvent(ctx context.Context, payload map[string]any) (map[string]any, error)
}
