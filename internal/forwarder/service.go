package forwarder

import (
	"context"
	"fmt"

	"github.com/adda-baaj/agent-ping/internal/logger"
)

// controlEvents are stream housekeeping frames, never relayed.
var controlEvents = map[string]struct{}{
	"presence": {},
	"health":   {},
}

// Stats counts what a Run did.
type Stats struct {
	Received int
	Relayed  int
	Skipped  int
	Failed   int
}

// Service drains an event stream through a Processor.
type Service struct {
	processor *Processor
	log       logger.Logger
}

// NewService wires a forwarding loop around the processor.
func NewService(processor *Processor, log logger.Logger) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{processor: processor, log: log}
}

// Run relays events until the stream fails or ctx is cancelled. A cancelled
// context ends the loop without error; per-event failures are logged and do
// not stop it.
func (s *Service) Run(ctx context.Context, stream EventStream) (Stats, error) {
	var stats Stats
	if s == nil || s.processor == nil {
		return stats, fmt.Errorf("forwarder service is not initialized")
	}

	for {
		evt, err := stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				return stats, nil
			}
			return stats, fmt.Errorf("read event stream: %w", err)
		}
		if _, ok := controlEvents[evt.Event]; ok {
			continue
		}
		stats.Received++

		relayed, err := s.processor.Process(ctx, evt)
		switch {
		case err != nil:
			stats.Failed++
			s.log.ErrorObj("event relay failed", "forward_error", map[string]any{
				"event": evt.Event,
				"error": err.Error(),
			})
		case relayed:
			stats.Relayed++
		default:
			stats.Skipped++
		}
	}
}
