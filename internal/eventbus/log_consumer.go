package eventbus

import (
	"context"
	"log"

	"github.com/matthewbaird/reactivation/internal/event"
)

// maxLoggedWells caps the well list in a log line.
const maxLoggedWells = 5

// LogConsumer logs all domain events for observability.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	wells := evt.Wells
	more := 0
	if len(wells) > maxLoggedWells {
		more = len(wells) - maxLoggedWells
		wells = wells[:maxLoggedWells]
	}
	log.Printf("event: %s [%s/%s] %s wells=%v (+%d)",
		evt.EventType, evt.Category, evt.Weight, evt.Summary, wells, more)
	return nil
}
