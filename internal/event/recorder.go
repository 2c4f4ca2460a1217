// Package event provides domain event recording for the analysis handlers.
// Events are fanned out as one EventEntry per affected well via the
// store.Store interface, then published to the in-process event bus for
// downstream consumers.
package event

import (
	"context"

	"github.com/matthewbaird/reactivation/internal/store"
	"github.com/matthewbaird/reactivation/internal/types"
)

// Recorder writes domain events to the artifact store.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// StoreRecorder implements Recorder by fanning out a DomainEvent into
// one EventEntry per affected well, then writing via store.Store.
// If a Publisher is set, the event is also published to the event bus
// after the store write succeeds.
type StoreRecorder struct {
	store store.Store
	bus   Publisher
}

// NewStoreRecorder creates a new StoreRecorder backed by the given store.
func NewStoreRecorder(s store.Store) *StoreRecorder {
	return &StoreRecorder{store: s}
}

// SetPublisher attaches an event bus. Events are published after store writes.
func (r *StoreRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

// Record fans out a DomainEvent into EventEntry records, writes them,
// and publishes to the event bus.
func (r *StoreRecorder) Record(ctx context.Context, evt DomainEvent) error {
	entries := make([]types.EventEntry, 0, len(evt.Wells))
	for _, well := range evt.Wells {
		entries = append(entries, types.EventEntry{
			EventID:    evt.ID,
			EventType:  evt.EventType,
			OccurredAt: evt.OccurredAt,
			WellKey:    well,
			Summary:    evt.Summary,
			Category:   evt.Category,
			Payload:    evt.Payload,
		})
	}
	if len(entries) > 0 {
		if err := r.store.WriteEvents(ctx, entries); err != nil {
			return err
		}
	}

	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return nil
}
