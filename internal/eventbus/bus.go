// Package eventbus fans analysis and ranking events out to in-process
// consumers: the access log and the report writer. The recorder journals an
// event per well first, then hands it to the bus, so a consumer failure never
// loses the journal entry.
package eventbus

import (
	"context"
	"log"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/matthewbaird/reactivation/internal/event"
)

// Handler consumes one domain event.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.DomainEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.DomainEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	return f(ctx, evt)
}

// Stats counts what went through the bus since it was created.
type Stats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

// Bus queues events on a buffered channel and delivers them from a single
// goroutine, one subscriber after the other in subscription order. Report
// writes therefore never race each other on the SQLite connection.
type Bus struct {
	mu          sync.RWMutex
	subscribers []subscription
	queue       chan event.DomainEvent
	done        chan struct{}
	closeOnce   sync.Once

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

type subscription struct {
	name    string
	types   []string
	handler Handler
}

func (s subscription) wants(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// New creates a bus holding up to bufSize undelivered events.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		queue: make(chan event.DomainEvent, bufSize),
		done:  make(chan struct{}),
	}
}

// Subscribe registers a named handler for the given event types, or for
// every event when none are given. Call it before Start.
func (b *Bus) Subscribe(name string, h Handler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subscription{name: name, types: eventTypes, handler: h})
}

// Publish enqueues evt without blocking. A full queue drops the event; the
// journal entry written by the recorder is unaffected.
func (b *Bus) Publish(_ context.Context, evt event.DomainEvent) {
	select {
	case b.queue <- evt:
		b.published.Add(1)
	default:
		b.dropped.Add(1)
		log.Printf("eventbus: queue full, dropping %s %s", evt.EventType, evt.ID)
	}
}

// Start launches the delivery goroutine. Once ctx is done, whatever is
// already queued is still delivered before the goroutine exits.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.queue:
				if !ok {
					return
				}
				b.deliver(ctx, evt)
			case <-ctx.Done():
				b.drain(context.WithoutCancel(ctx))
				return
			}
		}
	}()
}

func (b *Bus) drain(ctx context.Context) {
	for {
		select {
		case evt, ok := <-b.queue:
			if !ok {
				return
			}
			b.deliver(ctx, evt)
		default:
			return
		}
	}
}

// Stop closes the queue and waits for queued events to be delivered.
// Publish must not be called after Stop.
func (b *Bus) Stop() {
	b.closeOnce.Do(func() { close(b.queue) })
	<-b.done
}

// Stats returns the current counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
		Failed:    b.failed.Load(),
	}
}

func (b *Bus) deliver(ctx context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.wants(evt.EventType) {
			continue
		}
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.failed.Add(1)
			log.Printf("eventbus: %s failed on %s %s: %v", s.name, evt.EventType, evt.ID, err)
		}
	}
}
