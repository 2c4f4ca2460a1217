package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/reactivation/internal/event"
	"github.com/matthewbaird/reactivation/internal/store"
	"github.com/matthewbaird/reactivation/internal/types"
)

func TestBus_DispatchesToAllSubscribersInOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	record := func(name string) Handler {
		return HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+":"+evt.ID)
			return nil
		})
	}

	bus := New(8)
	bus.Subscribe("a", record("a"))
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	bus.Subscribe("b", record("b"))
	bus.Start(context.Background())

	bus.Publish(context.Background(), event.DomainEvent{ID: "1"})
	bus.Publish(context.Background(), event.DomainEvent{ID: "2"})
	bus.Stop()

	assert.Equal(t, []string{"a:1", "b:1", "a:2", "b:2"}, got)
	assert.Equal(t, Stats{Published: 2, Failed: 2}, bus.Stats())
}

func TestBus_SubscribeFiltersByType(t *testing.T) {
	var got []string
	bus := New(8)
	bus.Subscribe("analyzed", HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		got = append(got, evt.ID)
		return nil
	}), event.TypeWellAnalyzed)
	bus.Start(context.Background())

	bus.Publish(context.Background(), event.DomainEvent{ID: "1", EventType: event.TypeBatchRanked})
	bus.Publish(context.Background(), event.DomainEvent{ID: "2", EventType: event.TypeWellAnalyzed})
	bus.Publish(context.Background(), event.DomainEvent{ID: "3", EventType: event.TypeReportDeleted})
	bus.Stop()

	assert.Equal(t, []string{"2"}, got)
}

func TestBus_DrainsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := New(4)
	var delivered []string
	bus.Subscribe("ids", HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		delivered = append(delivered, evt.ID)
		return nil
	}))
	bus.Publish(ctx, event.DomainEvent{ID: "1"})
	bus.Publish(ctx, event.DomainEvent{ID: "2"})
	cancel()
	bus.Start(ctx)
	bus.Stop()

	assert.Equal(t, []string{"1", "2"}, delivered)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1)
	calls := 0
	bus.Subscribe("count", HandlerFunc(func(context.Context, event.DomainEvent) error {
		calls++
		return nil
	}))
	// Not started yet, so the second publish finds the buffer full.
	bus.Publish(context.Background(), event.DomainEvent{ID: "1"})
	bus.Publish(context.Background(), event.DomainEvent{ID: "2"})

	bus.Start(context.Background())
	bus.Stop()
	assert.Equal(t, 1, calls)
	assert.Equal(t, Stats{Published: 1, Dropped: 1}, bus.Stats())
}

func TestBus_StopIsIdempotent(t *testing.T) {
	bus := New(0)
	bus.Start(context.Background())
	bus.Stop()
	bus.Stop()
}

func TestReportConsumer(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	bus := New(4)
	bus.Subscribe("log", NewLogConsumer())
	bus.Subscribe("reports", NewReportConsumer(s), event.TypeWellAnalyzed)
	bus.Start(ctx)

	result := types.AnalysisResult{
		ID:       "r1",
		Category: types.CategorySurgePotential,
		Score:    85,
		Well:     types.WellInfo{API: "3500100001"},
	}
	bus.Publish(ctx, event.NewWellAnalyzed(result))
	bus.Publish(ctx, event.NewReportDeleted("3500100009"))
	bus.Stop()

	got, err := s.Report(ctx, "3500100001")
	require.NoError(t, err)
	assert.Equal(t, 85, got.Score)
	assert.Equal(t, types.CategorySurgePotential, got.Category)

	_, err = s.Report(ctx, "3500100009")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestReportConsumer_BadPayload(t *testing.T) {
	c := NewReportConsumer(store.NewMemoryStore())
	err := c.HandleEvent(context.Background(), event.DomainEvent{
		ID:        "x",
		EventType: event.TypeWellAnalyzed,
		Payload:   []byte("not json"),
	})
	assert.Error(t, err)
}
