package eventbus

import (
	"context"

	"github.com/matthewbaird/reactivation/internal/event"
	"github.com/matthewbaird/reactivation/internal/store"
)

// ReportConsumer files the result carried by each well_analyzed event as the
// well's current report. Other event types are ignored.
type ReportConsumer struct {
	store store.Store
}

// NewReportConsumer creates a consumer writing reports to s.
func NewReportConsumer(s store.Store) *ReportConsumer {
	return &ReportConsumer{store: s}
}

// HandleEvent persists the analysis result of a well_analyzed event.
func (c *ReportConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.EventType != event.TypeWellAnalyzed {
		return nil
	}
	r, err := evt.Result()
	if err != nil {
		return err
	}
	return c.store.SaveReport(ctx, r)
}
