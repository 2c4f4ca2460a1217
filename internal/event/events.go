package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/reactivation/internal/types"
)

// Event types.
const (
	TypeWellAnalyzed  = "well_analyzed"
	TypeBatchRanked   = "batch_ranked"
	TypeReportDeleted = "report_deleted"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID         string
	EventType  string
	OccurredAt time.Time
	Wells      []string // well keys the event is indexed under
	Summary    string
	Category   string // "analysis", "ranking", "report"
	Weight     string // "critical", "major", "minor", "info"
	Payload    json.RawMessage
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// weightFor maps a priority tier onto an event weight.
func weightFor(p types.Priority) string {
	switch p {
	case types.PriorityImmediate:
		return "critical"
	case types.PriorityHigh:
		return "major"
	case types.PriorityModerate:
		return "minor"
	default:
		return "info"
	}
}

func wellKey(r types.AnalysisResult) string {
	if k := r.Well.Key(); k != "" {
		return k
	}
	return r.ID
}

// ── Analysis events ──────────────────────────────────────────────────────────

// NewWellAnalyzed wraps a single-well analysis result. The payload is the
// full result so consumers can persist it without another lookup.
func NewWellAnalyzed(r types.AnalysisResult) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeWellAnalyzed,
		OccurredAt: time.Now().UTC(),
		Wells:      []string{wellKey(r)},
		Summary:    fmt.Sprintf("Well %s scored %d (%s)", wellKey(r), r.Score, r.Category),
		Category:   "analysis",
		Weight:     weightFor(r.Recommendation.Priority),
		Payload:    mustJSON(r),
	}
}

// Result decodes the analysis result carried by a well_analyzed event.
func (e DomainEvent) Result() (types.AnalysisResult, error) {
	var r types.AnalysisResult
	if e.EventType != TypeWellAnalyzed {
		return r, fmt.Errorf("event %s is %s, not %s", e.ID, e.EventType, TypeWellAnalyzed)
	}
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		return r, fmt.Errorf("decoding %s payload: %w", e.EventType, err)
	}
	return r, nil
}

// ── Ranking events ───────────────────────────────────────────────────────────

// BatchRankedPayload carries event-specific data for BatchRanked.
type BatchRankedPayload struct {
	RunID     string    `json:"run_id"`
	AsOf      time.Time `json:"as_of"`
	Profile   string    `json:"profile,omitempty"`
	WellCount int       `json:"well_count"`
	TopWells  []string  `json:"top_wells"`
}

// NewBatchRanked indexes a ranking run under each of its top wells. Only
// the first topN rows are attached to keep per-well histories small.
func NewBatchRanked(run types.RankingRun, topN int) DomainEvent {
	if topN <= 0 || topN > len(run.Rows) {
		topN = len(run.Rows)
	}
	wells := make([]string, 0, topN)
	for _, row := range run.Rows[:topN] {
		wells = append(wells, rowKey(row))
	}
	summary := fmt.Sprintf("Ranked %d wells", len(run.Rows))
	if topN > 0 {
		summary += fmt.Sprintf(", top %s", wells[0])
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeBatchRanked,
		OccurredAt: time.Now().UTC(),
		Wells:      wells,
		Summary:    summary,
		Category:   "ranking",
		Weight:     "info",
		Payload: mustJSON(BatchRankedPayload{
			RunID:     run.ID,
			AsOf:      run.AsOf,
			Profile:   run.Profile,
			WellCount: len(run.Rows),
			TopWells:  wells,
		}),
	}
}

func rowKey(r types.FeatureRow) string {
	if r.API != "" {
		return r.API
	}
	return r.WellID
}

// ── Report events ────────────────────────────────────────────────────────────

// NewReportDeleted records the removal of a stored report.
func NewReportDeleted(wellKey string) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeReportDeleted,
		OccurredAt: time.Now().UTC(),
		Wells:      []string{wellKey},
		Summary:    fmt.Sprintf("Report for well %s deleted", wellKey),
		Category:   "report",
		Weight:     "info",
	}
}
