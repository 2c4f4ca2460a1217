// Package store persists the artifacts produced around the scoring core:
// cached feature rows, ranking runs, per-well analysis reports and the
// per-well event stream.
package store

import (
	"context"
	"errors"

	"github.com/matthewbaird/reactivation/internal/types"
)

// ErrNotFound is returned when a requested artifact does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the interface for reading and writing analysis artifacts.
type Store interface {
	// SaveFeatures upserts feature rows keyed by well ID.
	SaveFeatures(ctx context.Context, rows []types.FeatureRow) error

	// FeaturesByWell returns the cached rows for the given well IDs. Unknown
	// IDs are absent from the map.
	FeaturesByWell(ctx context.Context, wellIDs []string) (map[string]types.FeatureRow, error)

	// SaveRanking stores a ranking run.
	SaveRanking(ctx context.Context, run types.RankingRun) error

	// LatestRanking returns the most recently created ranking run.
	LatestRanking(ctx context.Context) (types.RankingRun, error)

	// SaveReport upserts an analysis report under its well key.
	SaveReport(ctx context.Context, result types.AnalysisResult) error

	// Report returns the report filed under wellKey.
	Report(ctx context.Context, wellKey string) (types.AnalysisResult, error)

	// ListReports returns reports ordered by score, highest first.
	ListReports(ctx context.Context, opts ListOptions) ([]types.AnalysisResult, error)

	// DeleteReport removes the report filed under wellKey.
	DeleteReport(ctx context.Context, wellKey string) error

	// WriteEvents appends event entries; duplicates are ignored.
	WriteEvents(ctx context.Context, entries []types.EventEntry) error

	// EventsByWell returns a well's events, newest first.
	EventsByWell(ctx context.Context, wellKey string, limit int) ([]types.EventEntry, error)
}

// ListOptions filters report listings.
type ListOptions struct {
	Category types.CategoryCode // exact category match
	MinScore int                // minimum reactivation score
	Limit    int                // max results (default: 100, max: 500)
}

// DefaultListOptions returns ListOptions with the default limit.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 100}
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 100
	}
	return o.Limit
}

func eventLimit(n int) int {
	if n <= 0 || n > 500 {
		return 100
	}
	return n
}

// ReportKey is the key a result is filed under: the well's API number or
// well ID, falling back to the result ID.
func ReportKey(r types.AnalysisResult) string {
	if k := r.Well.Key(); k != "" {
		return k
	}
	return r.ID
}
