package store

import (
	"context"
	"sort"
	"sync"

	"github.com/matthewbaird/reactivation/internal/types"
)

// MemoryStore implements Store using in-memory maps.
// Intended for demos and testing, no SQLite file required.
type MemoryStore struct {
	mu       sync.RWMutex
	features map[string]types.FeatureRow
	rankings []types.RankingRun
	reports  map[string]types.AnalysisResult
	events   map[string][]types.EventEntry
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		features: make(map[string]types.FeatureRow),
		reports:  make(map[string]types.AnalysisResult),
		events:   make(map[string][]types.EventEntry),
	}
}

func (s *MemoryStore) SaveFeatures(_ context.Context, rows []types.FeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.features[r.WellID] = r
	}
	return nil
}

func (s *MemoryStore) FeaturesByWell(_ context.Context, wellIDs []string) (map[string]types.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.FeatureRow, len(wellIDs))
	for _, id := range wellIDs {
		if r, ok := s.features[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveRanking(_ context.Context, run types.RankingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.Rows = append([]types.FeatureRow(nil), run.Rows...)
	s.rankings = append(s.rankings, run)
	return nil
}

func (s *MemoryStore) LatestRanking(_ context.Context) (types.RankingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.rankings) == 0 {
		return types.RankingRun{}, ErrNotFound
	}
	latest := s.rankings[0]
	for _, r := range s.rankings[1:] {
		if !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (s *MemoryStore) SaveReport(_ context.Context, result types.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[ReportKey(result)] = result
	return nil
}

func (s *MemoryStore) Report(_ context.Context, wellKey string) (types.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[wellKey]
	if !ok {
		return types.AnalysisResult{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) ListReports(_ context.Context, opts ListOptions) ([]types.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type keyed struct {
		key string
		r   types.AnalysisResult
	}
	var matched []keyed
	for k, r := range s.reports {
		if opts.Category != "" && r.Category != opts.Category {
			continue
		}
		if r.Score < opts.MinScore {
			continue
		}
		matched = append(matched, keyed{k, r})
	}

	// Sort by score DESC, well key ASC.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].r.Score != matched[j].r.Score {
			return matched[i].r.Score > matched[j].r.Score
		}
		return matched[i].key < matched[j].key
	})

	if limit := opts.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]types.AnalysisResult, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.r)
	}
	return out, nil
}

func (s *MemoryStore) DeleteReport(_ context.Context, wellKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[wellKey]; !ok {
		return ErrNotFound
	}
	delete(s.reports, wellKey)
	return nil
}

func (s *MemoryStore) WriteEvents(_ context.Context, entries []types.EventEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if s.hasEvent(e.WellKey, e.EventID) {
			continue
		}
		e.OccurredAt = e.OccurredAt.UTC()
		s.events[e.WellKey] = append(s.events[e.WellKey], e)
	}
	return nil
}

func (s *MemoryStore) hasEvent(wellKey, eventID string) bool {
	for _, e := range s.events[wellKey] {
		if e.EventID == eventID {
			return true
		}
	}
	return false
}

func (s *MemoryStore) EventsByWell(_ context.Context, wellKey string, limit int) ([]types.EventEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := append([]types.EventEntry(nil), s.events[wellKey]...)

	// Sort by occurred_at DESC.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	if n := eventLimit(limit); len(matched) > n {
		matched = matched[:n]
	}
	return matched, nil
}
