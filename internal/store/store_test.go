package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/reactivation/internal/types"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewSQLiteStore(db)
	require.NoError(t, s.CreateTables(context.Background()))
	return s
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func report(api string, cat types.CategoryCode, score int) types.AnalysisResult {
	return types.AnalysisResult{
		ID:           "r-" + api,
		Category:     cat,
		CategoryName: string(cat),
		Score:        score,
		Analysis:     "test",
		Well:         types.WellInfo{API: api},
		AnalyzedAt:   base,
	}
}

func TestStore_FeaturesUpsert(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.SaveFeatures(ctx, []types.FeatureRow{
			{WellID: "w1", API: "3500100001", Gas24M: 100},
			{WellID: "w2", Gas24M: 200},
		}))
		require.NoError(t, s.SaveFeatures(ctx, []types.FeatureRow{{WellID: "w1", Gas24M: 150}}))

		got, err := s.FeaturesByWell(ctx, []string{"w1", "w2", "missing"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 150.0, got["w1"].Gas24M)
		assert.Equal(t, 200.0, got["w2"].Gas24M)
	})
}

func TestStore_FeaturesByWellAcrossBatches(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rows := make([]types.FeatureRow, 0, 620)
		ids := make([]string, 0, 621)
		for i := range 620 {
			id := fmt.Sprintf("w%03d", i)
			rows = append(rows, types.FeatureRow{WellID: id, Gas24M: float64(i)})
			ids = append(ids, id)
		}
		require.NoError(t, s.SaveFeatures(ctx, rows))

		got, err := s.FeaturesByWell(ctx, append(ids, "missing"))
		require.NoError(t, err)
		require.Len(t, got, 620)
		assert.Equal(t, 619.0, got["w619"].Gas24M)

		got, err = s.FeaturesByWell(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStore_LatestRanking(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.LatestRanking(ctx)
		assert.True(t, errors.Is(err, ErrNotFound))

		older := types.RankingRun{ID: "a", AsOf: base, CreatedAt: base, Profile: "default",
			Rows: []types.FeatureRow{{WellID: "w1", Rank: 1}}}
		newer := types.RankingRun{ID: "b", AsOf: base, CreatedAt: base.Add(time.Hour), Profile: "recent",
			Rows: []types.FeatureRow{{WellID: "w2", Rank: 1}, {WellID: "w1", Rank: 2}}}
		require.NoError(t, s.SaveRanking(ctx, newer))
		require.NoError(t, s.SaveRanking(ctx, older))

		got, err := s.LatestRanking(ctx)
		require.NoError(t, err)
		assert.Equal(t, "b", got.ID)
		assert.Equal(t, "recent", got.Profile)
		require.Len(t, got.Rows, 2)
		assert.Equal(t, "w2", got.Rows[0].WellID)
		assert.True(t, got.CreatedAt.Equal(newer.CreatedAt))
	})
}

func TestStore_Reports(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.SaveReport(ctx, report("3500100001", types.CategoryHighPotential, 95)))
		require.NoError(t, s.SaveReport(ctx, report("3500100002", types.CategoryLowPotential, 20)))
		require.NoError(t, s.SaveReport(ctx, report("3500100003", types.CategorySurgePotential, 85)))
		require.NoError(t, s.SaveReport(ctx, report("3500100004", types.CategoryLowPotential, 20)))

		got, err := s.Report(ctx, "3500100003")
		require.NoError(t, err)
		assert.Equal(t, 85, got.Score)
		assert.True(t, got.AnalyzedAt.Equal(base))

		_, err = s.Report(ctx, "nope")
		assert.True(t, errors.Is(err, ErrNotFound))

		all, err := s.ListReports(ctx, DefaultListOptions())
		require.NoError(t, err)
		var keys []string
		for _, r := range all {
			keys = append(keys, r.Well.API)
		}
		assert.Equal(t, []string{"3500100001", "3500100003", "3500100002", "3500100004"}, keys)

		low, err := s.ListReports(ctx, ListOptions{Category: types.CategoryLowPotential})
		require.NoError(t, err)
		assert.Len(t, low, 2)

		top, err := s.ListReports(ctx, ListOptions{MinScore: 85, Limit: 1})
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, 95, top[0].Score)
	})
}

func TestStore_ReportReplaceAndDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.SaveReport(ctx, report("3500100001", types.CategoryLowPotential, 20)))
		require.NoError(t, s.SaveReport(ctx, report("3500100001", types.CategoryHighPotential, 95)))

		all, err := s.ListReports(ctx, DefaultListOptions())
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, types.CategoryHighPotential, all[0].Category)

		require.NoError(t, s.DeleteReport(ctx, "3500100001"))
		assert.True(t, errors.Is(s.DeleteReport(ctx, "3500100001"), ErrNotFound))
		_, err = s.Report(ctx, "3500100001")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_ReportKeyFallsBackToID(t *testing.T) {
	r := types.AnalysisResult{ID: "abc"}
	assert.Equal(t, "abc", ReportKey(r))
	r.Well.WellID = "W-7"
	assert.Equal(t, "W-7", ReportKey(r))
	r.Well.API = "3500100001"
	assert.Equal(t, "3500100001", ReportKey(r))
}

func TestStore_Events(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		entry := func(id, well string, minutes int) types.EventEntry {
			return types.EventEntry{
				EventID:    id,
				EventType:  "well_analyzed",
				OccurredAt: base.Add(time.Duration(minutes) * time.Minute),
				WellKey:    well,
				Summary:    "summary " + id,
				Category:   "analysis",
				Payload:    []byte(`{"score":42}`),
			}
		}
		require.NoError(t, s.WriteEvents(ctx, []types.EventEntry{
			entry("e1", "w1", 0),
			entry("e2", "w1", 10),
			entry("e3", "w2", 5),
		}))
		// Re-delivery of an event is ignored.
		require.NoError(t, s.WriteEvents(ctx, []types.EventEntry{entry("e1", "w1", 0)}))

		got, err := s.EventsByWell(ctx, "w1", 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "e2", got[0].EventID)
		assert.Equal(t, "e1", got[1].EventID)
		assert.Equal(t, "w1", got[0].WellKey)
		assert.True(t, got[0].OccurredAt.Equal(base.Add(10*time.Minute)))
		assert.JSONEq(t, `{"score":42}`, string(got[0].Payload))

		limited, err := s.EventsByWell(ctx, "w1", 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		none, err := s.EventsByWell(ctx, "w9", 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestListOptions_Limit(t *testing.T) {
	assert.Equal(t, 100, ListOptions{}.limit())
	assert.Equal(t, 100, ListOptions{Limit: 1000}.limit())
	assert.Equal(t, 25, ListOptions{Limit: 25}.limit())
}
