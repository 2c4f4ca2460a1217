package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/reactivation/internal/event"
	"github.com/matthewbaird/reactivation/internal/production"
	"github.com/matthewbaird/reactivation/internal/profile"
	"github.com/matthewbaird/reactivation/internal/reactivation"
	"github.com/matthewbaird/reactivation/internal/registry"
	"github.com/matthewbaird/reactivation/internal/store"
	"github.com/matthewbaird/reactivation/internal/types"
)

var asOf = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// wellRecords returns 12 monthly rows for 2023 with a constant volume.
func wellRecords(id string, gas float64) []production.Record {
	out := make([]production.Record, 12)
	for i := range out {
		out[i] = production.Record{
			"wellId":     id,
			"reportDate": time.Date(2023, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			"wellGas":    gas,
		}
	}
	return out
}

func newPipeline(t *testing.T) (*Pipeline, *store.MemoryStore) {
	t.Helper()
	p, err := profile.Default().Get("")
	require.NoError(t, err)
	s := store.NewMemoryStore()
	pl, err := New(p, s, event.NewStoreRecorder(s), 2)
	require.NoError(t, err)
	return pl, s
}

func TestRank_FromRecords(t *testing.T) {
	ctx := context.Background()
	pl, s := newPipeline(t)

	var records []production.Record
	records = append(records, wellRecords("B", 500)...)
	records = append(records, wellRecords("A", 5000)...)
	records = append(records, wellRecords("C", 0)...)
	records = append(records, production.Record{"wellGas": 10})

	inputs := pl.FromRecords(records)
	require.Len(t, inputs, 3)

	res, err := pl.Rank(ctx, inputs, asOf, 1)
	require.NoError(t, err)

	require.Len(t, res.Run.Rows, 2, "the all-zero well is filtered out")
	assert.Equal(t, "A", res.Run.Rows[0].WellID)
	assert.Equal(t, 1, res.Run.Rows[0].Rank)
	assert.Equal(t, "B", res.Run.Rows[1].WellID)
	assert.Equal(t, "default", res.Run.Profile)
	assert.True(t, res.Run.AsOf.Equal(asOf))

	require.Len(t, res.Reports, 1)
	assert.Equal(t, types.CategoryHighPotential, res.Reports[0].Category)
	assert.Equal(t, "A", res.Reports[0].Well.WellID)

	latest, err := s.LatestRanking(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Run.ID, latest.ID)

	cached, err := s.FeaturesByWell(ctx, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Len(t, cached, 3, "features are cached for ineligible wells too")

	evts, err := s.EventsByWell(ctx, "A", 10)
	require.NoError(t, err)
	var kinds []string
	for _, e := range evts {
		kinds = append(kinds, e.EventType)
	}
	assert.ElementsMatch(t, []string{event.TypeBatchRanked, event.TypeWellAnalyzed}, kinds)
}

func TestRank_NoTopN(t *testing.T) {
	pl, _ := newPipeline(t)
	res, err := pl.Rank(context.Background(), pl.FromRecords(wellRecords("A", 800)), asOf, 0)
	require.NoError(t, err)
	assert.Len(t, res.Run.Rows, 1)
	assert.Empty(t, res.Reports)
}

func TestJoin_MatchesByAPI(t *testing.T) {
	pl, _ := newPipeline(t)
	wells := []registry.Well{
		{API: "35-001-00001", Name: "Alpha"},
		{API: "35001000020000", Name: "Bravo"},
		{API: "3500100003", Name: "Dry"},
	}
	for i := range wells {
		wells[i].Normalize()
	}

	var records []production.Record
	records = append(records, wellRecords("3500100001", 5000)...)
	records = append(records, wellRecords("35001000020000", 700)...)

	inputs := pl.Join(wells, records)
	require.Len(t, inputs, 3)
	assert.Equal(t, "3500100001", inputs[0].Well.API)
	assert.Len(t, inputs[0].Series.Points, 12)
	assert.Len(t, inputs[1].Series.Points, 12, "matched through API-14")
	assert.Empty(t, inputs[2].Series.Points)
	assert.Equal(t, "3500100003", inputs[2].Series.WellID)

	res, err := pl.Rank(context.Background(), inputs, asOf, 5)
	require.NoError(t, err)
	require.Len(t, res.Run.Rows, 2)
	assert.Equal(t, "3500100001", res.Run.Rows[0].API)
	require.Len(t, res.Reports, 2)
	assert.Equal(t, "Alpha", res.Reports[0].Well.Name)
}

func TestJoin_ProviderIDAlongsideAPI(t *testing.T) {
	pl, _ := newPipeline(t)
	wells := []registry.Well{{API: "3500100001", Name: "Alpha"}, {API: "35-001-00002", Name: "Bravo"}}
	for i := range wells {
		wells[i].Normalize()
	}

	var records []production.Record
	for _, r := range wellRecords("WB-GUID-1", 5000) {
		r["api10"] = "3500100001"
		records = append(records, r)
	}
	for _, r := range wellRecords("WB-GUID-2", 900) {
		r["api"] = "35-001-00002-00-00"
		records = append(records, r)
	}

	inputs := pl.Join(wells, records)
	require.Len(t, inputs, 2)
	assert.Len(t, inputs[0].Series.Points, 12)
	assert.Equal(t, "3500100001", inputs[0].Series.WellID)
	assert.Len(t, inputs[1].Series.Points, 12, "formatted API resolves to its API-10")
}

func TestAnalyze_RecordsEvent(t *testing.T) {
	ctx := context.Background()
	pl, s := newPipeline(t)
	r := pl.Analyze(ctx, reactivationInput("3500100001", 5000), asOf)
	assert.Equal(t, types.CategoryHighPotential, r.Category)

	evts, err := s.EventsByWell(ctx, "3500100001", 10)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, event.TypeWellAnalyzed, evts[0].EventType)
}

func reactivationInput(api string, gas float64) reactivation.WellInput {
	return reactivation.WellInput{
		Well:    types.WellInfo{API: api},
		Records: wellRecords(api, gas),
	}
}
