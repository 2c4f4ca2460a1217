package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/reactivation/internal/event"
	"github.com/matthewbaird/reactivation/internal/pipeline"
	"github.com/matthewbaird/reactivation/internal/profile"
	"github.com/matthewbaird/reactivation/internal/store"
	"github.com/matthewbaird/reactivation/internal/types"
)

func newTestRouter(t *testing.T) (http.Handler, *store.MemoryStore) {
	t.Helper()
	profiles, err := profile.Load("../profile/testdata/profiles.cue")
	require.NoError(t, err)
	s := store.NewMemoryStore()
	return NewRouter(Config{
		Store:    s,
		Recorder: event.NewStoreRecorder(s),
		Profiles: profiles,
		Workers:  2,
		TopN:     1,
	}), s
}

// monthly builds n consecutive monthly records ending December 2023.
func monthly(wellID string, n int, gas float64) []map[string]any {
	out := make([]map[string]any, n)
	start := time.Date(2023, time.Month(12-n+1), 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = map[string]any{
			"wellId":     wellID,
			"reportDate": start.AddDate(0, i, 0).Format("2006-01-02"),
			"wellGas":    gas,
		}
	}
	return out
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListProfiles(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/v1/profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Default  string            `json:"default"`
		Profiles []profile.Profile `json:"profiles"`
	}](t, rec)
	assert.Equal(t, "default", body.Default)
	require.Len(t, body.Profiles, 3)
	assert.Equal(t, "conservative", body.Profiles[0].Name)
}

func TestAnalyzeWell(t *testing.T) {
	h, s := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/v1/wells/analyze", map[string]any{
		"well":    map[string]any{"api": "3500100001", "name": "Alpha"},
		"records": monthly("3500100001", 6, 4500),
		"as_of":   "2024-01-01",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[types.AnalysisResult](t, rec)
	assert.Equal(t, types.CategoryHighPotential, res.Category)
	assert.Equal(t, 95, res.Score)
	assert.Equal(t, types.PriorityImmediate, res.Recommendation.Priority)
	assert.Equal(t, "Alpha", res.Well.Name)

	evts, err := s.EventsByWell(context.Background(), "3500100001", 10)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, event.TypeWellAnalyzed, evts[0].EventType)
}

func TestAnalyzeWell_ProfileChangesCategory(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/v1/wells/analyze", map[string]any{
		"well":    map[string]any{"api": "3500100001"},
		"records": monthly("3500100001", 6, 4500),
		"as_of":   "2024-01",
		"profile": "conservative",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[types.AnalysisResult](t, rec)
	assert.NotEqual(t, types.CategoryHighPotential, res.Category, "4,500 MCF is below the conservative 6,000 cut-off")
}

func TestAnalyzeWell_NoRecords(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/v1/wells/analyze", map[string]any{
		"well": map[string]any{"well_id": "W-1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[types.AnalysisResult](t, rec)
	assert.Equal(t, types.CategoryNoData, res.Category)
	assert.Nil(t, res.Metrics)
}

func TestAnalyzeWell_BadRequests(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/wells/analyze", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/wells/analyze", map[string]any{"profile": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_PROFILE", decode[map[string]string](t, rec)["code"])

	rec = do(t, h, http.MethodPost, "/v1/wells/analyze", map[string]any{"as_of": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_AS_OF", decode[map[string]string](t, rec)["code"])
}

func TestAnalyzeBatch(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/v1/batches/analyze", map[string]any{
		"as_of": "2024-01-01",
		"wells": []map[string]any{
			{"well": map[string]any{"api": "3500100001"}, "records": monthly("3500100001", 6, 4500)},
			{"well": map[string]any{"api": "3500100002"}, "records": monthly("3500100002", 12, 100)},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[struct {
		Results []types.AnalysisResult `json:"results"`
		Summary types.BatchSummary     `json:"summary"`
	}](t, rec)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "3500100001", body.Results[0].Well.API)
	assert.Equal(t, 2, body.Summary.TotalWells)
	assert.Equal(t, 1, body.Summary.PriorityTargets.ImmediateCount)
	assert.Equal(t, []string{"3500100001"}, body.Summary.PriorityTargets.ImmediateWells)

	rec = do(t, h, http.MethodPost, "/v1/batches/analyze", map[string]any{"wells": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankBatchAndLatest(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/v1/rankings/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var records []map[string]any
	records = append(records, monthly("A", 12, 5000)...)
	records = append(records, monthly("B", 12, 300)...)
	records = append(records, monthly("C", 12, 0)...)

	rec = do(t, h, http.MethodPost, "/v1/batches/rank", map[string]any{
		"records": records,
		"as_of":   "2024-01-01",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[pipeline.Result](t, rec)
	require.Len(t, res.Run.Rows, 2)
	assert.Equal(t, "A", res.Run.Rows[0].WellID)
	require.Len(t, res.Reports, 1, "server default top N is 1")

	rec = do(t, h, http.MethodGet, "/v1/rankings/latest?top=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	latest := decode[types.RankingRun](t, rec)
	assert.Equal(t, res.Run.ID, latest.ID)
	assert.Len(t, latest.Rows, 1)

	rec = do(t, h, http.MethodPost, "/v1/batches/rank", map[string]any{"records": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports(t *testing.T) {
	h, s := newTestRouter(t)
	ctx := context.Background()
	for _, r := range []types.AnalysisResult{
		{ID: "1", Category: types.CategoryHighPotential, Score: 95, Well: types.WellInfo{API: "3500100001"}},
		{ID: "2", Category: types.CategoryLowPotential, Score: 20, Well: types.WellInfo{API: "3500100002"}},
	} {
		require.NoError(t, s.SaveReport(ctx, r))
	}

	rec := do(t, h, http.MethodGet, "/v1/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Reports []types.AnalysisResult `json:"reports"`
		Count   int                    `json:"count"`
	}](t, rec)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, 95, list.Reports[0].Score)

	rec = do(t, h, http.MethodGet, "/v1/reports?category=LOW_POTENTIAL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "3500100002")
	assert.NotContains(t, rec.Body.String(), "3500100001")

	rec = do(t, h, http.MethodGet, "/v1/reports?category=BOGUS", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/v1/reports?min_score=high", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/reports/3500100001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 95, decode[types.AnalysisResult](t, rec).Score)

	rec = do(t, h, http.MethodDelete, "/v1/reports/3500100001", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/v1/reports/3500100001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, "/v1/reports/3500100001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/wells/3500100001/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	evts := decode[struct {
		WellKey string             `json:"well_key"`
		Events  []types.EventEntry `json:"events"`
	}](t, rec)
	assert.Equal(t, "3500100001", evts.WellKey)
	require.Len(t, evts.Events, 1)
	assert.Equal(t, event.TypeReportDeleted, evts.Events[0].EventType)
}

func TestWellEvents_Empty(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/v1/wells/unknown/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"events":[]`)
}

type streamMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func TestBatchStream(t *testing.T) {
	h, _ := newTestRouter(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/batches/stream", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	read := func() streamMessage {
		var m streamMessage
		require.NoError(t, wsjson.Read(ctx, conn, &m))
		return m
	}

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "ping", "id": "p1"}))
	pong := read()
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, "p1", pong.RequestID)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": "analyze",
		"id":   "a1",
		"data": map[string]any{
			"as_of": "2024-01-01",
			"wells": []map[string]any{
				{"well": map[string]any{"api": "3500100001"}, "records": monthly("3500100001", 6, 4500)},
				{"well": map[string]any{"api": "3500100002"}},
			},
		},
	}))

	var kinds []string
	for {
		m := read()
		assert.Equal(t, "a1", m.RequestID)
		kinds = append(kinds, m.Type)
		if m.Type == "done" || m.Type == "error" {
			break
		}
	}
	assert.Equal(t, []string{"result", "result", "summary", "done"}, kinds)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "bogus", "id": "x"}))
	errMsg := read()
	assert.Equal(t, "error", errMsg.Type)

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestMiddleware_RecoversPanics(t *testing.T) {
	r := chi.NewRouter()
	useMiddleware(r)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	r.Get("/teapot", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
