// Analysis handlers expose the scoring pipeline over HTTP. They operate on
// the artifact store rather than an ORM client.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/reactivation/internal/event"
	"github.com/matthewbaird/reactivation/internal/pipeline"
	"github.com/matthewbaird/reactivation/internal/production"
	"github.com/matthewbaird/reactivation/internal/profile"
	"github.com/matthewbaird/reactivation/internal/ranking"
	"github.com/matthewbaird/reactivation/internal/reactivation"
	"github.com/matthewbaird/reactivation/internal/store"
	"github.com/matthewbaird/reactivation/internal/types"
)

// AnalysisHandler implements the HTTP handlers for AnalysisService.
type AnalysisHandler struct {
	profiles *profile.Set
	fallback string
	store    store.Store
	recorder event.Recorder
	workers  int
	topN     int
}

// AnalysisConfig configures an AnalysisHandler.
type AnalysisConfig struct {
	Profiles       *profile.Set
	DefaultProfile string
	Store          store.Store
	Recorder       event.Recorder
	Workers        int
	TopN           int
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(cfg AnalysisConfig) *AnalysisHandler {
	if cfg.Profiles == nil {
		cfg.Profiles = profile.Default()
	}
	return &AnalysisHandler{
		profiles: cfg.Profiles,
		fallback: cfg.DefaultProfile,
		store:    cfg.Store,
		recorder: cfg.Recorder,
		workers:  cfg.Workers,
		topN:     cfg.TopN,
	}
}

// pipelineFor builds a pipeline for the named profile; "" selects the
// handler's default profile.
func (h *AnalysisHandler) pipelineFor(name string) (*pipeline.Pipeline, error) {
	if name == "" {
		name = h.fallback
	}
	p, err := h.profiles.Get(name)
	if err != nil {
		return nil, err
	}
	return pipeline.New(p, h.store, h.recorder, h.workers)
}

// HandleListProfiles returns every loaded scoring profile.
// GET /v1/profiles
func (h *AnalysisHandler) HandleListProfiles(w http.ResponseWriter, r *http.Request) {
	names := h.profiles.Names()
	out := make([]profile.Profile, 0, len(names))
	for _, n := range names {
		p, _ := h.profiles.Get(n)
		out = append(out, p)
	}
	def := h.fallback
	if def == "" {
		def = profile.DefaultName
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default":  def,
		"profiles": out,
	})
}

type analyzeWellRequest struct {
	Well    types.WellInfo      `json:"well"`
	Records []production.Record `json:"records"`
	Profile string              `json:"profile,omitempty"`
	AsOf    string              `json:"as_of,omitempty"`
}

// HandleAnalyzeWell scores one well.
// POST /v1/wells/analyze
func (h *AnalysisHandler) HandleAnalyzeWell(w http.ResponseWriter, r *http.Request) {
	var req analyzeWellRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_AS_OF", err.Error())
		return
	}
	pl, err := h.pipelineFor(req.Profile)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	result := pl.Analyze(r.Context(), reactivation.WellInput{Well: req.Well, Records: req.Records}, asOf)
	writeJSON(w, http.StatusOK, result)
}

type analyzeBatchRequest struct {
	Wells   []reactivation.WellInput `json:"wells"`
	Profile string                   `json:"profile,omitempty"`
	AsOf    string                   `json:"as_of,omitempty"`
}

type analyzeBatchResponse struct {
	Results []types.AnalysisResult `json:"results"`
	Summary types.BatchSummary     `json:"summary"`
}

// HandleAnalyzeBatch scores every well in the body and summarizes the batch.
// POST /v1/batches/analyze
func (h *AnalysisHandler) HandleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req analyzeBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if len(req.Wells) == 0 {
		writeError(w, http.StatusBadRequest, "EMPTY_BATCH", "wells must not be empty")
		return
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_AS_OF", err.Error())
		return
	}
	pl, err := h.pipelineFor(req.Profile)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	results := make([]types.AnalysisResult, 0, len(req.Wells))
	for _, in := range req.Wells {
		results = append(results, pl.Analyze(r.Context(), in, asOf))
	}
	summary, err := reactivation.Summarize(results, pl.Analyzer().Config().Bands)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeBatchResponse{Results: results, Summary: summary})
}

type rankBatchRequest struct {
	Records []production.Record `json:"records"`
	Profile string              `json:"profile,omitempty"`
	AsOf    string              `json:"as_of,omitempty"`
	Top     *int                `json:"top,omitempty"`
}

// HandleRankBatch ranks a mixed-well record set and analyzes the leaders.
// POST /v1/batches/rank
func (h *AnalysisHandler) HandleRankBatch(w http.ResponseWriter, r *http.Request) {
	var req rankBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "EMPTY_BATCH", "records must not be empty")
		return
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_AS_OF", err.Error())
		return
	}
	pl, err := h.pipelineFor(req.Profile)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	top := h.topN
	if req.Top != nil {
		top = *req.Top
	}
	res, err := pl.Rank(r.Context(), pl.FromRecords(req.Records), asOf, top)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleLatestRanking returns the most recent ranking run. The optional
// top query parameter truncates the rows.
// GET /v1/rankings/latest
func (h *AnalysisHandler) HandleLatestRanking(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.LatestRanking(r.Context())
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if v := r.URL.Query().Get("top"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			run.Rows = ranking.Top(run.Rows, n)
		}
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleGetReport returns the stored report for one well.
// GET /v1/reports/{wellKey}
func (h *AnalysisHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.Report(r.Context(), chi.URLParam(r, "wellKey"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleDeleteReport removes the stored report for one well.
// DELETE /v1/reports/{wellKey}
func (h *AnalysisHandler) HandleDeleteReport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "wellKey")
	if err := h.store.DeleteReport(r.Context(), key); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if h.recorder != nil {
		if err := h.recorder.Record(r.Context(), event.NewReportDeleted(key)); err != nil {
			storeErrorToHTTP(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListReports lists stored reports, highest score first.
// GET /v1/reports?category=&min_score=&limit=
func (h *AnalysisHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	opts := store.DefaultListOptions()
	q := r.URL.Query()
	if c := q.Get("category"); c != "" {
		if _, ok := reactivation.Lookup(types.CategoryCode(c)); !ok {
			writeError(w, http.StatusBadRequest, "UNKNOWN_CATEGORY", "unknown category: "+c)
			return
		}
		opts.Category = types.CategoryCode(c)
	}
	if v := q.Get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_MIN_SCORE", "min_score must be an integer")
			return
		}
		opts.MinScore = n
	}
	opts.Limit = parseLimit(r, opts.Limit)

	reports, err := h.store.ListReports(r.Context(), opts)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if reports == nil {
		reports = []types.AnalysisResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

// HandleWellEvents returns the event history of one well, newest first.
// GET /v1/wells/{wellKey}/events?limit=
func (h *AnalysisHandler) HandleWellEvents(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "wellKey")
	events, err := h.store.EventsByWell(r.Context(), key, parseLimit(r, 100))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if events == nil {
		events = []types.EventEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"well_key": key,
		"events":   events,
	})
}
