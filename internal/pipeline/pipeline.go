// Package pipeline runs the two-phase batch flow shared by the HTTP API and
// the rankwells command: feature rows for every well, a ranking over the
// batch, then full analysis of the leading wells.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/reactivation/internal/event"
	"github.com/matthewbaird/reactivation/internal/production"
	"github.com/matthewbaird/reactivation/internal/profile"
	"github.com/matthewbaird/reactivation/internal/ranking"
	"github.com/matthewbaird/reactivation/internal/reactivation"
	"github.com/matthewbaird/reactivation/internal/registry"
	"github.com/matthewbaird/reactivation/internal/store"
	"github.com/matthewbaird/reactivation/internal/types"
)

// Pipeline binds a scoring profile to the artifact store and event recorder.
type Pipeline struct {
	profile  profile.Profile
	analyzer *reactivation.Analyzer
	store    store.Store
	recorder event.Recorder
	workers  int
}

// New creates a Pipeline for the given profile. The recorder may be nil.
func New(p profile.Profile, s store.Store, rec event.Recorder, workers int) (*Pipeline, error) {
	a, err := reactivation.NewAnalyzer(p.AnalyzerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating analyzer for profile %s: %w", p.Name, err)
	}
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{profile: p, analyzer: a, store: s, recorder: rec, workers: workers}, nil
}

// Analyzer returns the analyzer configured from the pipeline's profile.
func (p *Pipeline) Analyzer() *reactivation.Analyzer { return p.analyzer }

// Result is the outcome of one batch run.
type Result struct {
	Run     types.RankingRun       `json:"ranking"`
	Reports []types.AnalysisResult `json:"reports,omitempty"`
}

// FromRecords groups a mixed-well record set by well ID and normalizes each
// group into a ranking input. Records without a well ID are dropped.
func (p *Pipeline) FromRecords(records []production.Record) []ranking.Input {
	n := p.analyzer.Normalizer()
	ids, groups := n.GroupByWell(records)
	inputs := make([]ranking.Input, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			log.Printf("pipeline: dropping %d records without a well id", len(groups[id]))
			continue
		}
		inputs = append(inputs, ranking.Input{
			Series: normalizeOrEmpty(n, id, groups[id]),
			Well:   types.WellInfo{WellID: id},
		})
	}
	return inputs
}

// Join pairs registry wells with their production records. A well matches
// the records carrying its API-10, API-14 or raw API number under any
// identifier key. Wells with no production still produce an input so they
// are counted, and fall out at the eligibility filter.
func (p *Pipeline) Join(wells []registry.Well, records []production.Record) []ranking.Input {
	n := p.analyzer.Normalizer()
	groups := indexByID(n, records)
	inputs := make([]ranking.Input, 0, len(wells))
	matched := 0
	for _, w := range wells {
		info := w.WellInfo()
		var recs []production.Record
		for _, k := range []string{w.API10, w.API14, w.API} {
			if k == "" {
				continue
			}
			if g, ok := groups[k]; ok {
				recs = g
				break
			}
		}
		if len(recs) > 0 {
			matched++
		}
		inputs = append(inputs, ranking.Input{
			Series: normalizeOrEmpty(n, info.API, recs),
			Well:   info,
		})
	}
	log.Printf("pipeline: joined %d registry wells, %d with production", len(wells), matched)
	return inputs
}

// indexByID files each record under every identifier it carries, plus the
// API-10 form of any identifier long enough to be an API number.
func indexByID(n *production.Normalizer, records []production.Record) map[string][]production.Record {
	idx := make(map[string][]production.Record)
	for _, r := range records {
		keys := n.WellIDs(r)
		for _, id := range keys {
			if api := registry.NormalizeAPI(id); len(api.Digits) >= 10 && !slices.Contains(keys, api.API10) {
				keys = append(keys, api.API10)
			}
		}
		for _, k := range keys {
			idx[k] = append(idx[k], r)
		}
	}
	return idx
}

func normalizeOrEmpty(n *production.Normalizer, id string, recs []production.Record) production.Series {
	s, err := n.Normalize(recs)
	if err != nil {
		return production.Series{WellID: id}
	}
	s.WellID = id
	return s
}

// Rank computes feature rows, ranks the batch, persists both and, when
// topN > 0, analyzes the leading wells. A zero asOf means now.
func (p *Pipeline) Rank(ctx context.Context, inputs []ranking.Input, asOf time.Time, topN int) (Result, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	rows, err := ranking.BuildRows(ctx, inputs, p.analyzer.Engine(), asOf, p.workers)
	if err != nil {
		return Result{}, err
	}
	if p.store != nil {
		if err := p.store.SaveFeatures(ctx, rows); err != nil {
			return Result{}, err
		}
	}

	ranked, err := ranking.Rank(rows, p.profile.Weights)
	if err != nil {
		return Result{}, fmt.Errorf("ranking batch: %w", err)
	}
	log.Printf("pipeline: ranked %d of %d wells (profile %s)", len(ranked), len(rows), p.profile.Name)

	run := types.RankingRun{
		ID:        uuid.New().String(),
		AsOf:      asOf,
		CreatedAt: time.Now().UTC(),
		Profile:   p.profile.Name,
		Rows:      ranked,
	}
	if p.store != nil {
		if err := p.store.SaveRanking(ctx, run); err != nil {
			return Result{}, err
		}
	}
	p.record(ctx, event.NewBatchRanked(run, topN))

	res := Result{Run: run}
	if topN > 0 {
		res.Reports = p.analyzeTop(ctx, inputs, ranking.Top(ranked, topN), asOf)
	}
	return res, nil
}

// analyzeTop runs the full analysis for each leading row, in rank order.
func (p *Pipeline) analyzeTop(ctx context.Context, inputs []ranking.Input, top []types.FeatureRow, asOf time.Time) []types.AnalysisResult {
	byWell := make(map[string]ranking.Input, len(inputs))
	for _, in := range inputs {
		id := in.Well.WellID
		if id == "" {
			id = in.Series.WellID
		}
		byWell[id] = in
	}

	out := make([]types.AnalysisResult, 0, len(top))
	for _, row := range top {
		in, ok := byWell[row.WellID]
		if !ok {
			continue
		}
		r := p.analyzer.AnalyzeSeries(in.Series, in.Well, asOf)
		p.record(ctx, event.NewWellAnalyzed(r))
		out = append(out, r)
	}
	return out
}

// Analyze scores one well and records the result.
func (p *Pipeline) Analyze(ctx context.Context, in reactivation.WellInput, asOf time.Time) types.AnalysisResult {
	r := p.analyzer.AnalyzeWell(in.Records, in.Well, asOf)
	p.record(ctx, event.NewWellAnalyzed(r))
	return r
}

func (p *Pipeline) record(ctx context.Context, evt event.DomainEvent) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, evt); err != nil {
		log.Printf("pipeline: event recording failed: %v", err)
	}
}
