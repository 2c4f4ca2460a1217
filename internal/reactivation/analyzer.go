package reactivation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/matthewbaird/reactivation/internal/features"
	"github.com/matthewbaird/reactivation/internal/production"
	"github.com/matthewbaird/reactivation/internal/types"
)

const (
	noDataText       = "No production data available"
	noProductionText = "No positive production months found"
)

// Config assembles everything the analyzer needs. Zero-valued feature
// windows are replaced by features.DefaultConfig around Thresholds.
type Config struct {
	Thresholds types.Thresholds
	Bands      Bands
	Fields     production.FieldSet
	Features   features.Config
}

// DefaultConfig returns the standard thresholds, bands and field names.
func DefaultConfig() Config {
	th := DefaultThresholds()
	return Config{
		Thresholds: th,
		Bands:      DefaultBands(),
		Fields:     production.DefaultFieldSet(),
		Features:   features.DefaultConfig(th),
	}
}

// Validate reports every structural problem with the configuration at once.
func (c Config) Validate() error {
	var errs []string
	th := c.Thresholds
	if th.HighConsistent < 0 || th.SurgePeak < 0 || th.ViableMinimum < 0 {
		errs = append(errs, "production thresholds must be non-negative")
	}
	if th.AnalysisMonths <= 0 {
		errs = append(errs, "analysis_months must be positive")
	}
	if th.HighConsistentMonths < 0 || th.SurgeMonths < 0 || th.ViableMonths < 0 {
		errs = append(errs, "month counts must be non-negative")
	}
	b := c.Bands
	if b.Moderate < 0 || b.High < b.Moderate || b.Immediate < b.High || b.Immediate > 100 {
		errs = append(errs, "bands must satisfy 0 <= moderate <= high <= immediate <= 100")
	}
	if c.Features.TrailingMonths != 0 {
		if err := c.Features.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("reactivation: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WellInput is one well's raw records plus its pass-through metadata.
type WellInput struct {
	Well    types.WellInfo      `json:"well"`
	Records []production.Record `json:"records"`
}

// Analyzer runs the normalize, feature, classify and recommend stages for
// one well at a time. It holds no mutable state and is safe for concurrent
// use.
type Analyzer struct {
	cfg        Config
	normalizer *production.Normalizer
	engine     *features.Engine
	now        func() time.Time
}

// NewAnalyzer validates cfg and builds an Analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Features.TrailingMonths == 0 {
		cfg.Features = features.DefaultConfig(cfg.Thresholds)
	}
	cfg.Features.Thresholds = cfg.Thresholds
	if len(cfg.Fields.Gas) == 0 {
		cfg.Fields = production.DefaultFieldSet()
	}
	return &Analyzer{
		cfg:        cfg,
		normalizer: production.NewNormalizer(cfg.Fields),
		engine:     features.NewEngine(cfg.Features),
		now:        time.Now,
	}, nil
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Engine returns the feature engine used by the analyzer.
func (a *Analyzer) Engine() *features.Engine { return a.engine }

// Normalizer returns the record normalizer used by the analyzer.
func (a *Analyzer) Normalizer() *production.Normalizer { return a.normalizer }

// AnalyzeWell scores one well from its raw records. It always returns a
// complete result; wells without data or production short-circuit to the
// zero-score categories.
func (a *Analyzer) AnalyzeWell(records []production.Record, info types.WellInfo, asOf time.Time) types.AnalysisResult {
	s, err := a.normalizer.Normalize(records)
	switch {
	case errors.Is(err, production.ErrNoDataAvailable):
		return a.shortCircuit(types.CategoryNoData, noDataText, info)
	case errors.Is(err, production.ErrNoPositiveProduction):
		return a.shortCircuit(types.CategoryNoProduction, noProductionText, info)
	}
	return a.AnalyzeSeries(s, info, asOf)
}

// AnalyzeSeries scores an already normalized series.
func (a *Analyzer) AnalyzeSeries(s production.Series, info types.WellInfo, asOf time.Time) types.AnalysisResult {
	if len(s.Points) == 0 {
		return a.shortCircuit(types.CategoryNoData, noDataText, info)
	}
	if len(s.Producing()) == 0 {
		return a.shortCircuit(types.CategoryNoProduction, noProductionText, info)
	}
	m := a.engine.Compute(s, asOf)
	cat, text := Classify(m, a.cfg.Thresholds)
	return a.result(cat, text, &m, info)
}

// AnalyzeBatch scores every well in order.
func (a *Analyzer) AnalyzeBatch(wells []WellInput, asOf time.Time) []types.AnalysisResult {
	out := make([]types.AnalysisResult, len(wells))
	for i, w := range wells {
		out[i] = a.AnalyzeWell(w.Records, w.Well, asOf)
	}
	return out
}

func (a *Analyzer) shortCircuit(code types.CategoryCode, text string, info types.WellInfo) types.AnalysisResult {
	return a.result(mustLookup(code), text, nil, info)
}

func (a *Analyzer) result(cat Category, text string, m *types.ProductionMetrics, info types.WellInfo) types.AnalysisResult {
	return types.AnalysisResult{
		ID:             uuid.New().String(),
		Category:       cat.Code,
		CategoryName:   cat.Name,
		Score:          cat.Score,
		Analysis:       text,
		Metrics:        m,
		Recommendation: a.cfg.Bands.Recommend(cat.Score),
		Well:           info,
		AnalyzedAt:     a.now().UTC(),
	}
}
