// Package features computes per-well production features from a normalized
// series: trailing-window aggregates, recency, consistency, a pre-shut-in
// profile and a short-term rate proxy.
//
// The rate proxy is a heuristic stand-in for a fitted decline curve: a
// trailing 3-month mean expressed per day. It carries no reservoir physics.
package features

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/matthewbaird/reactivation/internal/production"
	"github.com/matthewbaird/reactivation/internal/types"
)

// MaxCV caps the coefficient of variation; above it a series is simply
// "erratic" and the extra magnitude carries no information.
const MaxCV = 1.5

// Config holds the window lengths and thresholds used by the Engine.
type Config struct {
	Thresholds types.Thresholds

	TrailingMonths  int // calendar months in the trailing window
	RecentMonths    int // nested tail inside the trailing window
	ShortMonths     int // nested tail used for consistency statistics
	PreShutInMonths int
	LastMonths      int // rows in the "last N months" average
	RateWindow      int // rolling-mean length for the rate proxy
	DaysPerMonth    float64

	// RecencySentinel is reported as months-since-production when a well
	// never produced, keeping downstream comparisons numeric.
	RecencySentinel float64
}

// DefaultConfig returns the standard windows around the given thresholds.
func DefaultConfig(th types.Thresholds) Config {
	return Config{
		Thresholds:      th,
		TrailingMonths:  36,
		RecentMonths:    24,
		ShortMonths:     12,
		PreShutInMonths: 12,
		LastMonths:      6,
		RateWindow:      3,
		DaysPerMonth:    30,
		RecencySentinel: 1e9,
	}
}

// Validate checks that every window is usable. The recent and short tails
// nest inside the trailing window.
func (c Config) Validate() error {
	var errs []string
	if c.TrailingMonths <= 0 {
		errs = append(errs, "trailing_months must be positive")
	}
	if c.ShortMonths <= 0 || c.ShortMonths > c.RecentMonths || c.RecentMonths > c.TrailingMonths {
		errs = append(errs, "windows must satisfy 0 < short_months <= recent_months <= trailing_months")
	}
	if c.PreShutInMonths <= 0 {
		errs = append(errs, "pre_shut_in_months must be positive")
	}
	if c.LastMonths <= 0 || c.RateWindow <= 0 {
		errs = append(errs, "last_months and rate_window must be positive")
	}
	if c.DaysPerMonth <= 0 {
		errs = append(errs, "days_per_month must be positive")
	}
	if len(errs) > 0 {
		return eris.Errorf("features: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Engine computes ProductionMetrics. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Compute derives the full metric set for one well. A zero asOf means now.
func (e *Engine) Compute(s production.Series, asOf time.Time) types.ProductionMetrics {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	producing := s.Producing()
	prodVals := gasValues(producing)
	allVals := gasValues(s.Points)

	var m types.ProductionMetrics
	e.basic(&m, producing, prodVals)
	e.analysisWindow(&m, prodVals)
	e.trailing(&m, s.Points)
	m.MonthsSinceProduction = e.recency(producing, asOf)
	m.RateMCFPerDay, m.FitQuality = e.rateProxy(allVals)
	m.PreShutIn = e.preShutIn(s.Points)
	m.ConsistencyScore = ConsistencyScore(m.CV12M, m.NonzeroFraction12M, m.LastToPeakRatio12M)
	m.Trend = e.trend(prodVals)
	m.GasAllTime = sum(allVals)
	m.NonzeroMonthsEver = countPositive(allVals)
	return m
}

// Row computes the ranking feature row for one well.
func (e *Engine) Row(s production.Series, info types.WellInfo, asOf time.Time) types.FeatureRow {
	m := e.Compute(s, asOf)
	wellID := info.WellID
	if wellID == "" {
		wellID = s.WellID
	}
	return types.FeatureRow{
		WellID:                wellID,
		API:                   info.API,
		Name:                  info.Name,
		Gas12M:                m.Gas12M,
		Gas24M:                m.Gas24M,
		Gas36M:                m.Gas36M,
		CV12M:                 m.CV12M,
		NonzeroFraction12M:    m.NonzeroFraction12M,
		LastToPeakRatio12M:    m.LastToPeakRatio12M,
		DataCoverage:          m.DataCoverage,
		ConsistencyScore:      m.ConsistencyScore,
		MonthsSinceProduction: m.MonthsSinceProduction,
		LastProductionDate:    m.LastProductionDate,
		RateMCFPerDay:         m.RateMCFPerDay,
		FitQuality:            m.FitQuality,
		PreShutIn:             m.PreShutIn,
		GasAllTime:            m.GasAllTime,
		NonzeroMonthsEver:     m.NonzeroMonthsEver,
	}
}

// ConsistencyScore blends low variability, production continuity and
// end-of-window strength into [0,1].
func ConsistencyScore(cv, nonzeroFraction, lastToPeak float64) float64 {
	cvComponent := 1 - Clip(cv, 0, MaxCV)/MaxCV
	score := 0.5*cvComponent + 0.25*Clip(nonzeroFraction, 0, 1) + 0.25*Clip(lastToPeak, 0, 1)
	return Clip(score, 0, 1)
}

func (e *Engine) basic(m *types.ProductionMetrics, producing []production.Point, vals []float64) {
	m.TotalMonths = len(producing)
	if len(producing) == 0 {
		return
	}
	m.MaxProductionEver = maxOf(vals)
	m.TotalProduction = sum(vals)
	m.AvgProduction = mean(vals)
	first := producing[0].Date
	last := producing[len(producing)-1].Date
	m.FirstProductionDate = &first
	m.LastProductionDate = &last
	m.ProductionSpanYears = last.Sub(first).Hours() / 24 / 365.25
}

// analysisWindow evaluates the last AnalysisMonths producing rows. Gaps in
// the calendar are skipped, not counted.
func (e *Engine) analysisWindow(m *types.ProductionMetrics, vals []float64) {
	th := e.cfg.Thresholds
	recent := tail(vals, th.AnalysisMonths)
	m.RecentMonthsAnalyzed = len(recent)
	m.RecentMaxProduction = maxOf(recent)
	m.RecentAvgProduction = mean(recent)
	m.Last6MonthsAvg = mean(tail(vals, e.cfg.LastMonths))
	m.MonthsAboveHigh = countAtLeast(recent, th.HighConsistent)
	m.MonthsAboveSurge = countAtLeast(recent, th.SurgePeak)
	m.MonthsAboveViable = countAtLeast(recent, th.ViableMinimum)
}

// trailing computes the calendar window ending at the last dated row, with
// the shorter sums taken as nested row tails of that window.
func (e *Engine) trailing(m *types.ProductionMetrics, points []production.Point) {
	if len(points) == 0 {
		return
	}
	start := monthIndex(points[len(points)-1].Date) - (e.cfg.TrailingMonths - 1)
	var window []float64
	months := make(map[int]struct{})
	for _, p := range points {
		idx := monthIndex(p.Date)
		if idx < start {
			continue
		}
		window = append(window, p.GasMCF)
		months[idx] = struct{}{}
	}

	m.Gas36M = sum(window)
	m.Gas24M = sum(tail(window, e.cfg.RecentMonths))
	short := tail(window, e.cfg.ShortMonths)
	m.Gas12M = sum(short)

	m.CV12M = Clip(ratio(pstd(short), mean(short)), 0, MaxCV)
	m.NonzeroFraction12M = ratio(float64(countPositive(short)), float64(len(short)))
	if len(short) > 0 {
		m.LastToPeakRatio12M = Clip(ratio(short[len(short)-1], maxOf(short)), 0, 1)
	}
	m.DataCoverage = Clip(ratio(float64(len(months)), float64(e.cfg.TrailingMonths)), 0, 1)
}

func (e *Engine) recency(producing []production.Point, asOf time.Time) float64 {
	if len(producing) == 0 {
		return e.cfg.RecencySentinel
	}
	months := MonthsBetween(producing[len(producing)-1].Date, asOf)
	if months < 0 {
		return 0
	}
	return float64(months)
}

// rateProxy returns the final trailing RateWindow mean of the last ShortMonths
// rows as a daily rate, and the positive fraction of those rows as a fit
// quality.
func (e *Engine) rateProxy(vals []float64) (rate, fitQuality float64) {
	last := tail(vals, e.cfg.ShortMonths)
	if len(last) == 0 {
		return 0, 0
	}
	rate = ratio(mean(tail(last, e.cfg.RateWindow)), e.cfg.DaysPerMonth)
	fitQuality = float64(countPositive(last)) / float64(len(last))
	return rate, fitQuality
}

func (e *Engine) preShutIn(points []production.Point) types.PreShutIn {
	lastNZ := -1
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].GasMCF > 0 {
			lastNZ = i
			break
		}
	}
	if lastNZ < 0 {
		return types.PreShutIn{}
	}

	end := points[lastNZ].Date
	start := monthIndex(end) - (e.cfg.PreShutInMonths - 1)
	var window, positive []float64
	for _, p := range points[:lastNZ+1] {
		if monthIndex(p.Date) < start {
			continue
		}
		window = append(window, p.GasMCF)
		if p.GasMCF > 0 {
			positive = append(positive, p.GasMCF)
		}
	}

	peak := maxOf(positive)
	out := types.PreShutIn{
		AvgMCF:          mean(positive),
		PeakMCF:         peak,
		CV:              Clip(ratio(pstd(positive), mean(positive)), 0, MaxCV),
		NonzeroFraction: ratio(float64(len(positive)), float64(len(window))),
		LastToPeakRatio: Clip(ratio(window[len(window)-1], peak), 0, 1),
		RateMCFPerDay:   ratio(mean(tail(positive, e.cfg.RateWindow)), e.cfg.DaysPerMonth),
		LastNonzeroDate: &end,
	}
	if lastNZ < len(points)-1 {
		out.AbruptStop = 1
	}
	return out
}

const (
	trendUp   = 1.10
	trendDown = 0.90
)

func (e *Engine) trend(vals []float64) types.Trend {
	n := len(vals)
	short := e.cfg.ShortMonths
	switch {
	case n < short:
		return types.TrendInsufficientData
	case n >= 2*short:
		return compareMeans(mean(vals[n-short:]), mean(vals[n-2*short:n-short]))
	default:
		half := n / 2
		return compareMeans(mean(vals[n-half:]), mean(vals[:half]))
	}
}

func compareMeans(recent, base float64) types.Trend {
	switch {
	case recent > base*trendUp:
		return types.TrendIncreasing
	case recent < base*trendDown:
		return types.TrendDeclining
	default:
		return types.TrendStable
	}
}

func gasValues(points []production.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.GasMCF
	}
	return out
}
