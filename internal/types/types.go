// Package types provides the Go structs shared between the scoring engine,
// the ranking layer, the artifact store and the HTTP surface. Everything here
// is plain data with JSON tags so results can be serialized without adapters.
package types

import (
	"encoding/json"
	"time"
)

// CategoryCode identifies a reactivation category.
type CategoryCode string

const (
	CategoryHighPotential    CategoryCode = "HIGH_POTENTIAL"
	CategorySurgePotential   CategoryCode = "SURGE_POTENTIAL"
	CategoryDecliningViable  CategoryCode = "DECLINING_VIABLE"
	CategorySporadicStrong   CategoryCode = "SPORADIC_STRONG"
	CategorySporadicModerate CategoryCode = "SPORADIC_MODERATE"
	CategoryLowPotential     CategoryCode = "LOW_POTENTIAL"
	CategoryNoProduction     CategoryCode = "NO_PRODUCTION"
	CategoryNoData           CategoryCode = "NO_DATA"
)

// Trend is the qualitative production trend label.
type Trend string

const (
	TrendIncreasing       Trend = "INCREASING"
	TrendDeclining        Trend = "DECLINING"
	TrendStable           Trend = "STABLE"
	TrendInsufficientData Trend = "INSUFFICIENT_DATA"
)

// Priority is a business priority tier derived from a score.
type Priority string

const (
	PriorityImmediate Priority = "IMMEDIATE"
	PriorityHigh      Priority = "HIGH"
	PriorityModerate  Priority = "MODERATE"
	PriorityLow       Priority = "LOW"
)

// WellInfo is optional well metadata passed through to the output unchanged.
type WellInfo struct {
	WellID    string            `json:"well_id,omitempty"`
	API       string            `json:"api,omitempty"`
	API14     string            `json:"api14,omitempty"`
	Name      string            `json:"name,omitempty"`
	Status    string            `json:"status,omitempty"`
	WellType  string            `json:"well_type,omitempty"`
	Operator  string            `json:"operator,omitempty"`
	County    string            `json:"county,omitempty"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Key returns the identifier used to file reports: API number, then well ID.
func (w WellInfo) Key() string {
	if w.API != "" {
		return w.API
	}
	return w.WellID
}

// PreShutIn holds statistics over the 12 months leading up to the last
// producing month.
type PreShutIn struct {
	AvgMCF          float64    `json:"avg_mcf"`
	PeakMCF         float64    `json:"peak_mcf"`
	CV              float64    `json:"cv"`
	NonzeroFraction float64    `json:"nonzero_fraction"`
	LastToPeakRatio float64    `json:"last_to_peak_ratio"`
	RateMCFPerDay   float64    `json:"rate_mcf_d"`
	AbruptStop      float64    `json:"abrupt_stop_flag"`
	LastNonzeroDate *time.Time `json:"last_nonzero_date,omitempty"`
}

// ProductionMetrics is the full feature set computed for one well.
type ProductionMetrics struct {
	TotalMonths         int        `json:"total_months"`
	MaxProductionEver   float64    `json:"max_production_ever"`
	TotalProduction     float64    `json:"total_production"`
	AvgProduction       float64    `json:"avg_production"`
	FirstProductionDate *time.Time `json:"first_production_date,omitempty"`
	LastProductionDate  *time.Time `json:"last_production_date,omitempty"`
	ProductionSpanYears float64    `json:"production_span_years"`

	RecentMonthsAnalyzed int     `json:"recent_months_analyzed"`
	RecentMaxProduction  float64 `json:"recent_max_production"`
	RecentAvgProduction  float64 `json:"recent_avg_production"`
	Last6MonthsAvg       float64 `json:"last_6_months_avg"`
	MonthsAboveHigh      int     `json:"months_above_high"`
	MonthsAboveSurge     int     `json:"months_above_surge"`
	MonthsAboveViable    int     `json:"months_above_viable"`

	Gas12M float64 `json:"gas_12m"`
	Gas24M float64 `json:"gas_24m"`
	Gas36M float64 `json:"gas_36m"`

	MonthsSinceProduction float64 `json:"months_since_production"`
	DataCoverage          float64 `json:"data_coverage"`

	CV12M              float64 `json:"cv_12m"`
	NonzeroFraction12M float64 `json:"nonzero_fraction_12m"`
	LastToPeakRatio12M float64 `json:"last_to_peak_ratio_12m"`
	ConsistencyScore   float64 `json:"consistency_score"`

	RateMCFPerDay float64 `json:"rate_mcf_d"`
	FitQuality    float64 `json:"fit_quality"`

	PreShutIn PreShutIn `json:"pre_shut_in"`
	Trend     Trend     `json:"production_trend"`

	GasAllTime        float64 `json:"gas_all_time"`
	NonzeroMonthsEver int     `json:"nonzero_months_ever"`
}

// Recommendation is the fixed business guidance attached to a score band.
type Recommendation struct {
	Priority   Priority `json:"priority"`
	Action     string   `json:"action"`
	Timeline   string   `json:"timeline"`
	Investment string   `json:"investment"`
	RiskLevel  string   `json:"risk_level"`
	NextSteps  []string `json:"next_steps"`
}

// AnalysisResult is the per-well output of the scoring pipeline.
type AnalysisResult struct {
	ID             string             `json:"id"`
	Category       CategoryCode       `json:"category"`
	CategoryName   string             `json:"category_name"`
	Score          int                `json:"reactivation_score"`
	Analysis       string             `json:"analysis"`
	Metrics        *ProductionMetrics `json:"metrics,omitempty"`
	Recommendation Recommendation     `json:"business_recommendations"`
	Well           WellInfo           `json:"well_info"`
	AnalyzedAt     time.Time          `json:"analysis_date"`
}

// FeatureRow is the per-well input to batch ranking. Score and penalties are
// only populated by the ranking layer.
type FeatureRow struct {
	WellID string `json:"well_id"`
	API    string `json:"api,omitempty"`
	Name   string `json:"name,omitempty"`

	Gas12M             float64 `json:"gas_12m"`
	Gas24M             float64 `json:"gas_24m"`
	Gas36M             float64 `json:"gas_36m"`
	CV12M              float64 `json:"cv_12m"`
	NonzeroFraction12M float64 `json:"nonzero_fraction_12m"`
	LastToPeakRatio12M float64 `json:"last_to_peak_ratio_12m"`
	DataCoverage       float64 `json:"data_coverage"`
	ConsistencyScore   float64 `json:"consistency_score"`

	MonthsSinceProduction float64    `json:"months_since_production"`
	LastProductionDate    *time.Time `json:"last_production_date,omitempty"`

	RateMCFPerDay float64 `json:"rate_mcf_d"`
	FitQuality    float64 `json:"fit_quality"`

	PreShutIn PreShutIn `json:"pre_shut_in"`

	GasAllTime        float64 `json:"gas_all_time"`
	NonzeroMonthsEver int     `json:"nonzero_months_ever"`

	PenaltyLongShutIn float64 `json:"penalty_long_shut_in"`
	PenaltyErratic    float64 `json:"penalty_erratic"`
	Score             float64 `json:"score"`
	Rank              int     `json:"rank"`
}

// RankingRun is one persisted ranking of a batch of wells.
type RankingRun struct {
	ID        string       `json:"id"`
	AsOf      time.Time    `json:"as_of"`
	CreatedAt time.Time    `json:"created_at"`
	Profile   string       `json:"profile,omitempty"`
	Rows      []FeatureRow `json:"rows"`
}

// ScoreStatistics summarizes the score distribution of a batch.
type ScoreStatistics struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    int     `json:"max"`
	Min    int     `json:"min"`
}

// PriorityTargets lists the wells in the two top priority tiers.
type PriorityTargets struct {
	ImmediateCount int      `json:"immediate_count"`
	HighCount      int      `json:"high_count"`
	ImmediateWells []string `json:"immediate_wells"`
	HighWells      []string `json:"high_wells"`
}

// BatchSummary is the aggregate view over many analysis results.
type BatchSummary struct {
	TotalWells        int                  `json:"total_wells_analyzed"`
	CategoryBreakdown map[CategoryCode]int `json:"category_breakdown"`
	ScoreStatistics   ScoreStatistics      `json:"score_statistics"`
	PriorityTargets   PriorityTargets      `json:"priority_targets"`
	GeneratedAt       time.Time            `json:"analysis_date"`
}

// Thresholds are the production cut-offs (MCF/month) and month counts used by
// the categorization decision list.
type Thresholds struct {
	HighConsistent       float64 `json:"high_consistent"`
	SurgePeak            float64 `json:"surge_peak"`
	ViableMinimum        float64 `json:"viable_minimum"`
	AnalysisMonths       int     `json:"analysis_months"`
	HighConsistentMonths int     `json:"high_consistent_months"`
	SurgeMonths          int     `json:"surge_months"`
	ViableMonths         int     `json:"viable_months"`
}

// EventEntry is one domain event as seen from one well. An event touching
// several wells is stored once per well.
type EventEntry struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	WellKey    string          `json:"well_key"`
	Summary    string          `json:"summary"`
	Category   string          `json:"category"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
