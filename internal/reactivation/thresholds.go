package reactivation

import (
	"github.com/matthewbaird/reactivation/internal/types"
)

// DefaultThresholds returns the standard production cut-offs: 4,000 MCF for
// consistent producers, 20,000 MCF for surges, 1,000 MCF as the viability
// floor, evaluated over the last 24 producing months.
func DefaultThresholds() types.Thresholds {
	return types.Thresholds{
		HighConsistent:       4000,
		SurgePeak:            20000,
		ViableMinimum:        1000,
		AnalysisMonths:       24,
		HighConsistentMonths: 6,
		SurgeMonths:          1,
		ViableMonths:         3,
	}
}

// Bands are the score breakpoints for recommendation priority tiers.
type Bands struct {
	Immediate int `json:"immediate"`
	High      int `json:"high"`
	Moderate  int `json:"moderate"`
}

// DefaultBands returns the standard breakpoints (85/70/50).
func DefaultBands() Bands {
	return Bands{Immediate: 85, High: 70, Moderate: 50}
}

// Priority maps a score onto its tier.
func (b Bands) Priority(score int) types.Priority {
	switch {
	case score >= b.Immediate:
		return types.PriorityImmediate
	case score >= b.High:
		return types.PriorityHigh
	case score >= b.Moderate:
		return types.PriorityModerate
	default:
		return types.PriorityLow
	}
}
