package reactivation

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/matthewbaird/reactivation/internal/types"
)

// rule is one entry of the decision list. Rules are evaluated in order and
// the first match wins.
type rule struct {
	category types.CategoryCode
	match    func(m *types.ProductionMetrics, th types.Thresholds) bool
	describe func(m *types.ProductionMetrics, th types.Thresholds) string
}

var decisionList = []rule{
	{
		category: types.CategoryHighPotential,
		match: func(m *types.ProductionMetrics, th types.Thresholds) bool {
			return m.MonthsAboveHigh >= th.HighConsistentMonths && m.RecentAvgProduction >= th.HighConsistent
		},
		describe: func(m *types.ProductionMetrics, th types.Thresholds) string {
			return fmt.Sprintf("Consistent high production: %d months above %s MCF, recent avg: %s MCF",
				m.MonthsAboveHigh, mcf(th.HighConsistent), mcf(m.RecentAvgProduction))
		},
	},
	{
		category: types.CategorySurgePotential,
		match: func(m *types.ProductionMetrics, th types.Thresholds) bool {
			return m.MonthsAboveSurge >= th.SurgeMonths && m.RecentMaxProduction >= th.SurgePeak
		},
		describe: func(m *types.ProductionMetrics, th types.Thresholds) string {
			return fmt.Sprintf("Strong recent peaks: %d months above %s MCF, max: %s MCF",
				m.MonthsAboveSurge, mcf(th.SurgePeak), mcf(m.RecentMaxProduction))
		},
	},
	{
		category: types.CategoryDecliningViable,
		match: func(m *types.ProductionMetrics, th types.Thresholds) bool {
			return m.MonthsAboveViable >= th.ViableMonths && m.RecentAvgProduction >= th.ViableMinimum
		},
		describe: func(m *types.ProductionMetrics, th types.Thresholds) string {
			return fmt.Sprintf("Viable production: %d months above %s MCF, recent avg: %s MCF",
				m.MonthsAboveViable, mcf(th.ViableMinimum), mcf(m.RecentAvgProduction))
		},
	},
	{
		category: types.CategorySporadicStrong,
		match: func(m *types.ProductionMetrics, th types.Thresholds) bool {
			return m.MaxProductionEver >= th.SurgePeak
		},
		describe: func(m *types.ProductionMetrics, _ types.Thresholds) string {
			return fmt.Sprintf("Historical strength: Max %s MCF, recent performance variable", mcf(m.MaxProductionEver))
		},
	},
	{
		category: types.CategorySporadicModerate,
		match: func(m *types.ProductionMetrics, th types.Thresholds) bool {
			return m.MaxProductionEver >= th.ViableMinimum
		},
		describe: func(m *types.ProductionMetrics, _ types.Thresholds) string {
			return fmt.Sprintf("Moderate history: Max %s MCF, limited recent activity", mcf(m.MaxProductionEver))
		},
	},
	{
		category: types.CategoryLowPotential,
		match:    func(*types.ProductionMetrics, types.Thresholds) bool { return true },
		describe: func(m *types.ProductionMetrics, _ types.Thresholds) string {
			return fmt.Sprintf("Limited production: Max %s MCF, poor recent performance", mcf(m.MaxProductionEver))
		},
	},
}

// Classify runs the decision list over computed metrics and returns the
// matching category and its analysis text. The score is always the
// category's registered score.
func Classify(m types.ProductionMetrics, th types.Thresholds) (Category, string) {
	for _, r := range decisionList {
		if r.match(&m, th) {
			return mustLookup(r.category), r.describe(&m, th)
		}
	}
	// The final rule always matches.
	last := decisionList[len(decisionList)-1]
	return mustLookup(last.category), last.describe(&m, th)
}

func mcf(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
