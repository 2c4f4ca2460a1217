package reactivation

import (
	"github.com/matthewbaird/reactivation/internal/types"
)

var recommendations = map[types.Priority]types.Recommendation{
	types.PriorityImmediate: {
		Priority:   types.PriorityImmediate,
		Action:     "Fast-track to Phase 1 field survey",
		Timeline:   "Within 30 days",
		Investment: "High confidence - consider fast-track acquisition",
		RiskLevel:  "Low",
		NextSteps: []string{
			"Schedule immediate site visit",
			"Begin landowner contact",
			"Prepare acquisition offer",
			"Minimal reservoir validation needed",
		},
	},
	types.PriorityHigh: {
		Priority:   types.PriorityHigh,
		Action:     "Include in Phase 2 reservoir validation",
		Timeline:   "Within 60 days",
		Investment: "Worth detailed technical assessment",
		RiskLevel:  "Low-Medium",
		NextSteps: []string{
			"Field survey in next batch",
			"Reservoir engineering review",
			"Infrastructure assessment",
			"Economic modeling",
		},
	},
	types.PriorityModerate: {
		Priority:   types.PriorityModerate,
		Action:     "Conditional target - requires Phase 2 analysis",
		Timeline:   "Within 90 days",
		Investment: "Lower priority unless exceptional circumstances",
		RiskLevel:  "Medium",
		NextSteps: []string{
			"Include in batch analysis",
			"Detailed reservoir validation required",
			"Economic sensitivity analysis",
			"Consider as part of package deal",
		},
	},
	types.PriorityLow: {
		Priority:   types.PriorityLow,
		Action:     "Consider only if part of package deal",
		Timeline:   "No immediate action",
		Investment: "High risk - avoid individual acquisition",
		RiskLevel:  "High",
		NextSteps: []string{
			"Monitor for status changes",
			"Consider for package deals only",
			"Low priority for resources",
		},
	},
}

// Recommend returns the fixed recommendation block for a score. The returned
// NextSteps slice is a fresh copy owned by the caller.
func (b Bands) Recommend(score int) types.Recommendation {
	rec := recommendations[b.Priority(score)]
	rec.NextSteps = append([]string(nil), rec.NextSteps...)
	return rec
}
