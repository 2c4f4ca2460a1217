package reactivation

import (
	"errors"
	"sort"
	"time"

	"github.com/matthewbaird/reactivation/internal/types"
)

// ErrNoResults is returned when summarizing an empty batch.
var ErrNoResults = errors.New("reactivation: no results to summarize")

// maxListedWells caps the identifiers listed per priority tier.
const maxListedWells = 10

// Summarize aggregates a batch of results: counts per category, score
// statistics and the leading wells of the two top priority tiers.
func Summarize(results []types.AnalysisResult, bands Bands) (types.BatchSummary, error) {
	if len(results) == 0 {
		return types.BatchSummary{}, ErrNoResults
	}

	breakdown := make(map[types.CategoryCode]int)
	scores := make([]int, 0, len(results))
	targets := types.PriorityTargets{
		ImmediateWells: []string{},
		HighWells:      []string{},
	}
	for _, r := range results {
		breakdown[r.Category]++
		scores = append(scores, r.Score)
		switch {
		case r.Score >= bands.Immediate:
			targets.ImmediateCount++
			if len(targets.ImmediateWells) < maxListedWells {
				targets.ImmediateWells = append(targets.ImmediateWells, identifier(r.Well))
			}
		case r.Score >= bands.High:
			targets.HighCount++
			if len(targets.HighWells) < maxListedWells {
				targets.HighWells = append(targets.HighWells, identifier(r.Well))
			}
		}
	}

	return types.BatchSummary{
		TotalWells:        len(results),
		CategoryBreakdown: breakdown,
		ScoreStatistics:   scoreStatistics(scores),
		PriorityTargets:   targets,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

func identifier(w types.WellInfo) string {
	if k := w.Key(); k != "" {
		return k
	}
	return "Unknown"
}

func scoreStatistics(scores []int) types.ScoreStatistics {
	sorted := append([]int(nil), scores...)
	sort.Ints(sorted)

	var total int
	for _, s := range sorted {
		total += s
	}
	n := len(sorted)
	median := float64(sorted[n/2])
	if n%2 == 0 {
		median = float64(sorted[n/2-1]+sorted[n/2]) / 2
	}
	return types.ScoreStatistics{
		Mean:   float64(total) / float64(n),
		Median: median,
		Max:    sorted[n-1],
		Min:    sorted[0],
	}
}
