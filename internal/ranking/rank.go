package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/reactivation/internal/features"
	"github.com/matthewbaird/reactivation/internal/production"
	"github.com/matthewbaird/reactivation/internal/types"
)

// Input is one well entering phase 1.
type Input struct {
	Series production.Series
	Well   types.WellInfo
}

// BuildRows computes a feature row per input with at most workers
// concurrent computations. Output order matches input order.
func BuildRows(ctx context.Context, inputs []Input, engine *features.Engine, asOf time.Time, workers int) ([]types.FeatureRow, error) {
	if workers <= 0 {
		workers = 1
	}
	rows := make([]types.FeatureRow, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows[i] = engine.Row(inputs[i].Series, inputs[i].Well, asOf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building feature rows: %w", err)
	}
	return rows, nil
}

// Eligible reports whether a row shows any production signal at all.
func Eligible(r types.FeatureRow) bool {
	return r.Gas36M > 0 || r.RateMCFPerDay > 0 || r.NonzeroMonthsEver > 0
}

// minSpread keeps the normalization denominator positive when anchors meet.
const minSpread = 1e-9

type anchors struct{ p10, p90 float64 }

func newAnchors(xs []float64) anchors {
	return anchors{p10: Percentile(xs, 0.10), p90: Percentile(xs, 0.90)}
}

func (a anchors) normalize(x float64) float64 {
	return features.Clip((x-a.p10)/math.Max(a.p90-a.p10, minSpread), 0, 1)
}

// Rank filters ineligible rows, scores the rest against percentile anchors
// computed over the eligible batch, and returns them sorted by descending
// score with 1-based ranks. Ties keep input order. The input slice is not
// modified.
func Rank(rows []types.FeatureRow, w Weights) ([]types.FeatureRow, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	eligible := make([]types.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if Eligible(r) {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return eligible, nil
	}

	rate := make([]float64, len(eligible))
	peak := make([]float64, len(eligible))
	gas24 := make([]float64, len(eligible))
	for i, r := range eligible {
		rate[i] = r.PreShutIn.RateMCFPerDay
		peak[i] = r.PreShutIn.PeakMCF
		gas24[i] = r.Gas24M
	}
	rateA, peakA, gasA := newAnchors(rate), newAnchors(peak), newAnchors(gas24)

	for i := range eligible {
		r := &eligible[i]
		score := w.PreShutInRate*rateA.normalize(r.PreShutIn.RateMCFPerDay) +
			w.PreShutInPeak*peakA.normalize(r.PreShutIn.PeakMCF) +
			w.PreShutInNonzero*features.Clip(r.PreShutIn.NonzeroFraction, 0, 1) +
			w.PreShutInCV*(1-features.Clip(r.PreShutIn.CV, 0, features.MaxCV)/features.MaxCV) +
			w.Gas24M*gasA.normalize(r.Gas24M) +
			w.Consistency*r.ConsistencyScore +
			w.Coverage*r.DataCoverage +
			w.AbruptStop*r.PreShutIn.AbruptStop

		r.PenaltyLongShutIn, r.PenaltyErratic = 0, 0
		if r.MonthsSinceProduction > w.Penalties.LongShutInMonths {
			r.PenaltyLongShutIn = w.Penalties.LongShutIn
		}
		if r.CV12M > w.Penalties.ErraticCV {
			r.PenaltyErratic = w.Penalties.Erratic
		}
		r.Score = features.Clip(score-r.PenaltyLongShutIn-r.PenaltyErratic, 0, 1)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Score > eligible[j].Score
	})
	for i := range eligible {
		eligible[i].Rank = i + 1
	}
	return eligible, nil
}

// Top returns at most n leading rows; n <= 0 returns all of them.
func Top(rows []types.FeatureRow, n int) []types.FeatureRow {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// Percentile returns the p-quantile (0..1) of xs with linear interpolation
// between closest ranks. It returns 0 for an empty slice.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	pos := features.Clip(p, 0, 1) * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
