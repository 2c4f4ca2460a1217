// Package ranking scores a batch of per-well feature rows against each other
// and orders them by a composite reactivation score.
//
// Ranking is two-phase: BuildRows computes every row independently, then
// Rank derives percentile anchors over the whole eligible batch before any
// composite score is emitted.
package ranking

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Weights are the composite-score coefficients. They must sum to 1.
type Weights struct {
	PreShutInRate    float64 `json:"pre_shut_in_rate"`
	PreShutInPeak    float64 `json:"pre_shut_in_peak"`
	PreShutInNonzero float64 `json:"pre_shut_in_nonzero"`
	PreShutInCV      float64 `json:"pre_shut_in_cv"`
	Gas24M           float64 `json:"gas_24m"`
	Consistency      float64 `json:"consistency"`
	Coverage         float64 `json:"coverage"`
	AbruptStop       float64 `json:"abrupt_stop"`

	Penalties Penalties `json:"penalties"`
}

// Penalties are subtracted from the weighted sum when their condition holds.
type Penalties struct {
	LongShutIn       float64 `json:"long_shut_in"`
	LongShutInMonths float64 `json:"long_shut_in_months"`
	Erratic          float64 `json:"erratic"`
	ErraticCV        float64 `json:"erratic_cv"`
}

// DefaultWeights returns the standard composite weights and penalties.
func DefaultWeights() Weights {
	return Weights{
		PreShutInRate:    0.35,
		PreShutInPeak:    0.20,
		PreShutInNonzero: 0.10,
		PreShutInCV:      0.10,
		Gas24M:           0.10,
		Consistency:      0.05,
		Coverage:         0.05,
		AbruptStop:       0.05,
		Penalties: Penalties{
			LongShutIn:       0.15,
			LongShutInMonths: 120,
			Erratic:          0.05,
			ErraticCV:        0.5,
		},
	}
}

const weightSumTolerance = 1e-6

func (w Weights) sum() float64 {
	return w.PreShutInRate + w.PreShutInPeak + w.PreShutInNonzero + w.PreShutInCV +
		w.Gas24M + w.Consistency + w.Coverage + w.AbruptStop
}

// Validate checks weights and penalties and reports all violations together.
func (w Weights) Validate() error {
	var errs []string
	named := []struct {
		name string
		v    float64
	}{
		{"pre_shut_in_rate", w.PreShutInRate},
		{"pre_shut_in_peak", w.PreShutInPeak},
		{"pre_shut_in_nonzero", w.PreShutInNonzero},
		{"pre_shut_in_cv", w.PreShutInCV},
		{"gas_24m", w.Gas24M},
		{"consistency", w.Consistency},
		{"coverage", w.Coverage},
		{"abrupt_stop", w.AbruptStop},
		{"penalties.long_shut_in", w.Penalties.LongShutIn},
		{"penalties.long_shut_in_months", w.Penalties.LongShutInMonths},
		{"penalties.erratic", w.Penalties.Erratic},
		{"penalties.erratic_cv", w.Penalties.ErraticCV},
	}
	for _, n := range named {
		if n.v < 0 || math.IsNaN(n.v) {
			errs = append(errs, fmt.Sprintf("%s must be non-negative", n.name))
		}
	}
	if s := w.sum(); math.Abs(s-1) > weightSumTolerance {
		errs = append(errs, fmt.Sprintf("weights must sum to 1, got %.6f", s))
	}
	if len(errs) > 0 {
		return eris.Errorf("ranking: weights validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
