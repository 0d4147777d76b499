package corcluster

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// StopRule decides, from the p-values of one stopping test, whether merging
// should halt. pvals holds one p-value per active cluster pair other than
// the merge candidate, and is empty when only two clusters remain; alpha is
// the effective significance level. The test is skipped entirely for a stack
// without bootstrap rows.
type StopRule interface {
	ShouldStop(pvals []float64, alpha float64) bool
}

// StopFunc adapts a plain predicate into a StopRule.
type StopFunc func(pvals []float64, alpha float64) bool

func (f StopFunc) ShouldStop(pvals []float64, alpha float64) bool { return f(pvals, alpha) }

// MaxFailures halts when more than k comparisons fail to reject, i.e. have
// p >= alpha. MaxFailures(0) halts on any single failure and is the default.
type MaxFailures int

func (k MaxFailures) ShouldStop(pvals []float64, alpha float64) bool {
	failures := 0
	for _, p := range pvals {
		if p >= alpha {
			failures++
		}
	}
	return failures > int(k)
}

// QuantileRule halts when the given quantile of the p-values, linearly
// interpolated, is at least alpha. QuantileRule(0.5) compares the median.
type QuantileRule float64

func (q QuantileRule) ShouldStop(pvals []float64, alpha float64) bool {
	if len(pvals) == 0 {
		return false
	}
	sorted := slices.Clone(pvals)
	slices.Sort(sorted)
	return stat.Quantile(float64(q), stat.LinInterp, sorted, nil) >= alpha
}

type meanRule struct{}

func (meanRule) ShouldStop(pvals []float64, alpha float64) bool {
	if len(pvals) == 0 {
		return false
	}
	return stat.Mean(pvals, nil) >= alpha
}

// MeanRule halts when the mean p-value is at least alpha.
func MeanRule() StopRule { return meanRule{} }

// waldPValues runs the one-sided Wald test of the candidate column against
// every other column. cols[k][0] is the point estimate of flat pair k and
// cols[k][1:] are its bootstrap replicates.
//
// For each other pair the difference to the candidate is estimated from row
// 0, and its standard error is the population standard deviation of the
// replicate differences, skipping replicates where either value is NaN. A
// zero standard error gives z = +Inf and p = 0.
func waldPValues(cols [][]float64, candidate int) []float64 {
	null := cols[candidate]
	pvals := make([]float64, 0, len(cols)-1)
	diffs := make([]float64, 0, len(null)-1)

	for k, col := range cols {
		if k == candidate {
			continue
		}
		est := col[0] - null[0]

		diffs = diffs[:0]
		for r := 1; r < len(col); r++ {
			diff := col[r] - null[r]
			if !math.IsNaN(diff) {
				diffs = append(diffs, diff)
			}
		}

		z := math.Inf(1)
		if len(diffs) > 0 {
			if se := stat.PopStdDev(diffs, nil); se > 0 {
				z = math.Abs(est) / se
			}
		}
		pvals = append(pvals, distuv.UnitNormal.Survival(z))
	}
	return pvals
}
