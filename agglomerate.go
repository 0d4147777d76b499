package corcluster

import (
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// agglomerate runs the average-linkage merge loop over a column-major
// bootstrap stack. cols[k] holds flat pair k across all stack rows: row 0
// drives the merge decisions and rows 1.. feed the stopping test. cols is
// consumed: merged columns are updated in place and dropped columns are
// released.
//
// It returns the linkage built so far and, when the stopping test halted the
// loop, the p-values of the halting test.
func agglomerate(cols [][]float64, d int, alpha float64, stop StopRule, metric bool, log logrus.FieldLogger) (Linkage, []float64) {
	ids := make([]int, d)
	sizes := make([]int, d)
	for i := range ids {
		ids[i] = i
		sizes[i] = 1
	}
	idx := NewFlatIndex(d)
	z := make(Linkage, 0, d-1)
	row0 := make([]float64, len(cols))

	for iz := 0; iz < d-1; iz++ {
		row0 = row0[:len(cols)]
		for k, col := range cols {
			row0[k] = col[0]
		}
		var best int
		if metric {
			best = floats.MinIdx(row0)
		} else {
			best = floats.MaxIdx(row0)
		}
		i0, j0 := idx.Pair(best)
		value := row0[best]

		// With two clusters left there is nothing to compare against, but
		// the rule still sees the empty p-value vector.
		var pvals []float64
		if len(cols[best]) > 1 {
			pvals = waldPValues(cols, best)
			if stop.ShouldStop(pvals, alpha) {
				log.WithFields(logrus.Fields{
					"merges":   iz,
					"clusters": idx.Dim(),
					"mean_p":   stat.Mean(pvals, nil),
				}).Info("corcluster: stopping test halted merging")
				return z, pvals
			}
		}

		z = append(z, Merge{
			Left:  ids[i0],
			Right: ids[j0],
			Value: value,
			Size:  sizes[i0] + sizes[j0],
		})
		fields := logrus.Fields{
			"step":  iz,
			"left":  ids[i0],
			"right": ids[j0],
			"value": value,
		}
		if len(pvals) > 0 {
			fields["max_p"] = floats.Max(pvals)
		}
		log.WithFields(fields).Debug("corcluster: merge")

		averageInto(cols, idx, i0, j0, float64(sizes[i0]), float64(sizes[j0]))
		cols = compactColumns(cols, idx, j0)

		ids[i0] = d + iz
		sizes[i0] += sizes[j0]
		ids = slices.Delete(ids, j0, j0+1)
		sizes = slices.Delete(sizes, j0, j0+1)
		idx = NewFlatIndex(idx.Dim() - 1)
	}
	return z, nil
}

// averageInto overwrites the (i, k) columns with the UPGMA linkage of the
// merged cluster i ∪ j against every other active cluster k, on every row.
func averageInto(cols [][]float64, idx FlatIndex, i, j int, si, sj float64) {
	for k := 0; k < idx.Dim(); k++ {
		if k == i || k == j {
			continue
		}
		ci := cols[idx.Index(i, k)]
		cj := cols[idx.Index(j, k)]
		for r := range ci {
			ci[r] = (si*ci[r] + sj*cj[r]) / (si + sj)
		}
	}
}

// compactColumns drops every column whose pair touches slot drop and shifts
// the rest down in place. Because slot numbers keep their relative order when
// one slot is removed, the surviving columns come out already in the flat
// order of the smaller index.
func compactColumns(cols [][]float64, idx FlatIndex, drop int) [][]float64 {
	kept := cols[:0]
	k := 0
	for i := 0; i < idx.Dim(); i++ {
		for j := i + 1; j < idx.Dim(); j++ {
			if i != drop && j != drop {
				kept = append(kept, cols[k])
			}
			k++
		}
	}
	clear(cols[len(kept):])
	return kept
}
