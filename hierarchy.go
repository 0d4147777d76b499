package corcluster

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// LinkageMethod selects the cluster distance used by HierarchicalLinkage.
type LinkageMethod string

const (
	LinkageSingle   LinkageMethod = "single"
	LinkageComplete LinkageMethod = "complete"
	LinkageAverage  LinkageMethod = "average"
	LinkageWeighted LinkageMethod = "weighted"
)

// HierarchicalLinkage fits a complete linkage over n observations from a
// condensed distance vector, laid out like FlatIndex (length n(n-1)/2).
// Merges are ordered by height and numbered in scipy order. NaN distances
// are treated as +Inf. Warnings go to the logrus standard logger.
func HierarchicalLinkage(dist []float64, n int, method LinkageMethod) (Linkage, error) {
	return hierarchicalLinkage(dist, n, method, logrus.StandardLogger())
}

func hierarchicalLinkage(dist []float64, n int, method LinkageMethod, log logrus.FieldLogger) (Linkage, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewVariables, n)
	}
	idx := NewFlatIndex(n)
	if len(dist) != idx.Len() {
		return nil, fmt.Errorf("%w: %d distances for %d observations", ErrStackShape, len(dist), n)
	}

	full := make([]float64, n*n)
	for k, v := range dist {
		if math.IsNaN(v) {
			v = math.Inf(1)
		}
		i, j := idx.Pair(k)
		full[i*n+j] = v
		full[j*n+i] = v
	}

	var edges [][3]float64
	switch method {
	case LinkageSingle:
		var hasInf bool
		edges, hasInf = primMST(full, n)
		if hasInf {
			log.Warn("corcluster: MST contains edge(s) with +Inf weight (disconnected components)")
		}
	case LinkageComplete, LinkageAverage, LinkageWeighted:
		edges = lanceWilliams(full, n, method)
	default:
		return nil, fmt.Errorf("%w: unknown linkage method %q", ErrInvalidConfig, method)
	}
	return Label(edges, n), nil
}

// lanceWilliams merges the closest pair of active clusters n-1 times,
// updating the dense matrix d in place with the Lance–Williams rule of
// method. Each edge joins representative leaves of the two clusters, which
// is all Label needs. Ties go to the first pair in row-major order.
func lanceWilliams(d []float64, n int, method LinkageMethod) [][3]float64 {
	active := make([]bool, n)
	rep := make([]int, n)
	size := make([]float64, n)
	for i := range active {
		active[i] = true
		rep[i] = i
		size[i] = 1
	}

	edges := make([][3]float64, 0, n-1)
	for step := 0; step < n-1; step++ {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && (bi == -1 || d[i*n+j] < best) {
					bi, bj, best = i, j, d[i*n+j]
				}
			}
		}

		edges = append(edges, [3]float64{float64(rep[bi]), float64(rep[bj]), best})

		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			dik, djk := d[bi*n+k], d[bj*n+k]
			var v float64
			switch method {
			case LinkageComplete:
				v = math.Max(dik, djk)
			case LinkageAverage:
				v = (size[bi]*dik + size[bj]*djk) / (size[bi] + size[bj])
			case LinkageWeighted:
				v = (dik + djk) / 2
			}
			d[bi*n+k] = v
			d[k*n+bi] = v
		}
		size[bi] += size[bj]
		active[bj] = false
	}
	return edges
}
