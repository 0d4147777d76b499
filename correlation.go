package corcluster

import (
	"fmt"
	"math"
)

// FlatIndex maps unordered pairs (i < j) of d variables onto positions
// 0..d(d-1)/2-1 of a flattened upper-triangular matrix, row by row:
// (0,1), (0,2), ..., (0,d-1), (1,2), ...
type FlatIndex struct {
	d int
}

// NewFlatIndex returns the pair mapping for d variables.
func NewFlatIndex(d int) FlatIndex { return FlatIndex{d: d} }

// Dim returns the number of variables.
func (f FlatIndex) Dim() int { return f.d }

// Len returns d(d-1)/2.
func (f FlatIndex) Len() int { return f.d * (f.d - 1) / 2 }

// Index returns the flat position of the pair {i, j}. The order of i and j
// does not matter; i == j panics.
func (f FlatIndex) Index(i, j int) int {
	if i == j {
		panic("corcluster: FlatIndex.Index requires distinct indices")
	}
	if i > j {
		i, j = j, i
	}
	return i*(2*f.d-i-1)/2 + (j - i - 1)
}

// Pair is the inverse of Index and returns i < j.
func (f FlatIndex) Pair(k int) (int, int) {
	i := 0
	rowLen := f.d - 1
	for k >= rowLen {
		k -= rowLen
		i++
		rowLen--
	}
	return i, i + 1 + k
}

// dimFromFlatLen recovers d from a flattened length m = d(d-1)/2.
func dimFromFlatLen(m int) (int, bool) {
	d := int(math.Round((1 + math.Sqrt(1+8*float64(m))) / 2))
	return d, d*(d-1)/2 == m
}

// validateObservations checks that data is a non-empty rectangular 0/1
// matrix and returns its shape.
func validateObservations(data [][]uint8) (n, d int, err error) {
	n = len(data)
	if n == 0 {
		return 0, 0, ErrEmptyInput
	}
	d = len(data[0])
	for r, row := range data {
		if len(row) != d {
			return 0, 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrRaggedInput, r, len(row), d)
		}
		for c, v := range row {
			if v > 1 {
				return 0, 0, fmt.Errorf("%w: cell (%d,%d) = %d", ErrNonBinary, r, c, v)
			}
		}
	}
	return n, d, nil
}

// pearsonFromProportions evaluates (p11 - p1*p2) / sqrt(p1*p2*(1-p1)*(1-p2)).
// ok is false when the denominator vanishes.
func pearsonFromProportions(p11, p1, p2 float64) (r float64, ok bool) {
	den := math.Sqrt(p1 * p2 * (1 - p1) * (1 - p2))
	if den == 0 || math.IsNaN(den) {
		return math.NaN(), false
	}
	return (p11 - p1*p2) / den, true
}

func clamp(x, lo, hi float64) float64 {
	return max(min(x, hi), lo)
}

// PearsonBinary returns the Pearson correlation of two equally long binary
// columns, clamped to [-1, 1].
func PearsonBinary(x, y []uint8) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%w: columns of length %d and %d", ErrRaggedInput, len(x), len(y))
	}
	if len(x) == 0 {
		return 0, ErrEmptyInput
	}
	var nx, ny, nxy int
	for i := range x {
		if x[i] != 0 {
			nx++
			if y[i] != 0 {
				nxy++
			}
		}
		if y[i] != 0 {
			ny++
		}
	}
	n := float64(len(x))
	r, ok := pearsonFromProportions(float64(nxy)/n, float64(nx)/n, float64(ny)/n)
	if !ok {
		return 0, ErrDegenerateVariable
	}
	return clamp(r, -1, 1), nil
}

// FlatPearson computes the signed Pearson correlation, clamped to [-1, 1],
// for every pair of columns of an n×d binary matrix, laid out by idx. A
// column that is constant makes its pairs undefined and is reported as
// ErrDegenerateVariable.
func FlatPearson(data [][]uint8, idx FlatIndex) ([]float64, error) {
	n, d, err := validateObservations(data)
	if err != nil {
		return nil, err
	}
	if d != idx.Dim() {
		return nil, fmt.Errorf("%w: data has %d columns, index expects %d", ErrLabelMismatch, d, idx.Dim())
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	out, degenerate := flatPearsonRows(data, rows, idx)
	if degenerate >= 0 {
		i, j := idx.Pair(degenerate)
		return nil, fmt.Errorf("%w: pair (%d,%d)", ErrDegenerateVariable, i, j)
	}
	return out, nil
}

// flatPearsonRows is FlatPearson over the multiset of rows selected by rows,
// so that bootstrap replicates never copy the data. Undefined pairs are NaN
// and the flat index of the first one is returned, or -1.
func flatPearsonRows(data [][]uint8, rows []int, idx FlatIndex) ([]float64, int) {
	d := idx.Dim()
	ones := make([]int, d)
	both := make([]int, idx.Len())
	for _, r := range rows {
		row := data[r]
		for i := 0; i < d; i++ {
			if row[i] == 0 {
				continue
			}
			ones[i]++
			base := i*(2*d-i-1)/2 - i - 1
			for j := i + 1; j < d; j++ {
				if row[j] != 0 {
					both[base+j]++
				}
			}
		}
	}

	n := float64(len(rows))
	out := make([]float64, idx.Len())
	degenerate := -1
	k := 0
	for i := 0; i < d; i++ {
		pi := float64(ones[i]) / n
		for j := i + 1; j < d; j++ {
			r, ok := pearsonFromProportions(float64(both[k])/n, pi, float64(ones[j])/n)
			if !ok {
				out[k] = math.NaN()
				if degenerate < 0 {
					degenerate = k
				}
			} else {
				out[k] = clamp(r, -1, 1)
			}
			k++
		}
	}
	return out, degenerate
}

// MetricTransform maps a correlation onto sqrt(2(1-rho)), a monotone
// decreasing transform that satisfies the triangle inequality.
func MetricTransform(rho float64) float64 {
	return math.Sqrt(2 * (1 - rho))
}

// MetricTransformAll applies MetricTransform to every element in place and
// returns v.
func MetricTransformAll(v []float64) []float64 {
	for i, rho := range v {
		v[i] = MetricTransform(rho)
	}
	return v
}
