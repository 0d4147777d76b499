package corcluster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

// maxTableVariables is the widest tuple a packed uint64 key can encode.
const maxTableVariables = 64

// maxDenseVariables bounds Dense, which allocates 2^d cells.
const maxDenseVariables = 20

// ContingencyTable is a sparse joint distribution of d binary variables
// observed over n rows. Each distinct observed tuple is stored once, keyed by
// a d-bit integer whose bit i holds variable i.
type ContingencyTable struct {
	counts map[uint64]int
	// keys lists the observed tuples in ascending order so that resampling
	// is reproducible for a fixed random source.
	keys []uint64
	n    int
	d    int
}

// NewContingencyTable counts the distinct rows of an n×d observation matrix.
// Every row must have length d and every cell must be 0 or 1.
func NewContingencyTable(data [][]uint8) (*ContingencyTable, error) {
	n, d, err := validateObservations(data)
	if err != nil {
		return nil, err
	}
	if d > maxTableVariables {
		return nil, fmt.Errorf("%w: table supports at most %d variables, got %d", ErrTooManyVariables, maxTableVariables, d)
	}

	counts := make(map[uint64]int)
	for _, row := range data {
		counts[PackTuple(row)]++
	}
	return newTable(counts, n, d), nil
}

// NewContingencyTableFromCounts builds a table from pre-aggregated counts
// over d-bit tuple keys (see PackTuple). Zero counts are dropped.
func NewContingencyTableFromCounts(counts map[uint64]int, d int) (*ContingencyTable, error) {
	if d < 0 || d > maxTableVariables {
		return nil, fmt.Errorf("%w: table supports at most %d variables, got %d", ErrTooManyVariables, maxTableVariables, d)
	}
	own := make(map[uint64]int, len(counts))
	n := 0
	for key, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("%w: tuple %b has count %d", ErrNegativeCount, key, c)
		}
		if d < maxTableVariables && key>>uint(d) != 0 {
			return nil, fmt.Errorf("corcluster: tuple %b does not fit in %d variables: %w", key, d, ErrInvalidConfig)
		}
		if c == 0 {
			continue
		}
		own[key] = c
		n += c
	}
	if n == 0 {
		return nil, ErrEmptyInput
	}
	return newTable(own, n, d), nil
}

func newTable(counts map[uint64]int, n, d int) *ContingencyTable {
	keys := make([]uint64, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return &ContingencyTable{counts: counts, keys: keys, n: n, d: d}
}

// PackTuple encodes a binary tuple as an integer key with bit i = tuple[i].
// Non-zero cells are treated as 1.
func PackTuple(tuple []uint8) uint64 {
	var key uint64
	for i, v := range tuple {
		if v != 0 {
			key |= 1 << uint(i)
		}
	}
	return key
}

// UnpackTuple decodes a key produced by PackTuple into a tuple of length d.
func UnpackTuple(key uint64, d int) []uint8 {
	tuple := make([]uint8, d)
	for i := range tuple {
		tuple[i] = uint8(key >> uint(i) & 1)
	}
	return tuple
}

// N returns the total number of observations.
func (ct *ContingencyTable) N() int { return ct.n }

// D returns the number of variables.
func (ct *ContingencyTable) D() int { return ct.d }

// Len returns the number of distinct observed tuples.
func (ct *ContingencyTable) Len() int { return len(ct.keys) }

// Count returns how often tuple was observed, 0 if never.
func (ct *ContingencyTable) Count(tuple []uint8) int {
	if len(tuple) != ct.d {
		return 0
	}
	return ct.counts[PackTuple(tuple)]
}

// CountKey is Count for a packed key.
func (ct *ContingencyTable) CountKey(key uint64) int { return ct.counts[key] }

// Proportion returns Count(tuple) / N.
func (ct *ContingencyTable) Proportion(tuple []uint8) float64 {
	return float64(ct.Count(tuple)) / float64(ct.n)
}

// Each calls fn for every observed tuple in ascending key order.
func (ct *ContingencyTable) Each(fn func(key uint64, count int)) {
	for _, key := range ct.keys {
		fn(key, ct.counts[key])
	}
}

// Marginalize sums out the given axes and returns the table over the
// remaining variables, in their original order. The total count is preserved.
func (ct *ContingencyTable) Marginalize(axes ...int) (*ContingencyTable, error) {
	drop := make([]bool, ct.d)
	for _, a := range axes {
		if a < 0 || a >= ct.d {
			return nil, fmt.Errorf("corcluster: axis %d out of range [0,%d): %w", a, ct.d, ErrInvalidConfig)
		}
		drop[a] = true
	}
	keep := make([]int, 0, ct.d)
	for i := 0; i < ct.d; i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}

	counts := make(map[uint64]int)
	for _, key := range ct.keys {
		var sub uint64
		for bit, axis := range keep {
			sub |= (key >> uint(axis) & 1) << uint(bit)
		}
		counts[sub] += ct.counts[key]
	}
	return newTable(counts, ct.n, len(keep)), nil
}

// Correlation returns the Pearson correlation between variables i and j,
// clamped to [0, 1]. Negative correlation is reported as 0: this estimator
// measures one-sided similarity. Correlation(i, i) is 1.
func (ct *ContingencyTable) Correlation(i, j int) (float64, error) {
	if i < 0 || i >= ct.d || j < 0 || j >= ct.d {
		return 0, fmt.Errorf("corcluster: pair (%d,%d) out of range [0,%d): %w", i, j, ct.d, ErrInvalidConfig)
	}
	if i == j {
		return 1.0, nil
	}

	others := make([]int, 0, ct.d-2)
	for k := 0; k < ct.d; k++ {
		if k != i && k != j {
			others = append(others, k)
		}
	}
	pairTable, err := ct.Marginalize(others...)
	if err != nil {
		return 0, err
	}

	// pairTable has axis 0 = min(i,j) and axis 1 = max(i,j).
	n := float64(ct.n)
	p1 := float64(pairTable.CountKey(0b01)+pairTable.CountKey(0b11)) / n
	p2 := float64(pairTable.CountKey(0b10)+pairTable.CountKey(0b11)) / n
	p11 := float64(pairTable.CountKey(0b11)) / n

	r, ok := pearsonFromProportions(p11, p1, p2)
	if !ok {
		return 0, fmt.Errorf("%w: pair (%d,%d)", ErrDegenerateVariable, i, j)
	}
	return clamp(r, 0, 1), nil
}

// AverageCorrelation returns the mean of Correlation over the given pairs.
// With no pairs it averages over every pair i < j of the table. This is the
// average linkage between two clusters when pairs lists their cross pairs.
func (ct *ContingencyTable) AverageCorrelation(pairs [][2]int) (float64, error) {
	if len(pairs) == 0 {
		for i := 0; i < ct.d; i++ {
			for j := i + 1; j < ct.d; j++ {
				pairs = append(pairs, [2]int{i, j})
			}
		}
		if len(pairs) == 0 {
			return 0, ErrTooFewVariables
		}
	}

	var sum float64
	for _, p := range pairs {
		r, err := ct.Correlation(p[0], p[1])
		if err != nil {
			return 0, err
		}
		sum += r
	}
	return sum / float64(len(pairs)), nil
}

// CrossPairs lists every (a, b) with a in left and b in right.
func CrossPairs(left, right []int) [][2]int {
	pairs := make([][2]int, 0, len(left)*len(right))
	for _, a := range left {
		for _, b := range right {
			pairs = append(pairs, [2]int{a, b})
		}
	}
	return pairs
}

// CorrelationVector computes Correlation for every pair of idx in a single
// pass over the observed tuples. Degenerate pairs are reported as
// ErrDegenerateVariable.
func (ct *ContingencyTable) CorrelationVector(idx FlatIndex) ([]float64, error) {
	out, degenerate := ct.correlationVector(idx)
	if degenerate >= 0 {
		i, j := idx.Pair(degenerate)
		return nil, fmt.Errorf("%w: pair (%d,%d)", ErrDegenerateVariable, i, j)
	}
	return out, nil
}

// correlationVector fills degenerate pairs with NaN and returns the flat
// index of the first one, or -1.
func (ct *ContingencyTable) correlationVector(idx FlatIndex) ([]float64, int) {
	d := ct.d
	ones := make([]int, d)
	both := make([]int, idx.Len())
	for _, key := range ct.keys {
		c := ct.counts[key]
		for i := 0; i < d; i++ {
			if key>>uint(i)&1 == 0 {
				continue
			}
			ones[i] += c
			for j := i + 1; j < d; j++ {
				if key>>uint(j)&1 == 1 {
					both[idx.Index(i, j)] += c
				}
			}
		}
	}

	n := float64(ct.n)
	out := make([]float64, idx.Len())
	degenerate := -1
	for k := range out {
		i, j := idx.Pair(k)
		r, ok := pearsonFromProportions(float64(both[k])/n, float64(ones[i])/n, float64(ones[j])/n)
		if !ok {
			out[k] = math.NaN()
			if degenerate < 0 {
				degenerate = k
			}
			continue
		}
		out[k] = clamp(r, 0, 1)
	}
	return out, degenerate
}

// Bootstrap draws n observations from the empirical joint distribution of
// the table and returns the table of the resample. The result has the same
// n and d as ct.
func (ct *ContingencyTable) Bootstrap(src rand.Source) *ContingencyTable {
	weights := make([]float64, len(ct.keys))
	for i, key := range ct.keys {
		weights[i] = float64(ct.counts[key]) / float64(ct.n)
	}
	dist := distuv.NewCategorical(weights, src)

	counts := make(map[uint64]int, len(ct.keys))
	for i := 0; i < ct.n; i++ {
		counts[ct.keys[int(dist.Rand())]]++
	}
	return newTable(counts, ct.n, ct.d)
}

// Dense expands the table into a full 2^d array indexed by packed key. With
// proportions set, cells hold count / N.
func (ct *ContingencyTable) Dense(proportions bool) ([]float64, error) {
	if ct.d > maxDenseVariables {
		return nil, fmt.Errorf("%w: dense table supports at most %d variables, got %d", ErrTooManyVariables, maxDenseVariables, ct.d)
	}
	arr := make([]float64, 1<<uint(ct.d))
	for _, key := range ct.keys {
		arr[key] = float64(ct.counts[key])
		if proportions {
			arr[key] /= float64(ct.n)
		}
	}
	return arr, nil
}
