package corcluster

import (
	"fmt"
	"math"
)

// Merge is one row of a linkage record. Left and Right are node ids: leaves
// are 0..n-1 and the k-th merge creates node n+k. Value is the linkage value
// at which the two nodes were joined (a correlation, or a distance in metric
// mode) and Size is the number of leaves under the new node.
type Merge struct {
	Left  int
	Right int
	Value float64
	Size  int
}

// Linkage is a sequence of merges in creation order. A linkage over n leaves
// with n-1 merges describes a single tree; a shorter one describes a forest.
type Linkage []Merge

// Rows returns the linkage in scipy format: [left, right, value, size].
func (z Linkage) Rows() [][4]float64 {
	rows := make([][4]float64, len(z))
	for i, m := range z {
		rows[i] = [4]float64{float64(m.Left), float64(m.Right), m.Value, float64(m.Size)}
	}
	return rows
}

// LinkageFromRows converts scipy-format rows back into a Linkage.
func LinkageFromRows(rows [][4]float64) Linkage {
	z := make(Linkage, len(rows))
	for i, r := range rows {
		z[i] = Merge{Left: int(r[0]), Right: int(r[1]), Value: r[2], Size: int(r[3])}
	}
	return z
}

// Values returns the linkage value of every merge.
func (z Linkage) Values() []float64 {
	vals := make([]float64, len(z))
	for i, m := range z {
		vals[i] = m.Value
	}
	return vals
}

// Validate checks that z is a well-formed linkage over n leaves: every id
// refers to an existing node that has not been merged yet, the two ids of a
// merge differ, and every size is the sum of its children's sizes.
func (z Linkage) Validate(n int) error {
	if len(z) > n-1 && len(z) > 0 {
		return fmt.Errorf("%w: %d merges for %d leaves", ErrInvalidLinkage, len(z), n)
	}
	sizes := make([]int, n+len(z))
	used := make([]bool, n+len(z))
	for i := 0; i < n; i++ {
		sizes[i] = 1
	}
	for k, m := range z {
		created := n + k
		for _, id := range []int{m.Left, m.Right} {
			if id < 0 || id >= created {
				return fmt.Errorf("%w: merge %d references node %d before it exists", ErrInvalidLinkage, k, id)
			}
			if used[id] {
				return fmt.Errorf("%w: merge %d reuses node %d", ErrInvalidLinkage, k, id)
			}
		}
		if m.Left == m.Right {
			return fmt.Errorf("%w: merge %d joins node %d with itself", ErrInvalidLinkage, k, m.Left)
		}
		used[m.Left], used[m.Right] = true, true
		sizes[created] = sizes[m.Left] + sizes[m.Right]
		if m.Size != sizes[created] {
			return fmt.Errorf("%w: merge %d has size %d, children hold %d leaves", ErrInvalidLinkage, k, m.Size, sizes[created])
		}
	}
	return nil
}

// IsMonotonic reports whether successive merges are strictly further apart:
// increasing distance in metric mode, decreasing correlation otherwise.
// Repeated values count as non-monotonic.
func (z Linkage) IsMonotonic(metric bool) bool {
	for i := 1; i < len(z); i++ {
		prev, cur := z[i-1].Value, z[i].Value
		if !metric {
			prev, cur = 1-prev, 1-cur
		}
		if cur <= prev {
			return false
		}
	}
	return true
}

// Annotated is a linkage with one consensus confidence in [0, 1] per merge.
type Annotated struct {
	Linkage    Linkage
	Confidence []float64
}

// Rows returns the annotated linkage as [left, right, value, size, confidence].
func (a *Annotated) Rows() [][5]float64 {
	rows := make([][5]float64, len(a.Linkage))
	for i, m := range a.Linkage {
		conf := math.NaN()
		if i < len(a.Confidence) {
			conf = a.Confidence[i]
		}
		rows[i] = [5]float64{float64(m.Left), float64(m.Right), m.Value, float64(m.Size), conf}
	}
	return rows
}
