package corcluster

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Split is one connected component of a (possibly partial) linkage,
// relabelled into a self-contained linkage over its own leaves.
type Split struct {
	Linkage Linkage
	Labels  []string
	// MergeRows maps each row of Linkage to its row in the source linkage,
	// so per-merge annotations such as consensus can follow the split.
	MergeRows []int
}

// bfsFromLinkage performs a breadth-first search on a linkage, returning
// every node id reachable from root.
func bfsFromLinkage(z Linkage, root, n int) []int {
	toProcess := []int{root}
	var result []int

	for len(toProcess) > 0 {
		result = append(result, toProcess...)

		var nextLevel []int
		for _, x := range toProcess {
			if x >= n && x-n < len(z) {
				m := z[x-n]
				nextLevel = append(nextLevel, m.Left, m.Right)
			}
		}
		toProcess = nextLevel
	}

	return result
}

// SplitLinkage decomposes z into one Split per connected component spanned
// by the selected merge rows. internal lists row indices of z (0-based);
// nil selects every row. Each component is rooted at the largest remaining
// selected row and takes in every node below it. Splits are returned in
// ascending order of their root.
func SplitLinkage(z Linkage, labels []string, internal []int) []Split {
	n := len(labels)
	if internal == nil {
		internal = make([]int, len(z))
		for i := range internal {
			internal[i] = i
		}
	}
	pending := make(map[int]bool, len(internal))
	for _, r := range internal {
		if r >= 0 && r < len(z) {
			pending[r] = true
		}
	}

	var splits []Split
	for len(pending) > 0 {
		top := -1
		for r := range pending {
			top = max(top, r)
		}

		members := bfsFromLinkage(z, top+n, n)
		slices.Sort(members)

		// Leaves sort before internal nodes, so the new ids form a valid
		// linkage numbering: leaves 0..m-1, then merges in creation order.
		newID := make(map[int]int, len(members))
		var split Split
		for _, id := range members {
			newID[id] = len(newID)
			if id < n {
				split.Labels = append(split.Labels, labels[id])
				continue
			}
			m := z[id-n]
			split.Linkage = append(split.Linkage, Merge{
				Left:  newID[m.Left],
				Right: newID[m.Right],
				Value: m.Value,
				Size:  m.Size,
			})
			split.MergeRows = append(split.MergeRows, id-n)
			delete(pending, id-n)
		}
		splits = append(splits, split)
	}

	slices.Reverse(splits)
	return splits
}

// SublinkageFromLeaves returns the split of z rooted at the smallest subtree
// that contains the given leaf labels.
func SublinkageFromLeaves(z Linkage, labels []string, leafLabels []string) ([]Split, error) {
	t, err := NewTree(z, labels)
	if err != nil {
		return nil, err
	}
	ids, err := t.leafIDs(leafLabels)
	if err != nil {
		return nil, err
	}
	root, err := t.SubtreeFromLeaves(ids)
	if err != nil {
		return nil, err
	}

	n := len(labels)
	var internal []int
	for _, id := range t.Descendants(root) {
		if id >= n {
			internal = append(internal, id-n)
		}
	}
	if len(internal) == 0 {
		return []Split{{Labels: []string{labels[root]}}}, nil
	}
	return SplitLinkage(z, labels, internal), nil
}

// SplitSortKey selects the statistic SortSplits orders by.
type SplitSortKey string

const (
	SortBySize SplitSortKey = "size"
	SortByMin  SplitSortKey = "min"
	SortByMax  SplitSortKey = "max"
	SortByMean SplitSortKey = "mean"
)

// sortValue returns the statistic of s used by key. Splits without merges
// have no linkage values and yield NaN for min, max and mean.
func (s Split) sortValue(key SplitSortKey) float64 {
	if key == SortBySize {
		return float64(len(s.Labels))
	}
	if len(s.Linkage) == 0 {
		return math.NaN()
	}
	vals := s.Linkage.Values()
	switch key {
	case SortByMin:
		return floats.Min(vals)
	case SortByMax:
		return floats.Max(vals)
	default:
		return stat.Mean(vals, nil)
	}
}

// SortSplits returns splits stably ordered by key, ascending unless desc is
// set. Splits whose statistic is NaN are placed last in either direction.
func SortSplits(splits []Split, key SplitSortKey, desc bool) []Split {
	vals := make([]float64, len(splits))
	for i, s := range splits {
		vals[i] = s.sortValue(key)
	}
	order := make([]int, len(splits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := vals[order[a]], vals[order[b]]
		if math.IsNaN(va) || math.IsNaN(vb) {
			return !math.IsNaN(va) && math.IsNaN(vb)
		}
		if desc {
			return cmp.Less(vb, va)
		}
		return cmp.Less(va, vb)
	})

	out := make([]Split, len(splits))
	for i, o := range order {
		out[i] = splits[o]
	}
	return out
}
