package corcluster

import "sort"

// Label converts merge edges into a linkage in scipy format. Each edge is
// [a, b, height] where a and b are any leaves of the two clusters joined.
// Returns one Merge per edge: [left, right, height, mergedSize].
// New cluster IDs start at n and increment. The linkage uses the same
// cluster-ID scheme as scipy's linkage output.
func Label(edges [][3]float64, n int) Linkage {
	if len(edges) == 0 {
		return nil
	}

	// Sort edges by height ascending, keeping the order of equal heights.
	sorted := make([][3]float64, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i][2] < sorted[j][2]
	})

	// Use a UnionFind with 2*n - 1 elements so that merged cluster IDs
	// (n, n+1, ...) can be stored as union-find roots.
	uf := NewUnionFind(n)

	z := make(Linkage, 0, len(sorted))

	for _, edge := range sorted {
		aa := uf.Find(int(edge[0]))
		bb := uf.Find(int(edge[1]))
		// scipy lists the smaller id first.
		if aa > bb {
			aa, bb = bb, aa
		}

		_, size := uf.Merge(aa, bb)
		z = append(z, Merge{Left: aa, Right: bb, Value: edge[2], Size: size})
	}

	return z
}
