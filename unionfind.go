package corcluster

// UnionFind is a disjoint-set structure over 2*n - 1 elements so that merged
// clusters can be given linkage ids: leaves are 0..n-1, and the k-th merge
// creates node n+k.
type UnionFind struct {
	parent []int
	size   []int
	// nextLabel is the id of the next merged cluster, starting at n.
	nextLabel int
}

// NewUnionFind creates a UnionFind for n leaves.
func NewUnionFind(n int) *UnionFind {
	total := 2*n - 1
	if total < 1 {
		total = 1
	}
	parent := make([]int, total)
	size := make([]int, total)
	for i := range parent {
		parent[i] = -1 // -1 means "is a root"
	}
	for i := 0; i < n; i++ {
		size[i] = 1
	}
	return &UnionFind{
		parent:    parent,
		size:      size,
		nextLabel: n,
	}
}

// Find returns the root of the set containing x, with path compression.
func (uf *UnionFind) Find(x int) int {
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// Merge joins the two roots a and b under a fresh node id and returns that
// id with the size of the merged set. a and b must be distinct roots.
func (uf *UnionFind) Merge(a, b int) (id, size int) {
	id = uf.nextLabel
	uf.nextLabel++
	size = uf.size[a] + uf.size[b]
	uf.size[id] = size
	uf.parent[a] = id
	uf.parent[b] = id
	return id, size
}
