package corcluster

import (
	"fmt"
	"strconv"
)

// Tree is a rooted binary tree built from a linkage record. Nodes live in an
// arena addressed by their linkage id: leaves are 0..n-1 and carry the
// variable labels, and merge k is node n+k. Each node records its parent so
// that the tree can be walked upwards; a partial linkage yields a forest
// with several parentless nodes.
type Tree struct {
	nodes   []treeNode
	labels  []string
	byLabel map[string]int
}

type treeNode struct {
	parent   int
	children [2]int // -1 for leaves
}

// NewTree builds the tree of z over the given leaf labels. Labels must be
// unique and z must be a valid linkage over len(labels) leaves.
func NewTree(z Linkage, labels []string) (*Tree, error) {
	n := len(labels)
	if err := z.Validate(n); err != nil {
		return nil, err
	}
	byLabel := make(map[string]int, n)
	for i, l := range labels {
		if _, dup := byLabel[l]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrLabelMismatch, l)
		}
		byLabel[l] = i
	}

	nodes := make([]treeNode, n+len(z))
	for i := range nodes {
		nodes[i] = treeNode{parent: -1, children: [2]int{-1, -1}}
	}
	for k, m := range z {
		id := n + k
		nodes[id].children = [2]int{m.Left, m.Right}
		nodes[m.Left].parent = id
		nodes[m.Right].parent = id
	}
	return &Tree{nodes: nodes, labels: labels, byLabel: byLabel}, nil
}

// NumLeaves returns n.
func (t *Tree) NumLeaves() int { return len(t.labels) }

// Len returns the number of nodes, leaves included.
func (t *Tree) Len() int { return len(t.nodes) }

// IsLeaf reports whether id is a leaf.
func (t *Tree) IsLeaf(id int) bool { return id < len(t.labels) }

// Label returns the variable label of a leaf, or the creation index of an
// internal node as a decimal string.
func (t *Tree) Label(id int) string {
	if t.IsLeaf(id) {
		return t.labels[id]
	}
	return strconv.Itoa(id)
}

// Node returns the leaf id carrying label.
func (t *Tree) Node(label string) (int, bool) {
	id, ok := t.byLabel[label]
	return id, ok
}

// Parent returns the parent of id, or -1 for a root.
func (t *Tree) Parent(id int) int { return t.nodes[id].parent }

// Children returns the two children of an internal node and nil for a leaf.
func (t *Tree) Children(id int) []int {
	if t.IsLeaf(id) {
		return nil
	}
	c := t.nodes[id].children
	return []int{c[0], c[1]}
}

// Root returns the node created last, which is the root of the whole tree
// when the linkage is complete. A tree without merges returns leaf 0.
func (t *Tree) Root() int { return len(t.nodes) - 1 }

// Roots returns every parentless node in ascending id order.
func (t *Tree) Roots() []int {
	var roots []int
	for id, nd := range t.nodes {
		if nd.parent == -1 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Descendants returns id and every node below it in depth-first pre-order,
// left child first.
func (t *Tree) Descendants(id int) []int {
	var out []int
	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		if !t.IsLeaf(cur) {
			c := t.nodes[cur].children
			stack = append(stack, c[1], c[0])
		}
	}
	return out
}

// Leaves returns the leaves under id in depth-first order, left child first.
func (t *Tree) Leaves(id int) []int {
	var out []int
	for _, d := range t.Descendants(id) {
		if t.IsLeaf(d) {
			out = append(out, d)
		}
	}
	return out
}

// LeafLabels returns the labels of Leaves(id).
func (t *Tree) LeafLabels(id int) []string {
	leaves := t.Leaves(id)
	out := make([]string, len(leaves))
	for i, l := range leaves {
		out[i] = t.labels[l]
	}
	return out
}

// SubtreeFromLeaves returns the root of the smallest subtree containing all
// the given leaves, found by climbing parent pointers from the first leaf.
// Leaves in different components of a forest yield ErrDisjointLeaves.
func (t *Tree) SubtreeFromLeaves(leaves []int) (int, error) {
	if len(leaves) == 0 {
		return -1, fmt.Errorf("%w: no leaves given", ErrDisjointLeaves)
	}
	remaining := make(map[int]bool, len(leaves))
	for _, l := range leaves {
		if l < 0 || !t.IsLeaf(l) {
			return -1, fmt.Errorf("%w: node %d is not a leaf", ErrUnknownLabel, l)
		}
		remaining[l] = true
	}

	cur := leaves[0]
	delete(remaining, cur)
	for len(remaining) > 0 {
		parent := t.nodes[cur].parent
		if parent == -1 {
			return -1, ErrDisjointLeaves
		}
		for _, sibling := range t.nodes[parent].children {
			if sibling == cur {
				continue
			}
			for _, l := range t.Leaves(sibling) {
				delete(remaining, l)
			}
		}
		cur = parent
	}
	return cur, nil
}

// leafIDs resolves labels to leaf ids.
func (t *Tree) leafIDs(labels []string) ([]int, error) {
	ids := make([]int, len(labels))
	for i, l := range labels {
		id, ok := t.byLabel[l]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, l)
		}
		ids[i] = id
	}
	return ids, nil
}
