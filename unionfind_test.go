package corcluster

import "testing"

func TestNewUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	// Each element should be its own root.
	for i := 0; i < 5; i++ {
		if root := uf.Find(i); root != i {
			t.Errorf("Find(%d) = %d, want %d", i, root, i)
		}
	}

	// Each element has size 1.
	for i := 0; i < 5; i++ {
		if uf.size[i] != 1 {
			t.Errorf("size[%d] = %d, want 1", i, uf.size[i])
		}
	}
}

func TestUnionFind_MergeAssignsLinkageIDs(t *testing.T) {
	uf := NewUnionFind(4)

	id, size := uf.Merge(1, 3)
	if id != 4 || size != 2 {
		t.Fatalf("Merge(1,3) = (%d,%d), want (4,2)", id, size)
	}
	if uf.Find(1) != 4 || uf.Find(3) != 4 {
		t.Errorf("after Merge(1,3), Find(1)=%d Find(3)=%d, want 4", uf.Find(1), uf.Find(3))
	}

	id, size = uf.Merge(uf.Find(0), uf.Find(3))
	if id != 5 || size != 3 {
		t.Fatalf("second Merge = (%d,%d), want (5,3)", id, size)
	}
	if uf.Find(2) != 2 {
		t.Errorf("Find(2) = %d, want 2", uf.Find(2))
	}
}

func TestUnionFind_PathCompression(t *testing.T) {
	uf := NewUnionFind(4)
	uf.Merge(0, 1)
	uf.Merge(uf.Find(1), 2)
	uf.Merge(uf.Find(2), uf.Find(3))

	if root := uf.Find(0); root != 6 {
		t.Fatalf("Find(0) = %d, want 6", root)
	}
	// After Find, 0 points straight at the root.
	if uf.parent[0] != 6 {
		t.Errorf("parent[0] = %d, want 6 after compression", uf.parent[0])
	}
	if uf.size[6] != 4 {
		t.Errorf("size[6] = %d, want 4", uf.size[6])
	}
}
