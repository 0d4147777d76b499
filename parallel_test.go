package corcluster

import (
	"testing"
)

func TestFlatPearsonParallel_BitwiseIdentical(t *testing.T) {
	data := blockData(400, 9, 17)
	idx := NewFlatIndex(9)

	sequential, err := FlatPearson(data, idx)
	if err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{1, 2, 4, 16} {
		parallel, err := FlatPearsonParallel(data, idx, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}

		if len(parallel) != len(sequential) {
			t.Fatalf("workers=%d: length mismatch %d != %d", workers, len(parallel), len(sequential))
		}

		for i := range sequential {
			if parallel[i] != sequential[i] {
				t.Errorf("workers=%d: result[%d] = %v, expected %v (bitwise)",
					workers, i, parallel[i], sequential[i])
			}
		}
	}
}

func TestFlatPearsonParallel_TwoVariables(t *testing.T) {
	data := [][]uint8{{1, 1}, {0, 0}, {1, 0}, {0, 1}}

	result, err := FlatPearsonParallel(data, NewFlatIndex(2), 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 1 {
		t.Fatalf("expected length 1, got %d", len(result))
	}
	if result[0] != 0 {
		t.Errorf("expected 0, got %v", result[0])
	}
}

func TestFlatPearsonParallel_Degenerate(t *testing.T) {
	// Column 3 is constant; the first undefined pair is (0,3).
	data := [][]uint8{
		{1, 0, 1, 1},
		{0, 1, 1, 1},
		{1, 1, 0, 1},
	}

	_, err := FlatPearsonParallel(data, NewFlatIndex(4), 3)
	if err == nil {
		t.Fatal("expected an error for a constant column")
	}
	if got, want := err.Error(), ErrDegenerateVariable.Error()+": pair (0,3)"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFlatPearsonParallel_IndexMismatch(t *testing.T) {
	data := [][]uint8{{1, 0, 1}, {0, 1, 1}}

	_, err := FlatPearsonParallel(data, NewFlatIndex(4), 2)
	if err == nil {
		t.Fatal("expected an error for a mismatched index")
	}
}

func TestFlatPearsonParallel_MoreWorkersThanRanges(t *testing.T) {
	// 4 variables over 8 workers: only 4 goroutines start.
	data := pairedData()
	idx := NewFlatIndex(4)

	sequential, err := FlatPearson(data, idx)
	if err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{3, 5, 8, 64} {
		parallel, err := FlatPearsonParallel(data, idx, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		for i := range sequential {
			if parallel[i] != sequential[i] {
				t.Errorf("workers=%d: result[%d] = %v, expected %v", workers, i, parallel[i], sequential[i])
			}
		}
	}
}
