package corcluster

import (
	"fmt"
	"math"
	"sync"
)

// FlatPearsonParallel computes FlatPearson using multiple goroutines.
// numWorkers controls the degree of parallelism; if <= 1, it falls back to
// single-threaded FlatPearson.
//
// The result is bitwise identical to FlatPearson: a flat []float64 of length
// d(d-1)/2 laid out by idx.
func FlatPearsonParallel(data [][]uint8, idx FlatIndex, numWorkers int) ([]float64, error) {
	n, d, err := validateObservations(data)
	if err != nil {
		return nil, err
	}
	if numWorkers <= 1 || d <= 2 {
		return FlatPearson(data, idx)
	}
	if d != idx.Dim() {
		return nil, fmt.Errorf("%w: data has %d columns, index expects %d", ErrLabelMismatch, d, idx.Dim())
	}

	ones := make([]int, d)
	for _, row := range data {
		for i, v := range row {
			ones[i] += int(v)
		}
	}
	fn := float64(n)
	result := make([]float64, idx.Len())

	// Split variables across workers. Each worker handles a contiguous range
	// of first variables i and computes every pair (i, j) with j > i, so the
	// flat ranges written by different workers never overlap.
	var wg sync.WaitGroup

	varsPerWorker := (d + numWorkers - 1) / numWorkers
	degenerate := make([]int, numWorkers)
	for w := range degenerate {
		degenerate[w] = -1
	}

	for w := 0; w < numWorkers; w++ {
		start := w * varsPerWorker
		end := min(start+varsPerWorker, d)
		if start >= d {
			break
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			both := make([]int, d)
			for i := start; i < end; i++ {
				clear(both)
				for _, row := range data {
					if row[i] == 0 {
						continue
					}
					for j := i + 1; j < d; j++ {
						both[j] += int(row[j])
					}
				}

				pi := float64(ones[i]) / fn
				for j := i + 1; j < d; j++ {
					k := idx.Index(i, j)
					r, ok := pearsonFromProportions(float64(both[j])/fn, pi, float64(ones[j])/fn)
					if !ok {
						result[k] = math.NaN()
						if degenerate[w] < 0 {
							degenerate[w] = k
						}
						continue
					}
					result[k] = clamp(r, -1, 1)
				}
			}
		}(w, start, end)
	}

	wg.Wait()

	// Workers cover ascending flat ranges, so the first hit is the lowest.
	for _, k := range degenerate {
		if k >= 0 {
			i, j := idx.Pair(k)
			return nil, fmt.Errorf("%w: pair (%d,%d)", ErrDegenerateVariable, i, j)
		}
	}
	return result, nil
}
