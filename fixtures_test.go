package corcluster

import (
	"io"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

// pairedData returns 1000 rows over 4 variables where x0 == x1 and x1, x2,
// x3 cycle through all eight combinations equally often, so that
// corr(x0, x1) = 1 and every other correlation is exactly 0.
func pairedData() [][]uint8 {
	data := make([][]uint8, 1000)
	for i := range data {
		c := i % 8
		a, b, e := uint8(c&1), uint8(c>>1&1), uint8(c>>2&1)
		data[i] = []uint8{a, a, b, e}
	}
	return data
}

// equicorrelatedData returns 500 rows over 3 variables whose three pairwise
// correlations are exactly equal (0.2): 100 rows each of 111 and 000, and
// 50 rows of each of the other six patterns.
func equicorrelatedData() [][]uint8 {
	var data [][]uint8
	for key := uint64(0); key < 8; key++ {
		count := 50
		if key == 0 || key == 7 {
			count = 100
		}
		for range count {
			data = append(data, UnpackTuple(key, 3))
		}
	}
	return data
}

// blockData returns n rows over d variables in groups of three. Members of a
// group copy a shared latent bit with probability 0.8, so correlations are
// high within groups and near zero across them.
func blockData(n, d int, seed uint64) [][]uint8 {
	rng := rand.New(rand.NewPCG(seed, 0))
	data := make([][]uint8, n)
	for i := range data {
		row := make([]uint8, d)
		var latent uint8
		for j := range row {
			if j%3 == 0 {
				latent = uint8(rng.IntN(2))
			}
			if rng.Float64() < 0.8 {
				row[j] = latent
			} else {
				row[j] = uint8(rng.IntN(2))
			}
		}
		data[i] = row
	}
	return data
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testLabels(d int) []string {
	labels := make([]string, d)
	for i := range labels {
		labels[i] = string(rune('a' + i))
	}
	return labels
}
