package corcluster

import (
	"math"
)

// primMST computes a minimum spanning tree using Prim's algorithm on a dense
// distance matrix. dist is flat []float64, n×n row-major.
// Returns (n-1) edges as [][3]float64 where each edge is [from, to, weight],
// and whether any edge weight is +Inf.
func primMST(dist []float64, n int) ([][3]float64, bool) {
	if n <= 1 {
		return nil, false
	}

	inTree := make([]bool, n)
	currentDistances := make([]float64, n)

	// Start from node 0: seed distances from its row in the matrix.
	inTree[0] = true
	currentNode := 0
	currentDistances[0] = math.Inf(1)
	for j := 1; j < n; j++ {
		currentDistances[j] = dist[j]
	}

	edges := make([][3]float64, 0, n-1)
	hasInf := false

	for i := 0; i < n-1; i++ {
		minDist := math.Inf(1)
		minNode := -1
		for j := 0; j < n; j++ {
			if !inTree[j] && currentDistances[j] < minDist {
				minDist = currentDistances[j]
				minNode = j
			}
		}

		// Only +Inf distances remain: attach the first node left out.
		if minNode == -1 {
			for j := 0; j < n; j++ {
				if !inTree[j] {
					minNode = j
					minDist = currentDistances[j]
					break
				}
			}
		}

		if math.IsInf(minDist, 1) {
			hasInf = true
		}

		// Chain format: the edge hangs off the previously added node, as in
		// scipy's mst_linkage_core. Only the heights matter to Label.
		edges = append(edges, [3]float64{
			float64(currentNode),
			float64(minNode),
			minDist,
		})

		inTree[minNode] = true
		currentNode = minNode

		for k := 0; k < n; k++ {
			if !inTree[k] {
				d := dist[minNode*n+k]
				if d < currentDistances[k] {
					currentDistances[k] = d
				}
			}
		}
	}

	return edges, hasInf
}
