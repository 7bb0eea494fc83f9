// Package cluster partitions embedded records into groups with k-means and
// turns the groups into a folder-organization plan.
package cluster

import (
	"math"
	"math/rand"
)

// KMeans runs k-means with k-means++ seeding over vectors of uniform
// dimensionality and returns one cluster index in [0,k) per vector.
// Iteration stops at the fixed-point (assignments unchanged) or after
// maxIterations. rng drives the seeding; a fixed seed gives reproducible
// assignments.
func KMeans(vectors [][]float32, k, maxIterations int, rng *rand.Rand) []int {
	n := len(vectors)
	if n == 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}
	centroids := seedCentroids(vectors, k, rng)
	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := 0
			bestDist := math.MaxFloat64
			for c, centroid := range centroids {
				if d := squaredDistance(v, centroid); d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		recomputeCentroids(vectors, assignments, centroids)
	}
	return assignments
}

// seedCentroids picks the first centroid uniformly and each subsequent one
// with probability proportional to its squared distance to the nearest
// already-chosen centroid (k-means++). If the weighted draw fails to select
// a candidate, a uniform pick keeps the algorithm from stalling.
func seedCentroids(vectors [][]float32, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, cloneVector(vectors[rng.Intn(len(vectors))]))

	for len(centroids) < k {
		weights := make([]float64, len(vectors))
		var total float64
		for i, v := range vectors {
			nearest := math.MaxFloat64
			for _, c := range centroids {
				if d := squaredDistance(v, c); d < nearest {
					nearest = d
				}
			}
			weights[i] = nearest
			total += nearest
		}

		picked := -1
		if total > 0 {
			r := rng.Float64() * total
			var cum float64
			for i, w := range weights {
				cum += w
				if r <= cum {
					picked = i
					break
				}
			}
		}
		if picked < 0 {
			picked = rng.Intn(len(vectors))
		}
		centroids = append(centroids, cloneVector(vectors[picked]))
	}
	return centroids
}

// recomputeCentroids sets each centroid to the component-wise mean of its
// assigned vectors. A centroid with no assigned vectors keeps its previous
// position.
func recomputeCentroids(vectors [][]float32, assignments []int, centroids [][]float32) {
	dims := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, v := range vectors {
		c := assignments[i]
		counts[c]++
		for j, x := range v {
			sums[c][j] += float64(x)
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] = float32(sums[c][j] / float64(counts[c]))
		}
	}
}

func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return sum
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// ClusterCount returns the k for n records: round(sqrt(n/2)) clamped to
// [2, maxClusters].
func ClusterCount(n, maxClusters int) int {
	k := int(math.Round(math.Sqrt(float64(n) / 2)))
	if k < 2 {
		k = 2
	}
	if k > maxClusters {
		k = maxClusters
	}
	return k
}
