package cluster

import (
	"math/rand"
	"testing"
)

// Two visually separated groups of three 2-d points must converge to two
// clusters within the iteration cap.
func TestKMeansSeparatesTwoGroups(t *testing.T) {
	vectors := [][]float32{
		{0.0, 0.1}, {0.1, 0.0}, {0.1, 0.1},
		{10.0, 10.1}, {10.1, 10.0}, {10.1, 10.1},
	}
	assignments := KMeans(vectors, 2, 100, rand.New(rand.NewSource(42)))
	if len(assignments) != 6 {
		t.Fatalf("got %d assignments", len(assignments))
	}
	if assignments[0] != assignments[1] || assignments[1] != assignments[2] {
		t.Errorf("first group split: %v", assignments)
	}
	if assignments[3] != assignments[4] || assignments[4] != assignments[5] {
		t.Errorf("second group split: %v", assignments)
	}
	if assignments[0] == assignments[3] {
		t.Errorf("groups merged: %v", assignments)
	}
}

// With a fixed seed, repeated runs on the same record set produce the same
// assignments once the fixed point is reached.
func TestKMeansDeterministicForFixedSeed(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}, {0.1, 0.9, 0}, {0, 0, 1}, {0.1, 0, 0.9},
	}
	a := KMeans(vectors, 3, 100, rand.New(rand.NewSource(7)))
	b := KMeans(vectors, 3, 100, rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("assignments differ at %d: %v vs %v", i, a, b)
		}
	}
}

func TestKMeansEdgeCases(t *testing.T) {
	if got := KMeans(nil, 2, 10, rand.New(rand.NewSource(1))); got != nil {
		t.Errorf("empty input should give nil, got %v", got)
	}
	// k larger than n is clamped; every point still gets a valid cluster.
	vectors := [][]float32{{1, 0}, {0, 1}}
	assignments := KMeans(vectors, 5, 10, rand.New(rand.NewSource(1)))
	for _, a := range assignments {
		if a < 0 || a >= 2 {
			t.Errorf("assignment %d out of range", a)
		}
	}
	// Identical points: the weighted draw has zero total weight and the
	// uniform fallback must keep seeding from stalling.
	same := [][]float32{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	assignments = KMeans(same, 2, 10, rand.New(rand.NewSource(1)))
	if len(assignments) != 4 {
		t.Errorf("got %d assignments", len(assignments))
	}
}

func TestClusterCount(t *testing.T) {
	cases := []struct {
		n, max, want int
	}{
		{3, 8, 2},   // round(sqrt(1.5)) = 1, clamped up to 2
		{8, 8, 2},   // round(2) = 2
		{18, 8, 3},  // round(3) = 3
		{200, 8, 8}, // round(10) = 10, clamped to max
		{50, 3, 3},  // round(5) = 5, clamped to max 3
	}
	for _, c := range cases {
		if got := ClusterCount(c.n, c.max); got != c.want {
			t.Errorf("ClusterCount(%d, %d) = %d, want %d", c.n, c.max, got, c.want)
		}
	}
}
