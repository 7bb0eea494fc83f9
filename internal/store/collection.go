// Package store persists embedded records and serves nearest-neighbor queries
// over two fixed-dimensionality collections (text-space and visual-space).
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrInvalidDimension is returned when a vector's length does not match the
// owning collection's fixed dimensionality.
var ErrInvalidDimension = errors.New("embedding dimension does not match collection")

// Hit is a single nearest-neighbor result. Distance is 1 - cosine similarity
// (vectors are stored normalized), so it is monotonic with similarity.
type Hit struct {
	ID       string
	Distance float64
}

// collection is an in-memory brute-force cosine index over one embedding
// space. Dimensionality is fixed at creation and immutable afterwards.
// Writes are serialized by the mutex; reads run concurrently.
type collection struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	pos        map[string]int
	mu         sync.RWMutex
}

func newCollection(dimensions int) (*collection, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &collection{
		dimensions: dimensions,
		pos:        make(map[string]int),
	}, nil
}

// add inserts or replaces the vector for id.
func (c *collection) add(id string, vector []float32) error {
	if len(vector) != c.dimensions {
		return fmt.Errorf("%w: got %d, expected %d", ErrInvalidDimension, len(vector), c.dimensions)
	}
	vec := make([]float32, c.dimensions)
	copy(vec, vector)
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.pos[id]; ok {
		c.vectors[i] = vec
		return nil
	}
	c.pos[id] = len(c.ids)
	c.ids = append(c.ids, id)
	c.vectors = append(c.vectors, vec)
	return nil
}

// remove deletes the vector for id. Removing an absent id is a no-op.
func (c *collection) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.pos[id]
	if !ok {
		return
	}
	last := len(c.ids) - 1
	if i != last {
		c.ids[i] = c.ids[last]
		c.vectors[i] = c.vectors[last]
		c.pos[c.ids[i]] = i
	}
	c.ids = c.ids[:last]
	c.vectors = c.vectors[:last]
	delete(c.pos, id)
}

// search returns the k nearest vectors by cosine distance (1 - inner product;
// stored vectors are normalized).
func (c *collection) search(query []float32, k int) ([]Hit, error) {
	if len(query) != c.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrInvalidDimension, len(query), c.dimensions)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if k <= 0 || len(c.ids) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(c.ids))
	for i, vec := range c.vectors {
		var dot float64
		for j := 0; j < c.dimensions; j++ {
			dot += float64(query[j] * vec[j])
		}
		hits[i] = Hit{ID: c.ids[i], Distance: 1 - dot}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (c *collection) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
