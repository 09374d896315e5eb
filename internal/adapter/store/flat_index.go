package store

import (
	"fmt"
	"sort"

	"fincheck/internal/port"
)

// FlatIndex is an exact inner-product index held in memory. It is read-only
// after construction and safe for concurrent searches.
type FlatIndex struct {
	dimension int
	vectors   [][]float32
}

// NewFlatIndex wraps vectors without copying them.
func NewFlatIndex(dimension int, vectors [][]float32) (*FlatIndex, error) {
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("vector dimension mismatch at %d: expected %d, got %d", i, dimension, len(v))
		}
	}
	return &FlatIndex{
		dimension: dimension,
		vectors:   vectors,
	}, nil
}

// Search scores every vector by brute force. The result always has k slots;
// when the index holds fewer than k vectors the tail slots have Position -1.
func (f *FlatIndex) Search(query []float32, k int) ([]port.VectorHit, error) {
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", f.dimension, len(query))
	}
	if k <= 0 {
		return nil, nil
	}

	scores := make([]port.VectorHit, len(f.vectors))
	for i, v := range f.vectors {
		scores[i] = port.VectorHit{Position: i, Score: innerProduct(query, v)}
	}

	// Sort by score descending, lower position first on ties
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	hits := make([]port.VectorHit, k)
	for i := range hits {
		if i < len(scores) {
			hits[i] = scores[i]
		} else {
			hits[i] = port.VectorHit{Position: -1}
		}
	}
	return hits, nil
}

func (f *FlatIndex) Count() int {
	return len(f.vectors)
}

func innerProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
