package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates unit-normalized embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorSearcher answers nearest-neighbour queries over a fixed set of vectors.
type VectorSearcher interface {
	// Search returns exactly k hits ordered by descending score. Slots with no
	// match carry Position -1.
	Search(query []float32, k int) ([]VectorHit, error)

	// Count returns the number of vectors in the index.
	Count() int
}

// VectorHit is one slot of a search result.
type VectorHit struct {
	Position int     // index into the metadata sequence, -1 for no match
	Score    float64 // inner product (cosine for unit vectors)
}
