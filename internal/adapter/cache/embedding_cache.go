package cache

import (
	"context"
	"fmt"
	"time"

	"fincheck/internal/port"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedEmbedder memoises single-text embeddings. Misses of one call are
// embedded together in one request to the wrapped embedder.
type CachedEmbedder struct {
	embedder port.Embedder
	lru      *expirable.LRU[string, []float32]
}

func NewCachedEmbedder(embedder port.Embedder, maxSize int, ttl time.Duration) *CachedEmbedder {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedEmbedder{
		embedder: embedder,
		lru:      expirable.NewLRU[string, []float32](maxSize, nil, ttl),
	}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []string
	var missingAt []int
	for i, text := range texts {
		if v, ok := e.lru.Get(text); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := e.embedder.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
	}

	for j, v := range vectors {
		e.lru.Add(missing[j], v)
		out[missingAt[j]] = v
	}
	return out, nil
}

func (e *CachedEmbedder) Dimension() int {
	return e.embedder.Dimension()
}

func (e *CachedEmbedder) ModelName() string {
	return e.embedder.ModelName()
}
