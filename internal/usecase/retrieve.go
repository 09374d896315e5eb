package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync/atomic"
	"time"

	"fincheck/internal/adapter/metrics"
	"fincheck/internal/adapter/store"
	"fincheck/internal/domain"
	"fincheck/internal/port"
)

// loadedIndex is the immutable state published by Init.
type loadedIndex struct {
	searcher port.VectorSearcher
	metadata []domain.Chunk
	info     IndexInfo
}

// IndexInfo summarises the loaded index.
type IndexInfo struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Chunks    int       `json:"chunks"`
	ChunkSize int       `json:"chunk_size"`
	Overlap   int       `json:"overlap"`
	BuiltAt   time.Time `json:"built_at"`
	Stale     string    `json:"stale,omitempty"`
}

// EvidenceRetriever answers similarity queries over the local index. It
// starts not ready; Init loads the index and after that the retriever is
// read-only and safe for concurrent use.
type EvidenceRetriever struct {
	store    port.IndexStore
	embedder port.Embedder
	logger   *slog.Logger

	chunkSize int
	overlap   int

	state atomic.Pointer[loadedIndex]
}

func NewEvidenceRetriever(store port.IndexStore, embedder port.Embedder, chunkSize, overlap int, logger *slog.Logger) *EvidenceRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvidenceRetriever{
		store:     store,
		embedder:  embedder,
		logger:    logger.With("component", "retriever"),
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Init loads the index. It fails with ErrUnavailable when no index has been
// built or the stored index cannot be used with the configured embedder.
// Calling Init again reloads the index.
func (r *EvidenceRetriever) Init(ctx context.Context) error {
	idx, err := r.store.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: index not found, run the index command first: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(idx.Vectors) != len(idx.Metadata) {
		return fmt.Errorf("%w: index has %d vectors but %d metadata records", ErrUnavailable, len(idx.Vectors), len(idx.Metadata))
	}

	check := store.CheckIndex(idx, r.embedder.ModelName(), r.embedder.Dimension(), r.chunkSize, r.overlap)
	if check.NeedsRebuild {
		return fmt.Errorf("%w: %s", ErrUnavailable, check.Reason)
	}
	if check.Reason != "" {
		r.logger.WarnContext(ctx, "index is stale", "reason", check.Reason)
	}

	flat, err := store.NewFlatIndex(idx.Dimension, idx.Vectors)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r.state.Store(&loadedIndex{
		searcher: flat,
		metadata: idx.Metadata,
		info: IndexInfo{
			Model:     idx.Model,
			Dimension: idx.Dimension,
			Chunks:    idx.Len(),
			ChunkSize: idx.ChunkSize,
			Overlap:   idx.Overlap,
			BuiltAt:   idx.BuiltAt,
			Stale:     check.Reason,
		},
	})
	metrics.IndexedChunks.Set(float64(idx.Len()))

	r.logger.InfoContext(ctx, "index loaded",
		"chunks", idx.Len(),
		"model", idx.Model,
		"dimension", idx.Dimension)
	return nil
}

func (r *EvidenceRetriever) Ready() bool {
	return r.state.Load() != nil
}

// Info describes the loaded index; ok is false before Init.
func (r *EvidenceRetriever) Info() (IndexInfo, bool) {
	st := r.state.Load()
	if st == nil {
		return IndexInfo{}, false
	}
	return st.info, true
}

// Retrieve returns up to topK evidence items ordered by descending
// similarity. Fewer results than topK is not an error.
func (r *EvidenceRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.EvidenceItem, error) {
	st := r.state.Load()
	if st == nil {
		return nil, ErrNotReady
	}
	if topK <= 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	}()

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	hits, err := st.searcher.Search(vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	items := make([]domain.EvidenceItem, 0, len(hits))
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(st.metadata) {
			continue
		}
		meta := st.metadata[hit.Position]
		chunkIndex := meta.ChunkIndex
		items = append(items, domain.EvidenceItem{
			Text:       meta.Text,
			Source:     meta.Source,
			ChunkIndex: &chunkIndex,
			Score:      hit.Score,
			URL:        meta.URL,
			Title:      meta.Title,
			Published:  meta.PublishDate,
		})
	}
	return items, nil
}
