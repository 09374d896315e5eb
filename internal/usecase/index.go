package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"fincheck/internal/adapter/chunker"
	"fincheck/internal/domain"
	"fincheck/internal/port"
)

// CorpusReader lists and reads corpus files.
type CorpusReader interface {
	port.FileWalker
	port.FileReader
}

// IndexUseCase rebuilds the evidence index from a directory of text files.
type IndexUseCase struct {
	store    port.IndexStore
	corpus   CorpusReader
	chunker  port.Chunker
	embedder port.Embedder
	logger   *slog.Logger

	chunkSize int
	overlap   int
}

func NewIndexUseCase(
	store port.IndexStore,
	corpus CorpusReader,
	chunker port.Chunker,
	embedder port.Embedder,
	chunkSize, overlap int,
	logger *slog.Logger,
) *IndexUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{
		store:     store,
		corpus:    corpus,
		chunker:   chunker,
		embedder:  embedder,
		logger:    logger.With("component", "indexer"),
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	FilesIndexed  int
	FilesSkipped  int
	ChunksCreated int
	Dimension     int
	Model         string
	Duration      time.Duration
	Errors        []string
}

// ProgressFunc is called after each file is read.
type ProgressFunc func(done, total int)

// Build reads every corpus file under root, chunks the bodies, embeds all
// chunks in one call and replaces the stored index. Files with an empty body
// are skipped.
func (u *IndexUseCase) Build(ctx context.Context, root string, progress ProgressFunc) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{Model: u.embedder.ModelName()}

	files, err := u.corpus.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	var chunks []domain.Chunk
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docChunks, err := u.chunkFile(file)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", file.Path, err))
		} else if len(docChunks) == 0 {
			result.FilesSkipped++
		} else {
			result.FilesIndexed++
			chunks = append(chunks, docChunks...)
		}

		if progress != nil {
			progress(i+1, len(files))
		}
	}

	if len(chunks) == 0 {
		return nil, &NoDocumentsError{Root: root}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	idx := &domain.Index{
		Model:     u.embedder.ModelName(),
		Dimension: u.embedder.Dimension(),
		ChunkSize: u.chunkSize,
		Overlap:   u.overlap,
		BuiltAt:   time.Now().UTC(),
		Vectors:   vectors,
		Metadata:  chunks,
	}
	if err := u.store.Save(idx); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}

	result.ChunksCreated = len(chunks)
	result.Dimension = idx.Dimension
	result.Duration = time.Since(start)

	u.logger.InfoContext(ctx, "index built",
		"files", result.FilesIndexed,
		"skipped", result.FilesSkipped,
		"chunks", result.ChunksCreated,
		"model", result.Model,
		"duration", result.Duration)
	return result, nil
}

func (u *IndexUseCase) chunkFile(file port.FileInfo) ([]domain.Chunk, error) {
	raw, err := u.corpus.ReadFile(file.Path)
	if err != nil {
		return nil, err
	}
	doc := chunker.NewDocument(generateDocID(file.Path), file.Path, time.Unix(file.ModTime, 0), raw)
	if doc.Body == "" {
		return nil, nil
	}
	return u.chunker.Chunk(doc), nil
}

// generateDocID creates a unique ID for a document based on its path.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
