package port

import "fincheck/internal/domain"

type Chunker interface {
	Chunk(doc domain.Document) []domain.Chunk
}
