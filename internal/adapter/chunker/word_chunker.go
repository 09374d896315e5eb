package chunker

import (
	"strings"

	"fincheck/internal/domain"
)

// WordChunker splits a document body into overlapping word windows.
type WordChunker struct {
	chunkSize int
	overlap   int
}

func NewWordChunker(chunkSize, overlap int) *WordChunker {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	if overlap < 0 {
		overlap = 0
	}
	return &WordChunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Stride is the number of words between the starts of consecutive windows.
// An overlap at or above the chunk size degrades to a stride of one word.
func (c *WordChunker) Stride() int {
	return max(c.chunkSize-c.overlap, 1)
}

func (c *WordChunker) Chunk(doc domain.Document) []domain.Chunk {
	windows := c.Split(doc.Body)
	if len(windows) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(windows))
	for _, text := range windows {
		chunks = append(chunks, domain.Chunk{
			Source:      doc.Source,
			Title:       doc.Title,
			PublishDate: doc.PublishDate,
			URL:         doc.URL,
			ChunkIndex:  len(chunks),
			Text:        text,
		})
	}
	return chunks
}

// Split returns the window texts for body. The last window may be shorter
// than the chunk size.
func (c *WordChunker) Split(body string) []string {
	words := strings.Fields(body)
	if len(words) == 0 {
		return nil
	}

	stride := c.Stride()
	var windows []string
	for start := 0; start < len(words); start += stride {
		end := min(start+c.chunkSize, len(words))
		text := strings.TrimSpace(strings.Join(words[start:end], " "))
		if text == "" {
			continue
		}
		windows = append(windows, text)
	}
	return windows
}
