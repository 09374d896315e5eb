package online

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fincheck/internal/adapter/embedding"
	"fincheck/internal/domain"
	"fincheck/internal/port"
)

// Ranker scores candidate articles against the query by cosine similarity.
type Ranker struct {
	embedder port.Embedder
}

func NewRanker(embedder port.Embedder) *Ranker {
	return &Ranker{embedder: embedder}
}

// Rank embeds the query and each article's "title\n\nbody" payload and
// returns the topK best articles as evidence, highest score first. Ties keep
// candidate order.
func (r *Ranker) Rank(ctx context.Context, query string, articles []domain.Article, topK int) ([]domain.EvidenceItem, error) {
	if len(articles) == 0 || topK <= 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(articles)+1)
	texts = append(texts, query)
	for _, a := range articles {
		texts = append(texts, Payload(a))
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed online candidates: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	items := make([]domain.EvidenceItem, len(articles))
	for i, a := range articles {
		source := a.Source
		if source == "" {
			source = "online"
		}
		items[i] = domain.EvidenceItem{
			Text:      texts[i+1],
			Source:    source,
			Score:     embedding.Dot(vectors[0], vectors[i+1]),
			URL:       a.URL,
			Title:     a.Title,
			Published: a.Published,
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	if len(items) > topK {
		items = items[:topK]
	}
	return items, nil
}

// Payload is the text an article is ranked and cited by.
func Payload(a domain.Article) string {
	return strings.TrimSpace(a.Title + "\n\n" + a.Text)
}
