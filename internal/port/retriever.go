package port

import (
	"context"

	"fincheck/internal/domain"
)

// Retriever defines the interface for searching the local evidence index.
type Retriever interface {
	// Retrieve returns up to topK evidence items, best first.
	Retrieve(ctx context.Context, query string, topK int) ([]domain.EvidenceItem, error)
}

// OnlineSearcher gathers and ranks evidence from live sources. It never fails;
// degraded sources yield fewer items.
type OnlineSearcher interface {
	FetchOnlineEvidence(ctx context.Context, q OnlineQuery) []domain.EvidenceItem
}

// OnlineQuery parameterises one online fetch. Zero values select defaults.
type OnlineQuery struct {
	Query       string
	Days        int
	MaxArticles int
	Keywords    []string
}
