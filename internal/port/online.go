package port

import (
	"context"

	"fincheck/internal/domain"
)

// ArticleSource is one online candidate source (news search, syndication feeds).
type ArticleSource interface {
	Name() string
	Fetch(ctx context.Context, req SourceRequest) ([]domain.Article, error)
}

// SourceRequest carries the narrowed query and the per-source budget.
type SourceRequest struct {
	Query    string
	Days     int
	MaxItems int
}

// TextExtractor fetches a web page and returns its readable text.
type TextExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}
